package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordComputation("historical_var", "ok")
	r.RecordComputation("historical_var", "ok")
	r.RecordComputation("parametric_var", "error")
	r.RecordError("fetch")
	r.RecordMetricValue("portfolio", "historical_var@95%", 0.031)
	r.RecordLatency("analyze", 0.2)
	r.RecordCacheLookup("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.computations.WithLabelValues("historical_var", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("fetch")))
	assert.Equal(t, 0.031, testutil.ToFloat64(r.metricValue.WithLabelValues("portfolio", "historical_var@95%")))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))

	n, err := testutil.GatherAndCount(reg, "riskengine_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a second recorder on its own registry does not collide
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
