package kafka

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithRequiredAcks(1),
		WithMaxAttempts(5),
		WithBatchTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.Equal(t, 5, p.writer.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, p.writer.BatchTimeout)
	assert.Nil(t, p.metrics)
}

func TestProducerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newProducerMetrics(reg)

	m.observe("risk.reports", "gzip", 120, 10*time.Millisecond, nil)
	m.observe("risk.reports", "gzip", 80, 10*time.Millisecond, errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.msgs.WithLabelValues("risk.reports", "gzip", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.msgs.WithLabelValues("risk.reports", "gzip", "error")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.bytes.WithLabelValues("risk.reports", "gzip")))

	var nilMetrics *producerMetrics
	assert.NotPanics(t, func() { nilMetrics.observe("t", "gzip", 1, time.Millisecond, nil) })
}
