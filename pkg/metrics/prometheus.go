package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	computations *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	metricValue  *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg registers on the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		computations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskengine_computations_total",
				Help: "Total number of risk metric computations",
			},
			[]string{"metric", "result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskengine_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		metricValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "riskengine_metric_value",
				Help: "Last computed value of a risk metric",
			},
			[]string{"scope", "metric"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskengine_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskengine_price_cache_total",
				Help: "Price cache lookups by result (hit, miss, bypass)",
			},
			[]string{"result"},
		),
	}
}

// RecordComputation counts one metric evaluation; result is "ok" or "error".
func (r *Recorder) RecordComputation(metric, result string) {
	r.computations.WithLabelValues(metric, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordMetricValue stores the latest value of a metric for a scope (portfolio or ticker).
func (r *Recorder) RecordMetricValue(scope, metric string, value float64) {
	r.metricValue.WithLabelValues(scope, metric).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheLookup counts one price cache lookup.
func (r *Recorder) RecordCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}
