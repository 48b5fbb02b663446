// Package observability provides Prometheus instrumentation for the HTTP
// dispatcher.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the dispatcher reports into.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the flow request collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_requests_total",
				Help: "Flow requests handled, by position and result.",
			},
			[]string{"position", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "espalier_request_duration_seconds",
				Help:    "Flow request duration, by position.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"position"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Observe records one handled request.
func (m *Metrics) Observe(position, result string, elapsed time.Duration) {
	m.requests.WithLabelValues(position, result).Inc()
	m.duration.WithLabelValues(position).Observe(elapsed.Seconds())
}
