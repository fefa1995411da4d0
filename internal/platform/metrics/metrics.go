package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// New creates and registers the HTTP metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the HTTP metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimdesk_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimdesk_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	m.RequestDuration.WithLabelValues(method, route).Observe(seconds)
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
}
