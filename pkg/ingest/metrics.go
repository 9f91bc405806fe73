package ingest

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by the handler.
const (
	OutcomeAccepted         = "accepted"
	OutcomePreflight        = "preflight"
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeInvalid          = "invalid"
	OutcomeMissingFields    = "missing_fields"
	OutcomeStoreError       = "store_error"
)

// Metrics holds the endpoint's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	inserts  prometheus.Histogram
}

// NewMetrics registers the ingest collectors plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_ingest_requests_total",
			Help: "Ingestion requests by outcome.",
		}, []string{"outcome"}),
		inserts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "survey_ingest_insert_duration_seconds",
			Help:    "Time spent inserting a response row.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.inserts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Requests returns the counter for outcome.
func (m *Metrics) Requests(outcome string) prometheus.Counter {
	return m.requests.WithLabelValues(outcome)
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeInsert(d time.Duration) {
	if m == nil {
		return
	}
	m.inserts.Observe(d.Seconds())
}
