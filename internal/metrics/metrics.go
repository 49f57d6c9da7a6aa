// Package metrics defines the Prometheus collectors exported by docops.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docops"

// Metrics holds every docops collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SearchRequestsTotal  *prometheus.CounterVec
	SearchDuration       *prometheus.HistogramVec
	SearchSkippedTotal   *prometheus.CounterVec
	SearchCacheTotal     *prometheus.CounterVec
	DocumentUpsertsTotal *prometheus.CounterVec
	IngestDocumentsTotal *prometheus.CounterVec
	LLMRequestsTotal     *prometheus.CounterVec
	LLMRequestDuration   *prometheus.HistogramVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry,
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of search requests",
			},
			[]string{"corpus", "outcome"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"corpus"},
		),
		SearchSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_skipped_documents_total",
				Help:      "Documents skipped during search because they could not be read",
			},
			[]string{"corpus"},
		),
		SearchCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_cache_total",
				Help:      "Search cache hits and misses",
			},
			[]string{"result"}, // "hit" / "miss"
		),
		DocumentUpsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_upserts_total",
				Help:      "Record store upserts",
			},
			[]string{"result"}, // "inserted" / "replaced" / "error"
		),
		IngestDocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_documents_total",
				Help:      "Documents processed by ingestion",
			},
			[]string{"status"}, // "upserted" / "unchanged" / "failed"
		),
		LLMRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM chat requests",
			},
			[]string{"provider", "model", "status"},
		),
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM chat request duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SearchRequestsTotal,
		m.SearchDuration,
		m.SearchSkippedTotal,
		m.SearchCacheTotal,
		m.DocumentUpsertsTotal,
		m.IngestDocumentsTotal,
		m.LLMRequestsTotal,
		m.LLMRequestDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search
func (m *Metrics) ObserveSearch(corpus, outcome string, seconds float64, skipped int) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(corpus, outcome).Inc()
	m.SearchDuration.WithLabelValues(corpus).Observe(seconds)
	if skipped > 0 {
		m.SearchSkippedTotal.WithLabelValues(corpus).Add(float64(skipped))
	}
}

// ObserveCache records a search cache lookup
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SearchCacheTotal.WithLabelValues(result).Inc()
}

// ObserveUpsert records a record store write
func (m *Metrics) ObserveUpsert(replaced bool, err error) {
	if m == nil {
		return
	}
	result := "inserted"
	switch {
	case err != nil:
		result = "error"
	case replaced:
		result = "replaced"
	}
	m.DocumentUpsertsTotal.WithLabelValues(result).Inc()
}

// ObserveIngest records ingestion counters
func (m *Metrics) ObserveIngest(status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.IngestDocumentsTotal.WithLabelValues(status).Add(float64(n))
}

// ObserveLLM records one chat request
func (m *Metrics) ObserveLLM(provider, model string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LLMRequestsTotal.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(seconds)
}
