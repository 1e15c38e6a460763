// Package metrics provides Prometheus metrics for ragcore
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for ragcore
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ingestion metrics
	DocumentsIngestedTotal prometheus.Counter
	IngestFailuresTotal    prometheus.Counter
	ChunksIndexedTotal     prometheus.Counter

	// Retrieval metrics
	SearchesTotal          prometheus.Counter
	RetrievalDuration      prometheus.Histogram
	DegradedResponsesTotal prometheus.Counter

	// Tool metrics
	ToolCallsTotal *prometheus.CounterVec

	// Worker metrics
	TasksProcessedTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragcore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragcore_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.DocumentsIngestedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragcore_documents_ingested_total",
			Help: "Total number of documents successfully ingested",
		},
	)

	m.IngestFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragcore_ingest_failures_total",
			Help: "Total number of failed ingestion attempts",
		},
	)

	m.ChunksIndexedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragcore_chunks_indexed_total",
			Help: "Total number of chunks written to the vector index",
		},
	)

	m.SearchesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragcore_searches_total",
			Help: "Total number of similarity searches",
		},
	)

	m.RetrievalDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragcore_retrieval_duration_seconds",
			Help:    "Duration of question answering in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	m.DegradedResponsesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ragcore_degraded_responses_total",
			Help: "Total number of degraded (fallback) answers",
		},
	)

	m.ToolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragcore_tool_calls_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	m.TasksProcessedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragcore_tasks_processed_total",
			Help: "Total number of background tasks processed",
		},
		[]string{"type", "status"},
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
