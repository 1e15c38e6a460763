package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := New()

	m.DocumentsIngestedTotal.Inc()
	m.ChunksIndexedTotal.Add(4)
	m.ObserveHTTPRequest("POST", "/api/v1/documents", 201, 120*time.Millisecond)
	m.ToolCallsTotal.WithLabelValues("get_restaurant_rating", "ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"ragcore_documents_ingested_total 1",
		"ragcore_chunks_indexed_total 4",
		`ragcore_http_requests_total{method="POST",path="/api/v1/documents",status="2xx"} 1`,
		`ragcore_tool_calls_total{status="ok",tool="get_restaurant_rating"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[int]string{
		200: "2xx",
		201: "2xx",
		302: "3xx",
		404: "4xx",
		500: "5xx",
	}
	for status, want := range cases {
		if got := statusLabel(status); got != want {
			t.Errorf("statusLabel(%d) = %s, want %s", status, got, want)
		}
	}
}
