package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docqa-go/internal/rag"
)

// counterValue returns the value of the counter name{label=value}, or -1.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return -1
}

func Test_Metrics_QueryOutcomeCounted(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	s := newTestServer()
	s.metrics = newServerMetrics(reg)
	s.asker = &fakeAsker{err: rag.ErrNoIndex}

	postQuery(s, `{"question":"q"}`)
	postQuery(s, `{"question":"q"}`)

	if got := counterValue(t, reg, "docqa_query_requests_total", "outcome", "no_index"); got != 2 {
		t.Errorf("docqa_query_requests_total{outcome=no_index} = %v, want 2", got)
	}
}

func Test_Metrics_EndpointServesRouteLabels(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	s, err := New(&fakeAsker{}, &fakeIngester{}, &Config{
		Logger:          discardLogger(),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopSweep)
	h := s.httpServer.Handler

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := counterValue(t, reg, "docqa_http_requests_total", "handler", "GET /api/health"); got != 1 {
		t.Errorf("http requests for GET /api/health = %v, want 1", got)
	}
	if got := counterValue(t, reg, "docqa_http_requests_total", "handler", "unmatched"); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "docqa_http_requests_total") {
		t.Error("metrics output missing docqa_http_requests_total")
	}
}
