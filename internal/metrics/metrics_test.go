package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.BenchmarksTotal.WithLabelValues("openai", "gpt-4o-mini", "success").Inc()
	m.ErrorsTotal.WithLabelValues("groq", "RATE_LIMIT").Inc()
	m.LatencyMs.WithLabelValues("openai", "gpt-4o-mini").Observe(850)
	m.QueueDepth.WithLabelValues("pending").Set(12)
	m.BudgetSpendUSD.Set(3.25)
	m.BatchesTotal.WithLabelValues("completed").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`benchhub_benchmarks_total{model="gpt-4o-mini",outcome="success",provider="openai"} 1`,
		`benchhub_errors_total{error_type="RATE_LIMIT",provider="groq"} 1`,
		`benchhub_queue_depth{status="pending"} 12`,
		`benchhub_budget_spend_usd 3.25`,
		`benchhub_batches_total{status="completed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New()
	b := New()
	a.BenchmarksTotal.WithLabelValues("openai", "gpt-4o-mini", "success").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	b.Handler().ServeHTTP(w, req)

	if strings.Contains(w.Body.String(), `provider="openai"`) {
		t.Error("metric leaked between registries")
	}
}
