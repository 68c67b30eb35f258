package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/benchhub/internal/budget"
	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/metrics"
	"github.com/jordanhubbard/benchhub/internal/pricing"
	"github.com/jordanhubbard/benchhub/internal/providers"
	"github.com/jordanhubbard/benchhub/internal/providers/registry"
	"github.com/jordanhubbard/benchhub/internal/ratelimit"
	"github.com/jordanhubbard/benchhub/internal/runner"
	"github.com/jordanhubbard/benchhub/internal/store"
)

type stubAdapter struct{ key string }

func (s stubAdapter) ProviderKey() string { return s.key }

func (s stubAdapter) Benchmark(_ context.Context, model string) providers.Envelope {
	ttft := 120.0
	tps := 60.0
	return providers.Envelope{
		Provider: s.key,
		Model:    model,
		Success:  true,
		Response: "- a\n- b\n- c",
		Metrics: providers.Metrics{
			TotalLatencyMs: 800,
			TTFTMs:         &ttft,
			TPS:            &tps,
			InputTokens:    450,
			OutputTokens:   60,
		},
	}
}

type stubAdapters struct{}

func (stubAdapters) Get(key string) (providers.Adapter, bool) {
	return stubAdapter{key: key}, true
}

type stubBudget struct{ status budget.Status }

func (s stubBudget) Check(context.Context) budget.Status { return s.status }

func newTestRouter(t *testing.T, b budget.Status, getenv func(string) string) (chi.Router, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pr := pricing.New(st, log)
	run := runner.New(st, stubAdapters{}, pr, stubBudget{status: b},
		ratelimit.NewPacer(0), metrics.New(), log)

	if getenv == nil {
		getenv = func(name string) string {
			if name == "OPENAI_API_KEY" {
				return "sk-test"
			}
			return ""
		}
	}

	r := chi.NewRouter()
	MountRoutes(r, Dependencies{
		Store:    st,
		Runner:   run,
		Budget:   stubBudget{status: b},
		Pricing:  pr,
		Registry: registry.New(getenv, nil, log),
		Metrics:  metrics.New(),
		Log:      log,
	})
	return r, st
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	}
	return w, out
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	w, body := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["providers"])
}

func TestHealthzUnhealthyWithoutProviders(t *testing.T) {
	none := func(string) string { return "" }
	r, _ := newTestRouter(t, budget.Status{}, none)
	w, body := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body["status"])
}

func TestInitThenStatus(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)

	w, body := doJSON(t, r, http.MethodPost, "/api/benchmark/init", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "initialized", body["status"])
	runID, _ := body["run_id"].(string)
	require.NotEmpty(t, runID)

	w, body = doJSON(t, r, http.MethodGet, "/api/benchmark/status/"+runID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, runID, body["run_id"])
	assert.Equal(t, float64(len(catalog.Pairs())), body["total"])
	assert.Equal(t, false, body["done"])
}

func TestInitAbortedOverBudget(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{ShouldAbort: true, CurrentSpend: 16, BudgetCap: 15}, nil)
	w, body := doJSON(t, r, http.MethodGet, "/api/benchmark/init", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "aborted", body["status"])
	assert.Equal(t, "budget_exceeded", body["reason"])
}

func TestStatusUnknownRun(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	w, body := doJSON(t, r, http.MethodGet, "/api/benchmark/status/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "run not found", body["error"])
}

func TestProcessIdle(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	w, body := doJSON(t, r, http.MethodPost, "/api/benchmark/process", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", body["status"])
}

func TestProcessRejectsBadBatchSize(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	for _, q := range []string{"lots", "0", "-1", "51"} {
		w, _ := doJSON(t, r, http.MethodPost, "/api/benchmark/process?batch_size="+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "batch_size=%s", q)
	}
}

func TestProcessBatchAndResults(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)

	_, body := doJSON(t, r, http.MethodPost, "/api/benchmark/init", nil)
	runID := body["run_id"].(string)

	w, body := doJSON(t, r, http.MethodPost, "/api/benchmark/process?batch_size=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(len(catalog.Pairs())), body["successful"])

	w, body = doJSON(t, r, http.MethodGet, "/api/runs/"+runID+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := body["results"].([]any)
	assert.Len(t, results, len(catalog.Pairs()))

	w, body = doJSON(t, r, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["runs"].([]any), 1)
}

func TestStats(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	doJSON(t, r, http.MethodPost, "/api/benchmark/init", nil)
	doJSON(t, r, http.MethodPost, "/api/benchmark/process?batch_size=50", nil)

	w, body := doJSON(t, r, http.MethodGet, "/api/stats?hours=48", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(48), body["window_hours"])
	assert.Equal(t, float64(len(catalog.Pairs())), body["total"])

	w, _ = doJSON(t, r, http.MethodGet, "/api/stats?hours=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBudgetEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{CurrentSpend: 3, BudgetCap: 15, Remaining: 12, PercentUsed: 20}, nil)
	w, body := doJSON(t, r, http.MethodGet, "/api/budget", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["current_spend"])
	assert.Equal(t, float64(15), body["budget_cap"])
}

func TestPricingImportAndGet(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)

	w, body := doJSON(t, r, http.MethodPost, "/api/pricing/import", map[string]any{
		"rows": []pricing.Row{
			{ProviderKey: "openai", ModelName: "gpt-4o-mini", InputPerM: 0.2, OutputPerM: 0.7},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["inserted"])

	w, body = doJSON(t, r, http.MethodGet, "/api/pricing/openai/gpt-4o-mini", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scraper", body["source"])
	assert.Equal(t, 0.2, body["input"])

	// Unimported model falls back to catalog defaults.
	w, body = doJSON(t, r, http.MethodGet, "/api/pricing/anthropic/claude-haiku-4-5-20251001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", body["source"])

	w, _ = doJSON(t, r, http.MethodGet, "/api/pricing/notaprovider/some-model", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPricingImportRejectsEmpty(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	w, _ := doJSON(t, r, http.MethodPost, "/api/pricing/import", map[string]any{"rows": []pricing.Row{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscoverAndActivate(t *testing.T) {
	r, st := newTestRouter(t, budget.Status{}, nil)
	ctx := context.Background()

	w, body := doJSON(t, r, http.MethodPost, "/api/sync/discover", map[string]any{
		"provider": "openai",
		"models":   []string{"gpt-4o-mini", "gpt-5-nano"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["discovered"])

	w, body = doJSON(t, r, http.MethodPost, "/api/sync/activate", map[string]any{
		"provider": "openai",
		"models":   []string{"gpt-4o-mini"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["activated"])

	active, err := st.ListActiveModels(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "gpt-4o-mini", active[0].Name)
}

func TestActivateWholeCatalog(t *testing.T) {
	r, st := newTestRouter(t, budget.Status{}, nil)

	w, body := doJSON(t, r, http.MethodPost, "/api/sync/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(len(catalog.Pairs())), body["activated"])

	active, err := st.ListActiveModels(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, len(catalog.Pairs()))
}

func TestDiscoverRejectsMissingFields(t *testing.T) {
	r, _ := newTestRouter(t, budget.Status{}, nil)
	w, _ := doJSON(t, r, http.MethodPost, "/api/sync/discover", map[string]any{"provider": "openai"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
