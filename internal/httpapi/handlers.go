package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/pricing"
	"github.com/jordanhubbard/benchhub/internal/runner"
	"github.com/jordanhubbard/benchhub/internal/stats"
)

// jsonError writes a JSON-encoded error response with the given status code.
// Response body format: {"error": "<msg>"}
func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// InitHandler starts a run and populates the queue. A tripped budget is a
// normal outcome for the cron caller, not an error, so it answers 200.
func InitHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runName := r.URL.Query().Get("run_name")
		triggeredBy := r.URL.Query().Get("triggered_by")
		if triggeredBy == "" {
			triggeredBy = "api"
		}
		runID, err := d.Runner.InitQueue(r.Context(), runName, triggeredBy)
		if err != nil {
			if errors.Is(err, runner.ErrBudgetExceeded) {
				writeJSON(w, map[string]string{"status": "aborted", "reason": "budget_exceeded"})
				return
			}
			d.Log.Error("queue init failed", "error", err)
			jsonError(w, "queue initialization failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "initialized", "run_id": runID})
	}
}

// ProcessHandler runs one batch. The batch result (completed, idle or
// aborted) is always a 200; only infrastructure failures are 5xx.
func ProcessHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchSize := runner.DefaultBatchSize
		if v := r.URL.Query().Get("batch_size"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > runner.MaxBatchSize {
				jsonError(w, fmt.Sprintf("batch_size must be an integer between 1 and %d", runner.MaxBatchSize), http.StatusBadRequest)
				return
			}
			batchSize = n
		}
		res, err := d.Runner.ProcessBatch(r.Context(), batchSize)
		if err != nil {
			d.Log.Error("batch processing failed", "error", err)
			jsonError(w, "batch processing failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, res)
	}
}

// StatusHandler reports queue progress for one run.
func StatusHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		qs, err := d.Store.GetQueueStats(r.Context(), runID)
		if err != nil {
			jsonError(w, "queue stats failed", http.StatusInternalServerError)
			return
		}
		total := qs.Pending + qs.Processing + qs.Completed + qs.Failed
		if total == 0 {
			jsonError(w, "run not found", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"run_id": runID,
			"queue":  qs,
			"total":  total,
			"done":   qs.Pending == 0 && qs.Processing == 0,
		})
	}
}

func RunsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := d.Store.ListRuns(r.Context())
		if err != nil {
			jsonError(w, "listing runs failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"runs": runs})
	}
}

func ResultsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		results, err := d.Store.ResultsByRun(r.Context(), runID)
		if err != nil {
			jsonError(w, "listing results failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"run_id": runID, "results": results})
	}
}

// StatsHandler aggregates recent results. hours defaults to 24 and is
// capped at a week.
func StatsHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if v := r.URL.Query().Get("hours"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				jsonError(w, "hours must be a positive integer", http.StatusBadRequest)
				return
			}
			hours = n
		}
		if hours > 168 {
			hours = 168
		}
		results, err := d.Store.RecentResults(r.Context(), hours)
		if err != nil {
			jsonError(w, "loading results failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, stats.Compute(results, hours))
	}
}

func BudgetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Budget.Check(r.Context()))
	}
}

// PricingImportHandler is the scraper's delivery endpoint.
func PricingImportHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Rows []pricing.Row `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if len(req.Rows) == 0 {
			jsonError(w, "rows must not be empty", http.StatusBadRequest)
			return
		}
		res, err := d.Pricing.ImportRows(r.Context(), req.Rows)
		if err != nil {
			d.Log.Error("pricing import failed", "error", err)
			jsonError(w, "pricing import failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, res)
	}
}

func PricingGetHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerKey := chi.URLParam(r, "provider")
		model := chi.URLParam(r, "*")
		p, stored, err := d.Pricing.Get(r.Context(), providerKey, model)
		if err != nil {
			jsonError(w, "unknown provider", http.StatusNotFound)
			return
		}
		source := "default"
		if stored {
			source = "scraper"
		}
		writeJSON(w, map[string]any{
			"provider": providerKey,
			"model":    model,
			"input":    p.InputPerM,
			"output":   p.OutputPerM,
			"source":   source,
		})
	}
}

// DiscoverHandler records a provider's model list. Discovered models are
// inserted inactive; activation is a separate, explicit step.
func DiscoverHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Provider string   `json:"provider"`
			Models   []string `json:"models"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.Provider == "" || len(req.Models) == 0 {
			jsonError(w, "provider and models are required", http.StatusBadRequest)
			return
		}
		name := displayName(req.Provider)
		if err := d.Store.UpsertModelsFromDiscovery(r.Context(), name, req.Models); err != nil {
			d.Log.Error("discovery upsert failed", "provider", req.Provider, "error", err)
			jsonError(w, "discovery failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"provider": req.Provider, "discovered": len(req.Models)})
	}
}

// ActivateHandler flips the active model set. Without a body it activates
// the full catalog roster; with one it activates the named set for one
// provider.
func ActivateHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Provider string   `json:"provider"`
			Models   []string `json:"models"`
		}
		// An empty body means "activate the catalog roster".
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Provider != "" {
			if len(req.Models) == 0 {
				jsonError(w, "models are required with provider", http.StatusBadRequest)
				return
			}
			if err := d.Store.SetModelsActive(r.Context(), displayName(req.Provider), req.Models); err != nil {
				jsonError(w, "activation failed", http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]any{"provider": req.Provider, "activated": len(req.Models)})
			return
		}

		activated := 0
		for key, p := range catalog.Providers {
			names := catalog.ModelsFor(key)
			if len(names) == 0 {
				continue
			}
			if err := d.Store.SetModelsActive(r.Context(), p.DisplayName, names); err != nil {
				d.Log.Error("activation failed", "provider", key, "error", err)
				jsonError(w, "activation failed", http.StatusInternalServerError)
				return
			}
			activated += len(names)
		}
		writeJSON(w, map[string]any{"activated": activated})
	}
}

func displayName(providerKey string) string {
	if p, err := catalog.Lookup(providerKey); err == nil {
		return p.DisplayName
	}
	return providerKey
}
