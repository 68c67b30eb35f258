package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/metrics"
	"github.com/jordanhubbard/benchhub/internal/pricing"
	"github.com/jordanhubbard/benchhub/internal/providers/registry"
	"github.com/jordanhubbard/benchhub/internal/runner"
	"github.com/jordanhubbard/benchhub/internal/store"
)

type Dependencies struct {
	Store    store.Store
	Runner   *runner.Runner
	Budget   runner.BudgetChecker
	Pricing  *pricing.Service
	Registry *registry.Registry
	Metrics  *metrics.Registry
	Log      *slog.Logger
}

func MountRoutes(r chi.Router, d Dependencies) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		configured := len(d.Registry.Configured())
		body := map[string]any{
			"status":    "ok",
			"providers": configured,
			"models":    len(catalog.ActiveModels),
		}
		if configured == 0 {
			body["status"] = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	r.Route("/api", func(r chi.Router) {
		// The trigger endpoints answer GET as well; the original cron
		// collaborator fires plain GETs.
		r.Get("/benchmark/init", InitHandler(d))
		r.Post("/benchmark/init", InitHandler(d))
		r.Get("/benchmark/process", ProcessHandler(d))
		r.Post("/benchmark/process", ProcessHandler(d))
		r.Get("/benchmark/status/{runID}", StatusHandler(d))

		r.Get("/runs", RunsHandler(d))
		r.Get("/runs/{runID}/results", ResultsHandler(d))
		r.Get("/stats", StatsHandler(d))
		r.Get("/budget", BudgetHandler(d))

		r.Post("/pricing/import", PricingImportHandler(d))
		// Model names may contain slashes ("openai/gpt-4o-mini"), so the
		// model segment is a catch-all.
		r.Get("/pricing/{provider}/*", PricingGetHandler(d))

		r.Post("/sync/discover", DiscoverHandler(d))
		r.Post("/sync/activate", ActivateHandler(d))
	})

	r.Handle("/metrics", d.Metrics.Handler())
}
