// Package pricing is the read-through view of the latest $/1M-token rates.
// The prices table is written by the external scraper (via ImportRows);
// reads fall back to the catalog defaults when no row exists yet, so cost
// attribution never blocks on the scraper having run.
package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/store"
)

// Service resolves pricing for benchmark cost attribution.
type Service struct {
	store store.Store
	log   *slog.Logger
}

func New(st store.Store, log *slog.Logger) *Service {
	return &Service{store: st, log: log}
}

// Get returns the most recent price row for (provider key, model), or the
// provider's catalog default when the table has none. The bool reports
// whether a stored row was found.
func (s *Service) Get(ctx context.Context, providerKey, model string) (store.Pricing, bool, error) {
	p, err := catalog.Lookup(providerKey)
	if err != nil {
		return store.Pricing{}, false, err
	}
	row, err := s.store.GetModelPricing(ctx, p.DisplayName, model)
	if err != nil {
		return store.Pricing{}, false, fmt.Errorf("pricing lookup: %w", err)
	}
	if row != nil {
		return *row, true, nil
	}
	return store.Pricing{InputPerM: p.DefaultInputPerM, OutputPerM: p.DefaultOutputPerM}, false, nil
}

// Cost converts token counts to USD at the given rates.
func Cost(p store.Pricing, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*p.InputPerM + float64(outputTokens)/1e6*p.OutputPerM
}

// Row is one scraped price quote, in the scraper handoff schema.
type Row struct {
	ProviderKey   string  `json:"provider_key"`
	ProviderName  string  `json:"provider_name"`
	ModelName     string  `json:"model_name"`
	InputPerM     float64 `json:"input_per_m"`
	OutputPerM    float64 `json:"output_per_m"`
	ContextWindow *int    `json:"context_window,omitempty"`
}

// ImportResult summarizes one scraper delivery.
type ImportResult struct {
	Inserted   int `json:"inserted"`
	Suppressed int `json:"suppressed"`
	Rejected   int `json:"rejected"`
}

// ImportRows ingests a scraper delivery. Provider and model rows are
// created on demand; the store's 24h suppression decides whether each
// quote becomes a new price row. Rows with negative rates are rejected
// individually, never failing the batch.
func (s *Service) ImportRows(ctx context.Context, rows []Row) (ImportResult, error) {
	var res ImportResult
	for _, row := range rows {
		displayName := row.ProviderName
		baseURL := ""
		if p, err := catalog.Lookup(row.ProviderKey); err == nil {
			displayName = p.DisplayName
			baseURL = p.BaseURL
		} else if displayName == "" {
			displayName = row.ProviderKey
		}
		providerID, err := s.store.GetOrCreateProvider(ctx, displayName, baseURL, "")
		if err != nil {
			return res, fmt.Errorf("import pricing: %w", err)
		}
		modelID, err := s.store.GetOrCreateModel(ctx, row.ModelName, providerID, row.ContextWindow)
		if err != nil {
			return res, fmt.Errorf("import pricing: %w", err)
		}
		id, err := s.store.SavePrice(ctx, providerID, modelID, row.InputPerM, row.OutputPerM)
		if err != nil {
			s.log.Warn("price row rejected", "provider", row.ProviderKey, "model", row.ModelName, "error", err)
			res.Rejected++
			continue
		}
		if id == "" {
			res.Suppressed++
			continue
		}
		res.Inserted++
	}
	return res, nil
}
