// Package stats aggregates stored benchmark results into the per-model
// rollups the API serves. Aggregation is a pure fold over result rows;
// the store stays the single source of truth and nothing here survives a
// restart.
package stats

import (
	"sort"

	"github.com/jordanhubbard/benchhub/internal/store"
)

// Aggregate is the rollup for one (provider, model) pair.
type Aggregate struct {
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Attempts     int      `json:"attempts"`
	Successes    int      `json:"successes"`
	SuccessRate  float64  `json:"success_rate"`
	AvgLatencyMs float64  `json:"avg_latency_ms"`
	AvgTTFTMs    *float64 `json:"avg_ttft_ms,omitempty"`
	AvgTPS       *float64 `json:"avg_tps,omitempty"`
	TotalTokens  int      `json:"total_tokens"`
	TotalCostUSD float64  `json:"total_cost_usd"`
}

// Summary is the full rollup over a window of results.
type Summary struct {
	WindowHours  int         `json:"window_hours"`
	Total        int         `json:"total"`
	Successful   int         `json:"successful"`
	Failed       int         `json:"failed"`
	TotalCostUSD float64     `json:"total_cost_usd"`
	Models       []Aggregate `json:"models"`
}

type accumulator struct {
	attempts   int
	successes  int
	latencySum float64
	ttftSum    float64
	ttftN      int
	tpsSum     float64
	tpsN       int
	tokens     int
	cost       float64
}

// Compute folds result rows into a Summary. Latency averages cover all
// attempts; TTFT and TPS average only the rows that measured them (failed
// calls usually have neither).
func Compute(results []store.ResultRecord, windowHours int) Summary {
	sum := Summary{WindowHours: windowHours}
	acc := make(map[[2]string]*accumulator)

	for _, r := range results {
		sum.Total++
		if r.Success {
			sum.Successful++
		} else {
			sum.Failed++
		}
		sum.TotalCostUSD += r.CostUSD

		key := [2]string{r.Provider, r.Model}
		a, ok := acc[key]
		if !ok {
			a = &accumulator{}
			acc[key] = a
		}
		a.attempts++
		if r.Success {
			a.successes++
		}
		a.latencySum += r.TotalLatencyMs
		if r.TTFTMs != nil {
			a.ttftSum += *r.TTFTMs
			a.ttftN++
		}
		if r.TPS != nil {
			a.tpsSum += *r.TPS
			a.tpsN++
		}
		a.tokens += r.InputTokens + r.OutputTokens
		a.cost += r.CostUSD
	}

	for key, a := range acc {
		agg := Aggregate{
			Provider:     key[0],
			Model:        key[1],
			Attempts:     a.attempts,
			Successes:    a.successes,
			SuccessRate:  float64(a.successes) / float64(a.attempts),
			AvgLatencyMs: a.latencySum / float64(a.attempts),
			TotalTokens:  a.tokens,
			TotalCostUSD: a.cost,
		}
		if a.ttftN > 0 {
			v := a.ttftSum / float64(a.ttftN)
			agg.AvgTTFTMs = &v
		}
		if a.tpsN > 0 {
			v := a.tpsSum / float64(a.tpsN)
			agg.AvgTPS = &v
		}
		sum.Models = append(sum.Models, agg)
	}

	sort.Slice(sum.Models, func(i, j int) bool {
		if sum.Models[i].Provider != sum.Models[j].Provider {
			return sum.Models[i].Provider < sum.Models[j].Provider
		}
		return sum.Models[i].Model < sum.Models[j].Model
	})
	return sum
}
