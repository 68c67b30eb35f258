package stats

import (
	"testing"

	"github.com/jordanhubbard/benchhub/internal/store"
)

func fptr(v float64) *float64 { return &v }

func TestComputeEmpty(t *testing.T) {
	sum := Compute(nil, 24)
	if sum.Total != 0 || len(sum.Models) != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if sum.WindowHours != 24 {
		t.Errorf("window = %d", sum.WindowHours)
	}
}

func TestComputeAggregates(t *testing.T) {
	results := []store.ResultRecord{
		{Provider: "OpenAI", Model: "gpt-4o", Success: true, TotalLatencyMs: 1000,
			TTFTMs: fptr(200), TPS: fptr(50), InputTokens: 450, OutputTokens: 100, CostUSD: 0.01},
		{Provider: "OpenAI", Model: "gpt-4o", Success: true, TotalLatencyMs: 2000,
			TTFTMs: fptr(400), TPS: fptr(60), InputTokens: 450, OutputTokens: 110, CostUSD: 0.02},
		{Provider: "OpenAI", Model: "gpt-4o", Success: false, TotalLatencyMs: 600},
		{Provider: "Groq", Model: "llama-3.1-8b-instant", Success: true, TotalLatencyMs: 300,
			TTFTMs: fptr(50), TPS: fptr(500), InputTokens: 450, OutputTokens: 80, CostUSD: 0.001},
	}

	sum := Compute(results, 24)
	if sum.Total != 4 || sum.Successful != 3 || sum.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if len(sum.Models) != 2 {
		t.Fatalf("expected 2 model rows, got %d", len(sum.Models))
	}

	// Sorted by provider then model, so Groq first.
	if sum.Models[0].Provider != "Groq" {
		t.Errorf("expected Groq first, got %s", sum.Models[0].Provider)
	}

	gpt := sum.Models[1]
	if gpt.Attempts != 3 || gpt.Successes != 2 {
		t.Errorf("unexpected counts: %+v", gpt)
	}
	if gpt.SuccessRate < 0.66 || gpt.SuccessRate > 0.67 {
		t.Errorf("success rate = %v", gpt.SuccessRate)
	}
	if gpt.AvgLatencyMs != 1200 {
		t.Errorf("avg latency = %v, want 1200", gpt.AvgLatencyMs)
	}
	// TTFT averaged over the two rows that have one.
	if gpt.AvgTTFTMs == nil || *gpt.AvgTTFTMs != 300 {
		t.Errorf("avg ttft = %v, want 300", gpt.AvgTTFTMs)
	}
	if gpt.AvgTPS == nil || *gpt.AvgTPS != 55 {
		t.Errorf("avg tps = %v, want 55", gpt.AvgTPS)
	}
	if gpt.TotalTokens != 1110 {
		t.Errorf("tokens = %d, want 1110", gpt.TotalTokens)
	}
}

func TestComputeNoMeasurementsNoAverages(t *testing.T) {
	results := []store.ResultRecord{
		{Provider: "Mistral", Model: "mistral-large-latest", Success: false, TotalLatencyMs: 100},
	}
	sum := Compute(results, 1)
	if sum.Models[0].AvgTTFTMs != nil || sum.Models[0].AvgTPS != nil {
		t.Error("rows without TTFT/TPS must not produce averages")
	}
}
