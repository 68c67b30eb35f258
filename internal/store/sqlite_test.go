package store

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrate(t *testing.T) {
	s := newTestStore(t)
	// Running migrate twice should be idempotent.
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, "nightly", "scheduler")
	if err != nil {
		t.Fatalf("create run failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected run id")
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].FinishedAt != nil {
		t.Error("expected unfinished run")
	}

	if err := s.FinishRun(ctx, id); err != nil {
		t.Fatalf("finish run failed: %v", err)
	}
	runs, _ = s.ListRuns(ctx)
	if runs[0].FinishedAt == nil {
		t.Error("expected finished run")
	}

	// Finishing twice is an error.
	if err := s.FinishRun(ctx, id); err == nil {
		t.Error("expected error finishing run twice")
	}
}

func TestGetOrCreateProviderIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.GetOrCreateProvider(ctx, "OpenAI", "https://api.openai.com/v1", "")
	if err != nil {
		t.Fatalf("create provider failed: %v", err)
	}
	id2, err := s.GetOrCreateProvider(ctx, "OpenAI", "https://api.openai.com/v1", "")
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected same id, got %s and %s", id1, id2)
	}
}

func TestGetOrCreateModelNormalizes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pid, _ := s.GetOrCreateProvider(ctx, "Fireworks AI", "", "")
	id1, err := s.GetOrCreateModel(ctx, "accounts/fireworks/models/llama-v3p3-70b-instruct", pid, nil)
	if err != nil {
		t.Fatalf("create model failed: %v", err)
	}
	// The normalized spelling resolves to the same row.
	id2, err := s.GetOrCreateModel(ctx, "llama-3.3-70b-instruct", pid, nil)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected normalization to dedupe, got %s and %s", id1, id2)
	}
}

func TestSetModelsActiveFlips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertModelsFromDiscovery(ctx, "OpenAI", []string{"gpt-4o", "gpt-4o-mini", "o3"}); err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	active, _ := s.ListActiveModels(ctx)
	if len(active) != 0 {
		t.Fatalf("discovery must insert inactive, got %d active", len(active))
	}

	if err := s.SetModelsActive(ctx, "OpenAI", []string{"gpt-4o-mini", "o3"}); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	active, _ = s.ListActiveModels(ctx)
	if len(active) != 2 {
		t.Fatalf("expected 2 active, got %d", len(active))
	}

	// A second activation with a different set replaces, not accumulates.
	if err := s.SetModelsActive(ctx, "OpenAI", []string{"gpt-4o"}); err != nil {
		t.Fatalf("second activate failed: %v", err)
	}
	active, _ = s.ListActiveModels(ctx)
	if len(active) != 1 || active[0].Name != "gpt-4o" {
		t.Errorf("unexpected active set: %+v", active)
	}
}

func TestPricingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pid, _ := s.GetOrCreateProvider(ctx, "DeepSeek", "", "")
	mid, _ := s.GetOrCreateModel(ctx, "deepseek-chat", pid, nil)

	got, err := s.GetModelPricing(ctx, "DeepSeek", "deepseek-chat")
	if err != nil {
		t.Fatalf("pricing lookup failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil pricing before any save")
	}

	if _, err := s.SavePrice(ctx, pid, mid, 0.27, 1.10); err != nil {
		t.Fatalf("save price failed: %v", err)
	}
	got, err = s.GetModelPricing(ctx, "DeepSeek", "deepseek-chat")
	if err != nil {
		t.Fatalf("pricing lookup failed: %v", err)
	}
	if got == nil || got.InputPerM != 0.27 || got.OutputPerM != 1.10 {
		t.Errorf("unexpected pricing: %+v", got)
	}
}

func TestSavePriceSuppressedWithin24h(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pid, _ := s.GetOrCreateProvider(ctx, "OpenAI", "", "")
	mid, _ := s.GetOrCreateModel(ctx, "gpt-4o", pid, nil)

	id, err := s.SavePrice(ctx, pid, mid, 2.50, 10.00)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected first save to insert")
	}

	// Same day: suppressed, no error.
	id, err = s.SavePrice(ctx, pid, mid, 2.60, 10.40)
	if err != nil {
		t.Fatalf("suppressed save errored: %v", err)
	}
	if id != "" {
		t.Error("expected suppression within 24h")
	}
	got, _ := s.GetModelPricing(ctx, "OpenAI", "gpt-4o")
	if got.InputPerM != 2.50 {
		t.Errorf("suppressed save must not change pricing, got %v", got.InputPerM)
	}

	// 25 hours later the next save goes through.
	base := time.Now()
	s.now = func() time.Time { return base.Add(25 * time.Hour) }
	id, err = s.SavePrice(ctx, pid, mid, 2.60, 10.40)
	if err != nil {
		t.Fatalf("save after window failed: %v", err)
	}
	if id == "" {
		t.Error("expected insert after suppression window")
	}
	got, _ = s.GetModelPricing(ctx, "OpenAI", "gpt-4o")
	if got.InputPerM != 2.60 {
		t.Errorf("expected latest price 2.60, got %v", got.InputPerM)
	}
}

func TestSavePriceRejectsNegative(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SavePrice(context.Background(), "p", "m", -1, 5); err == nil {
		t.Error("expected error for negative rate")
	}
}

func TestSaveBenchmarkTruncatesSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	long := strings.Repeat("x", 500)
	rec := ResultRecord{
		RunID: runID, Provider: "OpenAI", Model: "gpt-4o-mini",
		InputTokens: 450, OutputTokens: 120, TotalLatencyMs: 900,
		Success: true, ResponseText: &long,
	}
	if _, err := s.SaveBenchmark(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	results, err := s.ResultsByRun(ctx, runID)
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := *results[0].ResponseText
	if len([]rune(got)) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 100-rune preview with ellipsis, got %d runes", len([]rune(got)))
	}
}

func TestSaveBenchmarkKeepsFailureText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	long := strings.Repeat("e", 400)
	msg := "upstream returned 500"
	rec := ResultRecord{
		RunID: runID, Provider: "Groq", Model: "llama-3.3-70b-versatile",
		InputTokens: 450, OutputTokens: 0, Success: false,
		ErrorMessage: &msg, ResponseText: &long,
	}
	if _, err := s.SaveBenchmark(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	results, _ := s.ResultsByRun(ctx, runID)
	if len(*results[0].ResponseText) != 400 {
		t.Errorf("failure text must not be truncated, got %d chars", len(*results[0].ResponseText))
	}
}

func TestSaveBenchmarkTokenValidationFlipsSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	resp := "ok"
	rec := ResultRecord{
		RunID: runID, Provider: "OpenRouter", Model: "openai/gpt-4o-mini",
		InputTokens: 3, OutputTokens: 5, Success: true, ResponseText: &resp,
	}
	if _, err := s.SaveBenchmark(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	results, _ := s.ResultsByRun(ctx, runID)
	got := results[0]
	if got.Success {
		t.Error("expected success=false after token validation")
	}
	if got.ErrorMessage == nil || !strings.HasPrefix(*got.ErrorMessage, "Token validation failed: ") {
		t.Errorf("unexpected error message: %v", got.ErrorMessage)
	}
}

func TestSaveBenchmarkEstimatesMissingInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	resp := strings.Repeat("w", 200)
	rec := ResultRecord{
		RunID: runID, Provider: "Together AI", Model: "Qwen/Qwen2.5-72B-Instruct-Turbo",
		InputTokens: 0, OutputTokens: 50, Success: true,
		ResponseText: &resp, Prompt: strings.Repeat("p", 480),
	}
	if _, err := s.SaveBenchmark(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	results, _ := s.ResultsByRun(ctx, runID)
	if results[0].InputTokens != 120 {
		t.Errorf("expected estimated input 120, got %d", results[0].InputTokens)
	}
	if !results[0].Success {
		t.Error("estimate above threshold must remain success")
	}
}

func TestEnqueueDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	pairs := [][2]string{{"openai", "gpt-4o-mini"}, {"groq", "llama-3.1-8b-instant"}}
	if err := s.EnqueueBenchmarks(ctx, runID, pairs); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	// Re-enqueue the same pairs plus one new.
	pairs = append(pairs, [2]string{"deepseek", "deepseek-chat"})
	if err := s.EnqueueBenchmarks(ctx, runID, pairs); err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}

	stats, err := s.GetQueueStats(ctx, runID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Pending != 3 {
		t.Errorf("expected 3 pending, got %d", stats.Pending)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	if err := s.EnqueueBenchmarks(ctx, runID, [][2]string{{"openai", "gpt-4o-mini"}}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	items, _ := s.GetPendingQueueItems(ctx, 10)
	if len(items) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(items))
	}
	id := items[0].ID

	ok, err := s.MarkQueueItemProcessing(ctx, id)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !ok {
		t.Fatal("first claim must succeed")
	}
	ok, err = s.MarkQueueItemProcessing(ctx, id)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if ok {
		t.Error("second claim must lose")
	}

	item, _ := s.GetQueueItem(ctx, id)
	if item.Attempts != 1 {
		t.Errorf("expected attempts=1 after one claim, got %d", item.Attempts)
	}
	if item.Status != StatusProcessing {
		t.Errorf("expected processing, got %s", item.Status)
	}
}

func TestFailureReturnsToPendingUntilExhausted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	if err := s.EnqueueBenchmarks(ctx, runID, [][2]string{{"mistral", "mistral-large-latest"}}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	items, _ := s.GetPendingQueueItems(ctx, 1)
	id := items[0].ID

	// Attempts 1 and 2 go back to pending.
	for i := 1; i <= 2; i++ {
		if ok, _ := s.MarkQueueItemProcessing(ctx, id); !ok {
			t.Fatalf("claim %d lost", i)
		}
		if err := s.MarkQueueItemFailed(ctx, id, "timeout"); err != nil {
			t.Fatalf("fail %d errored: %v", i, err)
		}
		item, _ := s.GetQueueItem(ctx, id)
		if item.Status != StatusPending {
			t.Fatalf("after failure %d expected pending, got %s", i, item.Status)
		}
		if item.Attempts != i {
			t.Fatalf("after failure %d expected attempts=%d, got %d", i, i, item.Attempts)
		}
		if item.CompletedAt != nil {
			t.Fatal("retryable failure must not set completed_at")
		}
	}

	// Attempt 3 is terminal.
	if ok, _ := s.MarkQueueItemProcessing(ctx, id); !ok {
		t.Fatal("third claim lost")
	}
	if err := s.MarkQueueItemFailed(ctx, id, "timeout"); err != nil {
		t.Fatalf("terminal fail errored: %v", err)
	}
	item, _ := s.GetQueueItem(ctx, id)
	if item.Status != StatusFailed {
		t.Errorf("expected failed, got %s", item.Status)
	}
	if item.CompletedAt == nil {
		t.Error("terminal failure must set completed_at")
	}
	if item.ErrorMessage == nil || *item.ErrorMessage != "timeout" {
		t.Errorf("unexpected error message: %v", item.ErrorMessage)
	}
}

func TestCompleteQueueItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	_ = s.EnqueueBenchmarks(ctx, runID, [][2]string{{"cerebras", "llama-3.3-70b"}})
	items, _ := s.GetPendingQueueItems(ctx, 1)
	id := items[0].ID

	if ok, _ := s.MarkQueueItemProcessing(ctx, id); !ok {
		t.Fatal("claim lost")
	}
	if err := s.MarkQueueItemCompleted(ctx, id); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	stats, _ := s.GetQueueStats(ctx, runID)
	if stats.Completed != 1 || stats.Pending != 0 || stats.Processing != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetQueueItemMissing(t *testing.T) {
	s := newTestStore(t)
	item, err := s.GetQueueItem(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Error("expected nil for missing item")
	}
}

func TestPendingItemsOrderedAndLimited(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	pairs := [][2]string{
		{"openai", "gpt-4o-mini"},
		{"openai", "gpt-4o"},
		{"anthropic", "claude-haiku-4-5-20251001"},
	}
	if err := s.EnqueueBenchmarks(ctx, runID, pairs); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	items, err := s.GetPendingQueueItems(ctx, 2)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ModelName != "gpt-4o-mini" {
		t.Errorf("expected insertion order, got %s first", items[0].ModelName)
	}
}

func TestRecentSpending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	for _, cost := range []float64{0.12, 0.08} {
		resp := "three bullet points"
		rec := ResultRecord{
			RunID: runID, Provider: "OpenAI", Model: "gpt-4o",
			InputTokens: 450, OutputTokens: 90, CostUSD: cost,
			Success: true, ResponseText: &resp,
		}
		if _, err := s.SaveBenchmark(ctx, rec); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	total, err := s.GetRecentSpending(ctx, 24)
	if err != nil {
		t.Fatalf("spending failed: %v", err)
	}
	if total < 0.199 || total > 0.201 {
		t.Errorf("expected ~0.20, got %v", total)
	}

	// Empty window.
	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	total, err = s.GetRecentSpending(ctx, 24)
	if err != nil {
		t.Fatalf("spending failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 outside window, got %v", total)
	}
}

func TestRecentResultsWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	resp := "summary"
	rec := ResultRecord{
		RunID: runID, Provider: "Google", Model: "models/gemini-2.5-flash",
		InputTokens: 450, OutputTokens: 80, Success: true, ResponseText: &resp,
	}
	if _, err := s.SaveBenchmark(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	recent, err := s.RecentResults(ctx, 24)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("expected 1 recent result, got %d", len(recent))
	}
	if recent[0].Model != "gemini-2.5-flash" {
		t.Errorf("expected normalized model name, got %s", recent[0].Model)
	}

	s.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	recent, _ = s.RecentResults(ctx, 24)
	if len(recent) != 0 {
		t.Errorf("expected 0 results outside window, got %d", len(recent))
	}
}

func TestSaveRunError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, _ := s.CreateRun(ctx, "t", "api")
	code := 429
	id, err := s.SaveRunError(ctx, ErrorRecord{
		RunID: runID, Provider: "Groq", Model: "llama-3.3-70b-versatile",
		ErrorType: "RATE_LIMIT", ErrorMessage: "429 from upstream", StatusCode: &code,
	})
	if err != nil {
		t.Fatalf("save run error failed: %v", err)
	}
	if id == "" {
		t.Error("expected error row id")
	}
}
