// Package runner drives the benchmark pipeline: it populates the queue
// from the catalog and processes claimed items through provider adapters
// into persisted results. The store's claim transition is the only
// serialization point, so any number of runner invocations may overlap.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jordanhubbard/benchhub/internal/budget"
	"github.com/jordanhubbard/benchhub/internal/catalog"
	"github.com/jordanhubbard/benchhub/internal/metrics"
	"github.com/jordanhubbard/benchhub/internal/pricing"
	"github.com/jordanhubbard/benchhub/internal/providers"
	"github.com/jordanhubbard/benchhub/internal/ratelimit"
	"github.com/jordanhubbard/benchhub/internal/store"
)

// Batch size bounds. Batches stay small so a cron-driven caller gets a
// bounded wall-clock per invocation.
const (
	DefaultBatchSize = 10
	MaxBatchSize     = 50
)

// Batch outcome statuses.
const (
	StatusAborted   = "aborted"
	StatusIdle      = "idle"
	StatusCompleted = "completed"
)

// ErrBudgetExceeded is returned by InitQueue when the breaker is tripped.
var ErrBudgetExceeded = errors.New("budget exceeded")

// BatchResult summarizes one ProcessBatch invocation.
type BatchResult struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Processed  int    `json:"processed"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
}

// AdapterSource resolves provider keys to adapters.
type AdapterSource interface {
	Get(key string) (providers.Adapter, bool)
}

// BudgetChecker is the slice of the budget breaker the runner needs.
type BudgetChecker interface {
	Check(ctx context.Context) budget.Status
}

// Runner executes queue items against provider adapters.
type Runner struct {
	store    store.Store
	adapters AdapterSource
	pricing  *pricing.Service
	budget   BudgetChecker
	pacer    *ratelimit.Pacer
	metrics  *metrics.Registry
	runs     *RunManager
	log      *slog.Logger
}

func New(st store.Store, adapters AdapterSource, pr *pricing.Service, bc BudgetChecker,
	pacer *ratelimit.Pacer, m *metrics.Registry, log *slog.Logger) *Runner {
	return &Runner{
		store:    st,
		adapters: adapters,
		pricing:  pr,
		budget:   bc,
		pacer:    pacer,
		metrics:  m,
		runs:     NewRunManager(st),
		log:      log,
	}
}

// InitQueue starts a run and enqueues one pending item per active
// (provider, model) pair. It performs no benchmark work. An empty
// runName gets the timestamped default. Returns ErrBudgetExceeded
// without creating anything when the breaker is tripped.
func (r *Runner) InitQueue(ctx context.Context, runName, triggeredBy string) (string, error) {
	if st := r.budget.Check(ctx); st.ShouldAbort {
		r.log.Warn("queue init refused", "reason", "budget_exceeded",
			"spend", st.CurrentSpend, "cap", st.BudgetCap)
		return "", ErrBudgetExceeded
	}

	runID, err := r.runs.Start(ctx, runName, triggeredBy)
	if err != nil {
		return "", err
	}
	pairs := catalog.Pairs()
	if err := r.store.EnqueueBenchmarks(ctx, runID, pairs); err != nil {
		return "", err
	}
	r.log.Info("benchmark queue initialized", "run_id", runID, "items", len(pairs), "triggered_by", triggeredBy)
	return runID, nil
}

// ProcessBatch claims and executes up to batchSize pending items. Items
// are processed sequentially; spacing between calls to one provider comes
// from the pacer. Runs whose queues drain during this batch are finalized.
func (r *Runner) ProcessBatch(ctx context.Context, batchSize int) (BatchResult, error) {
	if batchSize < 1 || batchSize > MaxBatchSize {
		return BatchResult{}, fmt.Errorf("batch size %d out of range [1, %d]", batchSize, MaxBatchSize)
	}

	st := r.budget.Check(ctx)
	r.metrics.BudgetSpendUSD.Set(st.CurrentSpend)
	if st.ShouldAbort {
		r.metrics.BatchesTotal.WithLabelValues(StatusAborted).Inc()
		r.log.Warn("batch aborted", "reason", "budget_exceeded",
			"spend", st.CurrentSpend, "cap", st.BudgetCap)
		return BatchResult{Status: StatusAborted, Reason: "budget_exceeded"}, nil
	}

	items, err := r.store.GetPendingQueueItems(ctx, batchSize)
	if err != nil {
		return BatchResult{}, err
	}
	if len(items) == 0 {
		r.metrics.BatchesTotal.WithLabelValues(StatusIdle).Inc()
		return BatchResult{Status: StatusIdle}, nil
	}

	res := BatchResult{Status: StatusCompleted}
	runIDs := make(map[string]bool)
	for _, item := range items {
		runIDs[item.RunID] = true
		switch r.processItem(ctx, item) {
		case itemSucceeded:
			res.Processed++
			res.Successful++
		case itemFailed:
			res.Processed++
			res.Failed++
		case itemSkipped:
		}
	}

	r.finishDrainedRuns(ctx, runIDs)
	r.metrics.BatchesTotal.WithLabelValues(StatusCompleted).Inc()
	r.log.Info("batch completed", "processed", res.Processed,
		"successful", res.Successful, "failed", res.Failed)
	return res, nil
}

type itemOutcome int

const (
	itemSucceeded itemOutcome = iota
	itemFailed
	itemSkipped
)

func (r *Runner) processItem(ctx context.Context, item store.QueueItem) itemOutcome {
	log := r.log.With("queue_id", item.ID, "provider", item.ProviderKey, "model", item.ModelName)

	if item.Attempts >= item.MaxAttempts {
		if err := r.store.MarkQueueItemFailed(ctx, item.ID, "Max retry attempts exceeded"); err != nil {
			log.Error("failed to retire exhausted item", "error", err)
			return itemSkipped
		}
		return itemFailed
	}

	claimed, err := r.store.MarkQueueItemProcessing(ctx, item.ID)
	if err != nil {
		log.Error("claim failed", "error", err)
		return itemSkipped
	}
	if !claimed {
		// Another worker won the item between fetch and claim.
		return itemSkipped
	}

	prov, err := catalog.Lookup(item.ProviderKey)
	if err != nil {
		r.recordFailure(ctx, item, nil, nil, providers.ErrorInfo{
			Type: providers.ErrInit, Message: err.Error(),
		})
		return itemFailed
	}
	adapter, ok := r.adapters.Get(item.ProviderKey)
	if !ok {
		r.recordFailure(ctx, item, nil, nil, providers.ErrorInfo{
			Type:    providers.ErrInit,
			Message: "no adapter registered for provider " + item.ProviderKey,
		})
		return itemFailed
	}

	providerID, err := r.store.GetOrCreateProvider(ctx, prov.DisplayName, prov.BaseURL, "")
	if err != nil {
		log.Error("provider resolution failed", "error", err)
		r.markFailed(ctx, item.ID, "provider resolution failed: "+err.Error())
		return itemFailed
	}
	modelID, err := r.store.GetOrCreateModel(ctx, item.ModelName, providerID, nil)
	if err != nil {
		log.Error("model resolution failed", "error", err)
		r.markFailed(ctx, item.ID, "model resolution failed: "+err.Error())
		return itemFailed
	}

	if err := r.pacer.Wait(ctx, item.ProviderKey); err != nil {
		r.markFailed(ctx, item.ID, "dispatch cancelled: "+err.Error())
		return itemFailed
	}

	env := adapter.Benchmark(ctx, item.ModelName)
	r.observe(env)

	if !env.Success {
		log.Warn("benchmark failed", "error_type", env.Err.Type, "error", env.Err.Message,
			"attempt", item.Attempts+1, "max_attempts", item.MaxAttempts)
		r.recordFailure(ctx, item, &providerID, &modelID, *env.Err)
		return itemFailed
	}

	price, _, err := r.pricing.Get(ctx, item.ProviderKey, item.ModelName)
	if err != nil {
		log.Warn("pricing lookup failed, cost recorded as zero", "error", err)
	}
	cost := pricing.Cost(price, env.Metrics.InputTokens, env.Metrics.OutputTokens)
	r.metrics.CostUSD.WithLabelValues(item.ProviderKey, item.ModelName).Add(cost)

	okStatus := 200
	rec := store.ResultRecord{
		RunID:           item.RunID,
		ProviderID:      &providerID,
		ModelID:         &modelID,
		Provider:        prov.DisplayName,
		Model:           item.ModelName,
		InputTokens:     env.Metrics.InputTokens,
		OutputTokens:    env.Metrics.OutputTokens,
		ReasoningTokens: env.Metrics.ReasoningTokens,
		TotalLatencyMs:  env.Metrics.TotalLatencyMs,
		TTFTMs:          env.Metrics.TTFTMs,
		TPS:             env.Metrics.TPS,
		CostUSD:         cost,
		StatusCode:      &okStatus,
		Success:         true,
		ResponseText:    &env.Response,
		Prompt:          catalog.SystemPrompt + "\n\n" + catalog.BenchmarkPrompt,
	}
	if _, err := r.store.SaveBenchmark(ctx, rec); err != nil {
		log.Error("result persistence failed", "error", err)
		r.markFailed(ctx, item.ID, "result persistence failed: "+err.Error())
		return itemFailed
	}

	// Token validation inside SaveBenchmark may have rewritten the row to
	// success=false; queue-wise the item is still done, the adapter call
	// happened and its outcome is recorded.
	if err := r.store.MarkQueueItemCompleted(ctx, item.ID); err != nil {
		log.Error("failed to complete queue item", "error", err)
	}
	log.Info("benchmark completed",
		"latency_ms", env.Metrics.TotalLatencyMs,
		"input_tokens", env.Metrics.InputTokens,
		"output_tokens", env.Metrics.OutputTokens,
		"cost_usd", cost)
	return itemSucceeded
}

func (r *Runner) observe(env providers.Envelope) {
	outcome := "success"
	if !env.Success {
		outcome = "failure"
		r.metrics.ErrorsTotal.WithLabelValues(env.Provider, env.Err.Type).Inc()
	}
	r.metrics.BenchmarksTotal.WithLabelValues(env.Provider, env.Model, outcome).Inc()
	r.metrics.LatencyMs.WithLabelValues(env.Provider, env.Model).Observe(env.Metrics.TotalLatencyMs)
	if env.Metrics.TTFTMs != nil {
		r.metrics.TTFTMs.WithLabelValues(env.Provider, env.Model).Observe(*env.Metrics.TTFTMs)
	}
	if env.Metrics.TPS != nil {
		r.metrics.TokensPerSec.WithLabelValues(env.Provider, env.Model).Observe(*env.Metrics.TPS)
	}
}

func (r *Runner) recordFailure(ctx context.Context, item store.QueueItem, providerID, modelID *string, info providers.ErrorInfo) {
	errType := info.Type
	if errType == "" {
		errType = providers.ErrUnknown
	}
	_, err := r.store.SaveRunError(ctx, store.ErrorRecord{
		RunID:        item.RunID,
		ProviderID:   providerID,
		ModelID:      modelID,
		Provider:     item.ProviderKey,
		Model:        item.ModelName,
		ErrorType:    errType,
		ErrorMessage: info.Message,
		StatusCode:   info.StatusCode,
	})
	if err != nil {
		r.log.Error("failed to persist run error", "queue_id", item.ID, "error", err)
	}
	r.markFailed(ctx, item.ID, info.Message)
}

func (r *Runner) markFailed(ctx context.Context, id, msg string) {
	if err := r.store.MarkQueueItemFailed(ctx, id, msg); err != nil {
		r.log.Error("failed to mark queue item failed", "queue_id", id, "error", err)
	}
}

// finishDrainedRuns finalizes runs whose queues hold no pending or
// processing items. Racing finalizers are harmless: FinishRun's
// conditional update lets exactly one win.
func (r *Runner) finishDrainedRuns(ctx context.Context, runIDs map[string]bool) {
	for runID := range runIDs {
		stats, err := r.store.GetQueueStats(ctx, runID)
		if err != nil {
			r.log.Error("queue stats failed", "run_id", runID, "error", err)
			continue
		}
		r.metrics.QueueDepth.WithLabelValues(store.StatusPending).Set(float64(stats.Pending))
		r.metrics.QueueDepth.WithLabelValues(store.StatusProcessing).Set(float64(stats.Processing))
		r.metrics.QueueDepth.WithLabelValues(store.StatusCompleted).Set(float64(stats.Completed))
		r.metrics.QueueDepth.WithLabelValues(store.StatusFailed).Set(float64(stats.Failed))
		if stats.Pending == 0 && stats.Processing == 0 {
			if err := r.runs.End(ctx, runID); err == nil {
				r.log.Info("run finished", "run_id", runID,
					"completed", stats.Completed, "failed", stats.Failed)
			}
		}
	}
}
