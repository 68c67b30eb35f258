package store

import (
	"context"
	"time"
)

// Queue item states as they appear on the wire and in the database.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DefaultMaxAttempts is the retry budget for a queue item.
const DefaultMaxAttempts = 3

// Store is the persistence contract the benchmark core runs against.
// Relational in behavior, not necessarily in implementation: SQLite here,
// but any backend honoring these semantics (unique constraints, race-safe
// claim, append-only prices) satisfies the runner.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, runName, triggeredBy string) (string, error)
	FinishRun(ctx context.Context, runID string) error
	ListRuns(ctx context.Context) ([]RunRecord, error)

	// Providers and models
	GetOrCreateProvider(ctx context.Context, name, baseURL, logoURL string) (string, error)
	GetOrCreateModel(ctx context.Context, rawName, providerID string, contextWindow *int) (string, error)
	UpsertModelsFromDiscovery(ctx context.Context, providerName string, rawNames []string) error
	SetModelsActive(ctx context.Context, providerName string, names []string) error
	ListActiveModels(ctx context.Context) ([]ModelRecord, error)

	// Pricing
	GetModelPricing(ctx context.Context, providerName, modelName string) (*Pricing, error)
	SavePrice(ctx context.Context, providerID, modelID string, inputPerM, outputPerM float64) (string, error)

	// Results and errors
	SaveBenchmark(ctx context.Context, rec ResultRecord) (string, error)
	ResultsByRun(ctx context.Context, runID string) ([]ResultRecord, error)
	RecentResults(ctx context.Context, hours int) ([]ResultRecord, error)
	SaveRunError(ctx context.Context, rec ErrorRecord) (string, error)

	// Queue
	EnqueueBenchmarks(ctx context.Context, runID string, pairs [][2]string) error
	GetPendingQueueItems(ctx context.Context, limit int) ([]QueueItem, error)
	MarkQueueItemProcessing(ctx context.Context, id string) (bool, error)
	MarkQueueItemCompleted(ctx context.Context, id string) error
	MarkQueueItemFailed(ctx context.Context, id, errorMessage string) error
	GetQueueItem(ctx context.Context, id string) (*QueueItem, error)
	GetQueueStats(ctx context.Context, runID string) (QueueStats, error)

	// Spend accounting for the budget breaker.
	GetRecentSpending(ctx context.Context, hours int) (float64, error)

	// Schema lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RunRecord is one named benchmark run.
type RunRecord struct {
	ID          string     `json:"id"`
	RunName     string     `json:"run_name"`
	TriggeredBy string     `json:"triggered_by"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// ProviderRecord is the persisted form of an upstream provider.
type ProviderRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"base_url,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

// ModelRecord is the persisted form of a model. Name is always stored
// normalized (see internal/modelname).
type ModelRecord struct {
	ID            string     `json:"id"`
	ProviderID    string     `json:"provider_id"`
	Name          string     `json:"name"`
	ContextWindow *int       `json:"context_window,omitempty"`
	Active        bool       `json:"active"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
}

// Pricing is the latest $/1M-token rates for a (provider, model).
type Pricing struct {
	InputPerM  float64 `json:"input"`
	OutputPerM float64 `json:"output"`
}

// ResultRecord is one persisted benchmark outcome. Provider and Model are
// the legacy text columns; ProviderID/ModelID the relational references.
type ResultRecord struct {
	ID              string    `json:"id"`
	RunID           string    `json:"run_id"`
	ProviderID      *string   `json:"provider_id,omitempty"`
	ModelID         *string   `json:"model_id,omitempty"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	ReasoningTokens *int      `json:"reasoning_tokens,omitempty"`
	TotalLatencyMs  float64   `json:"total_latency_ms"`
	TTFTMs          *float64  `json:"ttft_ms,omitempty"`
	TPS             *float64  `json:"tps,omitempty"`
	CostUSD         float64   `json:"cost_usd"`
	StatusCode      *int      `json:"status_code,omitempty"`
	Success         bool      `json:"success"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	ResponseText    *string   `json:"response_text,omitempty"`
	CreatedAt       time.Time `json:"created_at"`

	// Prompt is the request text, used only for token estimation inside
	// SaveBenchmark. Never persisted.
	Prompt string `json:"-"`
}

// ErrorRecord is one persisted failed attempt.
type ErrorRecord struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	ProviderID   *string   `json:"provider_id,omitempty"`
	ModelID      *string   `json:"model_id,omitempty"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	ErrorType    string    `json:"error_type"`
	ErrorMessage string    `json:"error_message"`
	StatusCode   *int      `json:"status_code,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// QueueItem is one intended (run, provider, model) attempt.
type QueueItem struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	ProviderKey  string     `json:"provider_key"`
	ModelName    string     `json:"model_name"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	MaxAttempts  int        `json:"max_attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// QueueStats is the per-run count of items in each state.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
