// Package budget is the spend circuit breaker: a rolling 24-hour cap on
// total benchmark cost. It fails open; a broken store must never be the
// thing that stops a benchmark run, it only stops the ability to notice
// overspend.
package budget

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCapUSD is the rolling-window spend cap when none is configured.
const DefaultCapUSD = 15.0

// windowHours is the spend accounting window.
const windowHours = 24

// cacheTTL bounds how often the breaker hits the database. Batch
// processing checks the budget once per batch, so a short TTL keeps the
// spend view fresh without a query per item.
const cacheTTL = 30 * time.Second

// Status is one budget observation.
type Status struct {
	CurrentSpend float64 `json:"current_spend"`
	BudgetCap    float64 `json:"budget_cap"`
	Remaining    float64 `json:"remaining"`
	PercentUsed  float64 `json:"percent_used"`
	ShouldAbort  bool    `json:"should_abort"`
}

// SpendReader is the slice of the store the breaker needs.
type SpendReader interface {
	GetRecentSpending(ctx context.Context, hours int) (float64, error)
}

// Breaker checks rolling spend against the cap.
type Breaker struct {
	store SpendReader
	cap   float64
	log   *slog.Logger
	now   func() time.Time

	mu       sync.Mutex
	cached   float64
	cachedAt time.Time
}

// New creates a breaker. A cap <= 0 selects the default.
func New(st SpendReader, capUSD float64, log *slog.Logger) *Breaker {
	if capUSD <= 0 {
		capUSD = DefaultCapUSD
	}
	return &Breaker{store: st, cap: capUSD, log: log, now: time.Now}
}

// Check returns the current budget status. Spend at or above the cap sets
// ShouldAbort. Store errors are logged and treated as zero spend.
func (b *Breaker) Check(ctx context.Context) Status {
	spend := b.spend(ctx)
	st := Status{
		CurrentSpend: spend,
		BudgetCap:    b.cap,
		Remaining:    b.cap - spend,
		PercentUsed:  spend / b.cap * 100,
		ShouldAbort:  spend >= b.cap,
	}
	if st.Remaining < 0 {
		st.Remaining = 0
	}
	return st
}

func (b *Breaker) spend(ctx context.Context) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.cachedAt.IsZero() && b.now().Sub(b.cachedAt) < cacheTTL {
		return b.cached
	}
	spend, err := b.store.GetRecentSpending(ctx, windowHours)
	if err != nil {
		// Fail open with zero spend. Returning the stale cache instead
		// could keep aborting on an over-cap reading the store can no
		// longer confirm.
		b.log.Warn("budget check failed, failing open", "error", err)
		return 0
	}
	b.cached = spend
	b.cachedAt = b.now()
	return spend
}
