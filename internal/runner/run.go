package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/jordanhubbard/benchhub/internal/store"
)

// RunManager is the thin run lifecycle wrapper. Kept as its own seam so
// per-run configuration or finish-time aggregation lands in one place.
type RunManager struct {
	store store.Store
	now   func() time.Time
}

func NewRunManager(st store.Store) *RunManager {
	return &RunManager{store: st, now: time.Now}
}

// Start creates a new named run and returns its id. An empty name gets
// the timestamped default.
func (m *RunManager) Start(ctx context.Context, runName, triggeredBy string) (string, error) {
	if runName == "" {
		runName = fmt.Sprintf("benchmark-%s", m.now().UTC().Format("2006-01-02T15:04:05Z"))
	}
	return m.store.CreateRun(ctx, runName, triggeredBy)
}

// End finalizes a run. Ending an already-finished run is an error.
func (m *RunManager) End(ctx context.Context, runID string) error {
	return m.store.FinishRun(ctx, runID)
}
