// Package scheduler drives the pipeline without an external cron: a
// fresh queue every 15 minutes (only once the previous one drained) and
// a processing tick every minute. Deployments that trigger the HTTP
// endpoints from real cron set DISABLE_SCHEDULER and skip all of this.
package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/jordanhubbard/benchhub/internal/runner"
	"github.com/jordanhubbard/benchhub/internal/store"
)

const (
	initSchedule    = "@every 15m"
	processSchedule = "@every 1m"
)

// jobTimeout bounds one scheduled invocation. A batch of ten items at the
// reasoning timeout stays well under it.
const jobTimeout = 25 * time.Minute

// Disabled reports whether the env value turns the scheduler off.
func Disabled(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Scheduler owns the cron instance and its two jobs.
type Scheduler struct {
	runner    *runner.Runner
	store     store.Store
	cron      *cron.Cron
	batchSize int
	log       *slog.Logger
}

func New(r *runner.Runner, st store.Store, batchSize int, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:    r,
		store:     st,
		cron:      cron.New(),
		batchSize: batchSize,
		log:       log,
	}
}

// Start registers the jobs and starts the cron loop. Schedules are
// package constants, so registration cannot fail at runtime.
func (s *Scheduler) Start() {
	mustAdd(s.cron, initSchedule, s.initJob)
	mustAdd(s.cron, processSchedule, s.processJob)
	s.cron.Start()
	s.log.Info("scheduler started", "init", initSchedule, "process", processSchedule)
}

// Stop halts the cron loop. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

func mustAdd(c *cron.Cron, spec string, job func()) {
	if err := c.AddFunc(spec, job); err != nil {
		panic("scheduler: bad cron spec " + spec + ": " + err.Error())
	}
}

// initJob starts a new run once the queue has drained. Skipping while
// items remain keeps a slow provider from stacking runs.
func (s *Scheduler) initJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	pending, err := s.store.GetPendingQueueItems(ctx, 1)
	if err != nil {
		s.log.Error("scheduled init: queue check failed", "error", err)
		return
	}
	if len(pending) > 0 {
		s.log.Debug("scheduled init skipped, queue not drained")
		return
	}

	runID, err := s.runner.InitQueue(ctx, "", "scheduler")
	if err != nil {
		if err == runner.ErrBudgetExceeded {
			s.log.Warn("scheduled init refused, budget exceeded")
			return
		}
		s.log.Error("scheduled init failed", "error", err)
		return
	}
	s.log.Info("scheduled run initialized", "run_id", runID)
}

func (s *Scheduler) processJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	res, err := s.runner.ProcessBatch(ctx, s.batchSize)
	if err != nil {
		s.log.Error("scheduled batch failed", "error", err)
		return
	}
	if res.Status == runner.StatusIdle {
		return
	}
	s.log.Info("scheduled batch done", "status", res.Status,
		"processed", res.Processed, "successful", res.Successful, "failed", res.Failed)
}
