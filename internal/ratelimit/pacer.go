package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between dispatches to the same key.
// The runner keys it by provider, so consecutive queue items against one
// upstream are spaced out while different upstreams proceed unimpeded.
type Pacer struct {
	interval time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	next map[string]time.Time
}

// NewPacer creates a pacer with the given minimum spacing. Zero or
// negative spacing disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
		next:     make(map[string]time.Time),
	}
}

// Wait blocks until the key's next dispatch slot, or until the context is
// done. The slot is reserved before sleeping, so concurrent waiters for
// one key serialize at interval spacing.
func (p *Pacer) Wait(ctx context.Context, key string) error {
	if p.interval <= 0 {
		return nil
	}
	p.mu.Lock()
	now := p.now()
	slot := p.next[key]
	if slot.Before(now) {
		slot = now
	}
	p.next[key] = slot.Add(p.interval)
	p.mu.Unlock()

	if d := slot.Sub(now); d > 0 {
		return p.sleep(ctx, d)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
