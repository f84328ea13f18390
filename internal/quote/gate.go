package quote

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum interval between upstream calls sharing a key.
// Each caller reserves the next free slot under the mutex and then waits
// for it outside the lock, so concurrent callers queue up one interval
// apart instead of all firing after a single wait.
type Gate struct {
	interval time.Duration
	clock    Clock
	sleeper  Sleeper

	mu   sync.Mutex
	next map[string]time.Time // key → earliest time of the next call
}

// NewGate creates a gate with the given minimum interval.
func NewGate(interval time.Duration, clock Clock, sleeper Sleeper) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	if sleeper == nil {
		sleeper = SystemClock{}
	}
	return &Gate{
		interval: interval,
		clock:    clock,
		sleeper:  sleeper,
		next:     make(map[string]time.Time),
	}
}

// Wait blocks until the caller's reserved slot for key arrives. A
// cancelled wait keeps its slot; the next caller simply waits one more
// interval.
func (g *Gate) Wait(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	now := g.clock.Now()
	slot := g.next[key]
	if slot.Before(now) {
		slot = now
	}
	g.next[key] = slot.Add(g.interval)
	g.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}
	return g.sleeper.Sleep(ctx, wait)
}
