// Package ratelimit provides the shared cooldown gate for upstream systems
// whose usage policy bounds how often they may be called process-wide.
package ratelimit

import (
	"sync"
	"time"
)

// Gate enforces a minimum interval between calls across every caller sharing
// the gate. It holds only the last successful acquisition time; callers that
// arrive inside the cooldown are expected to serve cached data instead of
// waiting.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	lastCall time.Time
	now      func() time.Time
}

// NewGate creates a gate with the given minimum inter-call interval.
func NewGate(interval time.Duration) *Gate {
	return &Gate{
		interval: interval,
		now:      time.Now,
	}
}

// NewGateWithClock creates a gate with an injected clock, for tests.
func NewGateWithClock(interval time.Duration, now func() time.Time) *Gate {
	return &Gate{
		interval: interval,
		now:      now,
	}
}

// TryAcquire reports whether a call is allowed now. On success the gate's
// timestamp advances, starting a new cooldown; on failure the caller must not
// hit the upstream.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastCall.IsZero() && now.Sub(g.lastCall) < g.interval {
		return false
	}
	g.lastCall = now
	return true
}

// Remaining returns how long until the next call is allowed. Zero means a
// call would be permitted immediately.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastCall.IsZero() {
		return 0
	}
	remaining := g.interval - g.now().Sub(g.lastCall)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Interval returns the configured minimum inter-call interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}
