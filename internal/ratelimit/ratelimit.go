// Package ratelimit implements fixed-window admission control keyed by
// client identity. It protects the metered upstream from runaway cost;
// it is not a security boundary. State lives in process memory and
// resets on restart.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of an admission check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // suggested wait when denied; equals the window size
}

// record is the per-identity fixed-window counter.
type record struct {
	count   int
	resetAt time.Time
}

// Limiter admits requests under a fixed-window ceiling per identity.
// Expired records are swept opportunistically on access; there is no
// background timer.
type Limiter struct {
	mu        sync.Mutex
	records   map[string]*record
	window    time.Duration
	ceiling   int
	nextSweep time.Time

	now func() time.Time // overridable for tests
}

// New creates a Limiter with the given window and per-window ceiling.
func New(window time.Duration, ceiling int) *Limiter {
	return &Limiter{
		records: make(map[string]*record),
		window:  window,
		ceiling: ceiling,
		now:     time.Now,
	}
}

// Allow checks and updates the window for identity. When no record
// exists or the window elapsed, the record resets with count 1. At the
// ceiling the request is denied without incrementing.
func (l *Limiter) Allow(identity string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	rec, ok := l.records[identity]
	if !ok || now.After(rec.resetAt) {
		l.records[identity] = &record{count: 1, resetAt: now.Add(l.window)}
		return Result{Allowed: true, Limit: l.ceiling, Remaining: l.ceiling - 1}
	}

	if rec.count >= l.ceiling {
		return Result{
			Allowed:    false,
			Limit:      l.ceiling,
			Remaining:  0,
			RetryAfter: l.window,
		}
	}

	rec.count++
	return Result{Allowed: true, Limit: l.ceiling, Remaining: l.ceiling - rec.count}
}

// Window returns the configured window size.
func (l *Limiter) Window() time.Duration { return l.window }

// Len returns the current record count, for metrics and tests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// sweepLocked drops expired records at most once per window, bounding
// map growth without a background goroutine. Caller holds l.mu.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(l.window)
	for k, rec := range l.records {
		if now.After(rec.resetAt) {
			delete(l.records, k)
		}
	}
}
