// Package translate implements the batch subtitle translation engine:
// a rate-limited, concurrency-bounded dispatcher that sends chunks of
// subtitle blocks to an LLM provider, parses the replies back onto the
// blocks, and iteratively retries whatever came back unusable.
package translate

import (
	"context"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Rate limiter
// ---------------------------------------------------------------------------

// Limiter spaces outgoing requests so that no two admitted requests begin
// less than one interval apart, measured globally across all workers.
// The only shared mutable state is the next-eligible-time scalar; the lock
// is held for the arithmetic only, never for the sleep, so workers queue on
// admission order rather than on wall-clock time.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time

	now func() time.Time // injectable for tests
}

// NewLimiter returns a limiter admitting at most rpm requests per minute.
// rpm <= 0 disables limiting.
func NewLimiter(rpm int) *Limiter {
	l := &Limiter{now: time.Now}
	if rpm > 0 {
		l.interval = time.Minute / time.Duration(rpm)
	}
	return l
}

// Acquire blocks the calling worker until its admission slot arrives or ctx
// is canceled. The first caller proceeds immediately; every admission
// advances the shared next-eligible-time by one interval. Starvation under
// sustained load is acceptable; there is no fairness beyond
// first-lock-holder-first-admitted.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}

	var sleep time.Duration
	l.mu.Lock()
	now := l.now()
	if l.next.After(now) {
		sleep = l.next.Sub(now)
		l.next = l.next.Add(l.interval)
	} else {
		l.next = now.Add(l.interval)
	}
	l.mu.Unlock()

	if sleep <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Interval returns the admission interval (0 when unlimited).
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}
