// Package ratelimit provides the process-wide provider call budget.
//
// The upstream data provider enforces a per-minute quota shared by every
// table run in the process. The limiter gates provider calls only; writes
// and retention pruning of already-fetched data are never delayed by it.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding one-minute-window rate limiter.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	calls  []time.Time
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

// New creates a limiter allowing maxPerMinute calls in any 60s window.
// maxPerMinute <= 0 disables limiting.
func New(maxPerMinute int) *Limiter {
	return &Limiter{
		max:    maxPerMinute,
		window: time.Minute,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait blocks until a call slot is available or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.max <= 0 {
		return nil
	}
	for {
		l.mu.Lock()
		now := l.now()
		cutoff := now.Add(-l.window)
		i := 0
		for i < len(l.calls) && !l.calls[i].After(cutoff) {
			i++
		}
		l.calls = l.calls[i:]

		if len(l.calls) < l.max {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.calls[0].Add(l.window).Sub(now) + 20*time.Millisecond
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
