package ratelimit

import (
	"context"
	"testing"
	"time"
)

// fakeClock drives the limiter deterministically: sleeps advance time
// instead of blocking.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.t = c.t.Add(d)
	return nil
}

func newTestLimiter(max int) (*Limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)}
	l := New(max)
	l.now = clk.now
	l.sleep = clk.sleep
	return l, clk
}

func TestLimiter_UnderBudgetNeverSleeps(t *testing.T) {
	l, clk := newTestLimiter(10)
	start := clk.t

	for i := 0; i < 10; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if !clk.t.Equal(start) {
		t.Errorf("clock advanced %v, want no sleeping under budget", clk.t.Sub(start))
	}
}

func TestLimiter_BlocksAtBudget(t *testing.T) {
	l, clk := newTestLimiter(3)
	start := clk.t

	for i := 0; i < 4; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// The 4th call must have waited for the first slot to leave the window.
	if clk.t.Sub(start) < time.Minute {
		t.Errorf("4th call waited %v, want >= 1m", clk.t.Sub(start))
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	l, clk := newTestLimiter(2)

	_ = l.Wait(context.Background())
	_ = l.Wait(context.Background())

	// After the window passes, old calls no longer count.
	clk.t = clk.t.Add(61 * time.Second)
	start := clk.t
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if !clk.t.Equal(start) {
		t.Errorf("call after window slept %v, want 0", clk.t.Sub(start))
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l, clk := newTestLimiter(0)
	start := clk.t
	for i := 0; i < 1000; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if !clk.t.Equal(start) {
		t.Error("disabled limiter must never sleep")
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := New(1)
	_ = l.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() with cancelled context expected error")
	}
}
