package translate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiterDisabled(t *testing.T) {
	for _, rpm := range []int{0, -5} {
		l := NewLimiter(rpm)
		if l.Interval() != 0 {
			t.Errorf("rpm=%d: interval = %v, want 0", rpm, l.Interval())
		}
		start := time.Now()
		for i := 0; i < 100; i++ {
			if err := l.Acquire(context.Background()); err != nil {
				t.Fatalf("Acquire: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("disabled limiter blocked for %v", elapsed)
		}
	}
}

func TestLimiterInterval(t *testing.T) {
	l := NewLimiter(60)
	if l.Interval() != time.Second {
		t.Errorf("60 rpm interval = %v, want 1s", l.Interval())
	}
	l = NewLimiter(6000)
	if l.Interval() != 10*time.Millisecond {
		t.Errorf("6000 rpm interval = %v, want 10ms", l.Interval())
	}
}

func TestLimiterFirstCallerImmediate(t *testing.T) {
	l := NewLimiter(60)
	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first admission took %v", elapsed)
	}
}

func TestLimiterSpacing(t *testing.T) {
	// 6000 rpm: one admission every 10ms.
	l := NewLimiter(6000)

	const n = 8
	times := make([]time.Time, n)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var idx int

	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			times[idx] = time.Now()
			idx++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// n-1 intervals to admit n requests, measured globally.
	minTotal := time.Duration(n-1) * l.Interval()
	if elapsed := time.Since(start); elapsed < minTotal-2*time.Millisecond {
		t.Errorf("%d admissions took %v, limiter allows at most one per %v", n, elapsed, l.Interval())
	}
}

func TestLimiterAdvancesClock(t *testing.T) {
	// Deterministic check of the next-eligible-time arithmetic using a
	// frozen clock: every Acquire moves the shared deadline by exactly
	// one interval and sleeps are computed against it, not wall time.
	now := time.Unix(1000, 0)
	l := NewLimiter(60)
	l.now = func() time.Time { return now }

	// First admission is free and sets next = now + interval.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if want := now.Add(time.Second); !l.next.Equal(want) {
		t.Errorf("next = %v, want %v", l.next, want)
	}
}

func TestLimiterAcquireCanceled(t *testing.T) {
	l := NewLimiter(1) // one per minute: the second caller would wait ~60s

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Acquire(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Acquire returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestLimiterNilSafe(t *testing.T) {
	var l *Limiter
	if err := l.Acquire(context.Background()); err != nil {
		t.Errorf("nil limiter Acquire: %v", err)
	}
	if l.Interval() != 0 {
		t.Errorf("nil limiter Interval: %v", l.Interval())
	}
}
