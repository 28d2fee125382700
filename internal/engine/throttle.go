package engine

import (
	"context"
	"sync"
	"time"
)

// clock abstracts time for the throttle so tests can run without sleeping.
type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Throttle enforces a soft bandwidth cap over a sliding window. After each
// chunk the caller records the bytes moved; when the window's measured rate
// exceeds the limit, Wait sleeps exactly long enough to bring the rate back
// under it and resets the window.
type Throttle struct {
	mu          sync.Mutex
	limit       int64 // bytes per second
	clk         clock
	windowStart time.Time
	windowBytes int64
}

// NewThrottle creates a throttle for the given bytes-per-second limit.
// A zero or negative limit returns nil; a nil Throttle never waits.
func NewThrottle(bytesPerSecond int64) *Throttle {
	return newThrottle(bytesPerSecond, realClock{})
}

func newThrottle(bytesPerSecond int64, clk clock) *Throttle {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &Throttle{
		limit:       bytesPerSecond,
		clk:         clk,
		windowStart: clk.Now(),
	}
}

// Wait records n transferred bytes and blocks until the window rate is back
// under the limit. Safe on a nil receiver.
func (t *Throttle) Wait(ctx context.Context, n int64) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.windowBytes += n

	elapsed := t.clk.Now().Sub(t.windowStart)
	expected := time.Duration(float64(t.windowBytes) / float64(t.limit) * float64(time.Second))
	if expected <= elapsed {
		return nil
	}

	if err := t.clk.Sleep(ctx, expected-elapsed); err != nil {
		return err
	}

	t.windowStart = t.clk.Now()
	t.windowBytes = 0
	return nil
}

// Limit returns the configured limit in bytes per second, 0 for nil.
func (t *Throttle) Limit() int64 {
	if t == nil {
		return 0
	}
	return t.limit
}
