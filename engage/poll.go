package engage

import (
	"context"
	"time"
)

// Waiter abstracts timed waits and condition polling so tests can
// substitute instant success or failure for wall-clock delays. The page
// offers no completion signals for most of its asynchronous handlers;
// polling a post-condition is the only honest synchronization.
type Waiter interface {
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration)

	// Poll evaluates pred every interval until it returns true or the
	// deadline elapses. Returns pred's final verdict.
	Poll(ctx context.Context, interval, deadline time.Duration, pred func() bool) bool
}

type realWaiter struct{}

// RealWaiter returns the wall-clock Waiter used in production.
func RealWaiter() Waiter { return realWaiter{} }

func (realWaiter) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (realWaiter) Poll(ctx context.Context, interval, deadline time.Duration, pred func() bool) bool {
	if pred() {
		return true
	}
	end := time.Now().Add(deadline)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if pred() {
				return true
			}
			if time.Now().After(end) {
				return false
			}
		}
	}
}
