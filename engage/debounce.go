package engage

import (
	"context"
	"sync"
	"time"
)

// ChangeSource reports that the observed page changed. Implementations
// deliver one callback invocation per notification; the rod-backed
// source lives in the feed package, tests inject synthetic ones.
type ChangeSource interface {
	Subscribe(ctx context.Context, fn func()) error
	Unsubscribe()
}

// Debounced decorates a ChangeSource, coalescing notification bursts:
// the subscriber's callback fires once per quiet window rather than
// once per mutation. Feed pages emit dozens of mutations per rendered
// item; acting on each would thrash the scheduler.
type Debounced struct {
	src    ChangeSource
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebounced wraps src with a coalescing window. Default: 500ms.
func NewDebounced(src ChangeSource, window time.Duration) *Debounced {
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	return &Debounced{src: src, window: window}
}

// Subscribe forwards to the wrapped source with a debouncing handler:
// each raw notification (re)arms a timer; fn fires when the window
// passes without further notifications.
func (d *Debounced) Subscribe(ctx context.Context, fn func()) error {
	return d.src.Subscribe(ctx, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.timer != nil {
			d.timer.Stop()
		}
		d.timer = time.AfterFunc(d.window, fn)
	})
}

// Unsubscribe stops the wrapped source and cancels any armed timer.
func (d *Debounced) Unsubscribe() {
	d.src.Unsubscribe()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
