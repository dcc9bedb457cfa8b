package engage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/feedloop/feed"
	"github.com/hazyhaar/feedloop/observability"
)

// Action is one queued engagement unit: a single discovered feed item
// and the time it was found.
type Action struct {
	Item       feed.Item
	ItemID     string
	EnqueuedAt time.Time
}

// DispatchFunc processes a single action end to end.
type DispatchFunc func(ctx context.Context, a Action)

// QueueConfig tunes the ActionQueue.
type QueueConfig struct {
	// StaleAfter discards actions that waited longer than this before
	// the drain loop reached them. Default: 30s.
	StaleAfter time.Duration
	// Pacing is the delay between consecutive dispatches. Default: 5s.
	Pacing time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics

	// Now overrides the clock, for staleness tests.
	Now func() time.Time
	// Waiter overrides the pacing sleep, for tests.
	Waiter Waiter
}

func (c *QueueConfig) defaults() {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 30 * time.Second
	}
	if c.Pacing <= 0 {
		c.Pacing = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Waiter == nil {
		c.Waiter = RealWaiter()
	}
}

// Queue serializes engagement actions: FIFO order, deduplicated by item
// id at enqueue time, one drainer at a time, staleness eviction.
type Queue struct {
	cfg QueueConfig

	mu       sync.Mutex
	actions  []Action
	draining bool
}

// NewQueue creates an empty Queue.
func NewQueue(cfg QueueConfig) *Queue {
	cfg.defaults()
	return &Queue{cfg: cfg}
}

// Enqueue appends the action unless a queued action already references
// the same item id. Returns whether the action was added. The dedup is
// a correctness requirement: concurrent duplicate enqueues must never
// cause double-processing.
func (q *Queue) Enqueue(a Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, existing := range q.actions {
		if existing.ItemID == a.ItemID {
			return false
		}
	}
	q.actions = append(q.actions, a)
	return true
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// SetPacing adjusts the inter-action delay, for fast/slow mode changes
// without restart.
func (q *Queue) SetPacing(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if d > 0 {
		q.cfg.Pacing = d
	}
}

// Drain pops actions in FIFO order and dispatches each, waiting the
// pacing delay between actions. A no-op when a drain is already active.
// Enqueues during the drain land in the tail and are picked up by the
// same loop.
func (q *Queue) Drain(ctx context.Context, dispatch DispatchFunc) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		q.mu.Lock()
		if len(q.actions) == 0 {
			q.mu.Unlock()
			return
		}
		a := q.actions[0]
		q.actions = q.actions[1:]
		pacing := q.cfg.Pacing
		q.mu.Unlock()

		if age := q.cfg.Now().Sub(a.EnqueuedAt); age > q.cfg.StaleAfter {
			q.cfg.Logger.Info("queue: discarding stale action",
				"item_id", a.ItemID, "age", age)
			q.cfg.Metrics.IncStaleDropped()
			continue
		}

		dispatch(ctx, a)
		q.cfg.Waiter.Sleep(ctx, pacing)
	}
}
