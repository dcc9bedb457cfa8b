package engage

import (
	"context"
	"testing"
	"time"
)

func testQueue(now func() time.Time) (*Queue, *instantWaiter) {
	w := &instantWaiter{}
	return NewQueue(QueueConfig{Now: now, Waiter: w}), w
}

func TestEnqueueDeduplicates(t *testing.T) {
	q, _ := testQueue(nil)

	if !q.Enqueue(Action{ItemID: "a", EnqueuedAt: time.Now()}) {
		t.Fatal("first enqueue rejected")
	}
	if q.Enqueue(Action{ItemID: "a", EnqueuedAt: time.Now()}) {
		t.Fatal("duplicate item id accepted")
	}
	if got := q.Len(); got != 1 {
		t.Fatalf("got %d queued, want 1", got)
	}
}

func TestDrainFIFO(t *testing.T) {
	q, _ := testQueue(nil)
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(Action{ItemID: id, EnqueuedAt: time.Now()})
	}

	var order []string
	q.Drain(context.Background(), func(ctx context.Context, a Action) {
		order = append(order, a.ItemID)
	})

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("got %d queued after drain, want 0", q.Len())
	}
}

func TestDrainSingleDrainer(t *testing.T) {
	q, _ := testQueue(nil)
	q.Enqueue(Action{ItemID: "a", EnqueuedAt: time.Now()})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		q.Drain(context.Background(), func(ctx context.Context, a Action) {
			close(entered)
			<-release
		})
		close(done)
	}()
	<-entered

	// A second drain while one is active must return without touching
	// the queue.
	extra := 0
	q.Drain(context.Background(), func(ctx context.Context, a Action) { extra++ })
	if extra != 0 {
		t.Fatalf("second drainer dispatched %d actions, want 0", extra)
	}

	close(release)
	<-done
}

func TestDrainDiscardsStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q, _ := testQueue(func() time.Time { return now })

	// 29999ms old is dispatched, 30001ms old is discarded: the
	// staleness cutoff is strict.
	q.Enqueue(Action{ItemID: "fresh", EnqueuedAt: now.Add(-29999 * time.Millisecond)})
	q.Enqueue(Action{ItemID: "stale", EnqueuedAt: now.Add(-30001 * time.Millisecond)})

	var dispatched []string
	q.Drain(context.Background(), func(ctx context.Context, a Action) {
		dispatched = append(dispatched, a.ItemID)
	})

	if len(dispatched) != 1 || dispatched[0] != "fresh" {
		t.Fatalf("got %v, want [fresh]", dispatched)
	}
}

func TestDrainPicksUpTailEnqueues(t *testing.T) {
	q, _ := testQueue(nil)
	q.Enqueue(Action{ItemID: "a", EnqueuedAt: time.Now()})

	var dispatched []string
	q.Drain(context.Background(), func(ctx context.Context, a Action) {
		dispatched = append(dispatched, a.ItemID)
		if a.ItemID == "a" {
			q.Enqueue(Action{ItemID: "b", EnqueuedAt: time.Now()})
		}
	})

	if len(dispatched) != 2 || dispatched[1] != "b" {
		t.Fatalf("got %v, want [a b]", dispatched)
	}
}

func TestDrainPacesBetweenActions(t *testing.T) {
	q, w := testQueue(nil)
	q.SetPacing(2 * time.Second)
	q.Enqueue(Action{ItemID: "a", EnqueuedAt: time.Now()})
	q.Enqueue(Action{ItemID: "b", EnqueuedAt: time.Now()})

	q.Drain(context.Background(), func(ctx context.Context, a Action) {})

	if got := w.sleepCount(); got != 2 {
		t.Fatalf("got %d pacing sleeps, want 2", got)
	}
	if w.sleeps[0] != 2*time.Second {
		t.Fatalf("got pacing %v, want 2s", w.sleeps[0])
	}
}
