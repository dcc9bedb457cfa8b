package engage

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/feedloop/feed"
)

func testScheduler(surface feed.Surface, source ChangeSource) (*Scheduler, *Session) {
	session := NewSession()
	engine := NewEngine(session, &recordingRequester{}, EngineConfig{
		EnableLiking: true,
		Rand:         func() float64 { return 1 }, // likes only
		Waiter:       &instantWaiter{},
	})
	queue := NewQueue(QueueConfig{Waiter: &instantWaiter{}})
	sched := NewScheduler(session, surface, engine, queue, source, SchedulerConfig{
		Waiter: &instantWaiter{},
	})
	return sched, session
}

// One scan: an already-processed item is skipped, the first unprocessed
// in-viewport item is engaged, and an item rendered below the fold is
// left for a later cycle. Seen reflects the total visible count.
func TestRunCycleEngagesFirstUnprocessedVisible(t *testing.T) {
	a := &fakeItem{id: "a", bounds: feed.Rect{Y: 0, Width: 600, Height: 200}}
	b := &fakeItem{id: "b", bounds: feed.Rect{Y: 300, Width: 600, Height: 200}}
	c := &fakeItem{id: "c", bounds: feed.Rect{Y: 2000, Width: 600, Height: 200}}
	surface := newFakeSurface(a, b, c)

	sched, session := testScheduler(surface, &fakeSource{})
	session.SetEnabled(true)
	session.MarkProcessed("a")

	sched.RunCycle(context.Background())

	if got := session.Counters().Seen; got != 3 {
		t.Fatalf("got seen %d, want 3", got)
	}
	if a.likeCalls != 0 {
		t.Fatal("processed item re-engaged")
	}
	if b.likeCalls != 1 || !session.IsProcessed("b") {
		t.Fatalf("got %d like calls on b, want 1 and processed", b.likeCalls)
	}
	if c.likeCalls != 0 || session.IsProcessed("c") {
		t.Fatal("below-viewport item engaged in the same cycle")
	}
	if surface.scrolls != 0 {
		t.Fatalf("got %d scrolls, want 0", surface.scrolls)
	}
}

func TestRunCycleDisabledIsNoop(t *testing.T) {
	surface := newFakeSurface(&fakeItem{id: "a", bounds: feed.Rect{Width: 600, Height: 200}})
	sched, _ := testScheduler(surface, &fakeSource{})

	sched.RunCycle(context.Background())

	if surface.visibleCalls != 0 {
		t.Fatal("disabled scheduler scanned the page")
	}
}

func TestRunCycleSkippedWhileRunning(t *testing.T) {
	surface := newFakeSurface(&fakeItem{id: "a", bounds: feed.Rect{Width: 600, Height: 200}})
	sched, session := testScheduler(surface, &fakeSource{})
	session.SetEnabled(true)
	session.TryBeginCycle()

	sched.RunCycle(context.Background())

	if surface.visibleCalls != 0 {
		t.Fatal("overlapping cycle scanned the page")
	}
}

func TestScrollFallbackWhenNothingNew(t *testing.T) {
	a := &fakeItem{id: "a", bounds: feed.Rect{Width: 600, Height: 200}}
	surface := newFakeSurface(a)

	sched, session := testScheduler(surface, &fakeSource{})
	session.SetEnabled(true)
	session.MarkProcessed("a")

	sched.RunCycle(context.Background())

	if surface.scrolls != 1 {
		t.Fatalf("got %d scrolls, want 1", surface.scrolls)
	}
	if surface.reloads != 0 {
		t.Fatal("reloaded a feed that was not exhausted")
	}
	if session.IsProcessed("a") != true {
		t.Fatal("session reset without exhaustion")
	}
}

func TestExhaustionResetsSessionAndReloads(t *testing.T) {
	a := &fakeItem{id: "a", bounds: feed.Rect{Width: 600, Height: 200}}
	surface := newFakeSurface(a)
	surface.atBottom = true

	sched, session := testScheduler(surface, &fakeSource{})
	session.SetEnabled(true)
	session.MarkProcessed("a")
	session.AddLiked()

	sched.RunCycle(context.Background())

	if surface.reloads != 1 {
		t.Fatalf("got %d reloads, want 1", surface.reloads)
	}
	if session.IsProcessed("a") {
		t.Fatal("processed set survived exhaustion reset")
	}
	if got := session.Counters(); got != (Counters{}) {
		t.Fatalf("got %+v after exhaustion, want zero counters", got)
	}
}

func TestEnableDisableIdempotent(t *testing.T) {
	source := &fakeSource{}
	sched, session := testScheduler(newFakeSurface(), source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Enable(ctx); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := sched.Enable(ctx); err != nil {
		t.Fatalf("second enable: %v", err)
	}
	if source.subscribes != 1 {
		t.Fatalf("got %d subscriptions, want 1", source.subscribes)
	}
	if !session.Enabled() {
		t.Fatal("session not enabled")
	}

	sched.Disable()
	sched.Disable()
	if source.unsubscribes != 1 {
		t.Fatalf("got %d unsubscribes, want 1", source.unsubscribes)
	}
	if session.Enabled() {
		t.Fatal("session still enabled")
	}
}

func TestApplySettingsTogglesLoop(t *testing.T) {
	source := &fakeSource{}
	sched, session := testScheduler(newFakeSurface(), source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.ApplySettings(ctx, true, true, false, ModeFast, 0.5)
	if !session.Enabled() {
		t.Fatal("settings push did not enable automation")
	}

	sched.ApplySettings(ctx, false, true, false, ModeFast, 0.5)
	if session.Enabled() {
		t.Fatal("settings push did not disable automation")
	}
}

func TestChangeNotificationTriggersCycle(t *testing.T) {
	a := &fakeItem{id: "a", bounds: feed.Rect{Width: 600, Height: 200}}
	surface := newFakeSurface(a)
	source := &fakeSource{}
	sched, session := testScheduler(surface, source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sched.Enable(ctx); err != nil {
		t.Fatalf("enable: %v", err)
	}

	// Fire a burst; the debounce window coalesces it into one trigger.
	source.Fire()
	source.Fire()
	source.Fire()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if session.IsProcessed("a") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("mutation notification never triggered a cycle")
}
