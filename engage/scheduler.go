package engage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/feedloop/feed"
	"github.com/hazyhaar/feedloop/observability"
)

// Modes trade action rate for caution: fast polls and paces tighter.
const (
	ModeFast = "fast"
	ModeSlow = "slow"
)

// modeIntervals returns (poll interval, pacing delay) for a mode.
func modeIntervals(mode string) (time.Duration, time.Duration) {
	if mode == ModeFast {
		return 3 * time.Second, 2 * time.Second
	}
	return 10 * time.Second, 5 * time.Second
}

// SchedulerConfig tunes the AutomationScheduler.
type SchedulerConfig struct {
	// Mode selects the fast or slow interval profile. Default: slow.
	Mode string
	// DebounceWindow coalesces mutation bursts into one scan trigger.
	// Default: 500ms.
	DebounceWindow time.Duration
	// ScrollFraction is how far the scroll fallback advances, as a
	// fraction of viewport height. Default: 0.6.
	ScrollFraction float64
	// SettleDelay is the post-scroll render wait. Default: 1.5s.
	SettleDelay time.Duration
	// ReloadDelay is the pause before the exhaustion reload. Default: 2s.
	ReloadDelay time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Waiter  Waiter
}

func (c *SchedulerConfig) defaults() {
	if c.Mode == "" {
		c.Mode = ModeSlow
	}
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = 500 * time.Millisecond
	}
	if c.ScrollFraction <= 0 || c.ScrollFraction > 1 {
		c.ScrollFraction = 0.6
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 1500 * time.Millisecond
	}
	if c.ReloadDelay <= 0 {
		c.ReloadDelay = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Waiter == nil {
		c.Waiter = RealWaiter()
	}
}

// Scheduler is the top-level control loop: it watches the page for new
// items, enqueues unprocessed ones, drains the queue through the
// engine, and scrolls when nothing new is visible. A periodic fallback
// timer catches whatever the mutation subscription missed.
type Scheduler struct {
	session *Session
	surface feed.Surface
	engine  *Engine
	queue   *Queue
	source  *Debounced

	mu        sync.Mutex
	cfg       SchedulerConfig
	indicator feed.Indicator
	cancel    context.CancelFunc
}

// NewScheduler assembles the control loop. The raw change source is
// wrapped with the debouncing decorator here.
func NewScheduler(session *Session, surface feed.Surface, engine *Engine, queue *Queue, source ChangeSource, cfg SchedulerConfig) *Scheduler {
	cfg.defaults()
	return &Scheduler{
		session: session,
		surface: surface,
		engine:  engine,
		queue:   queue,
		source:  NewDebounced(source, cfg.DebounceWindow),
		cfg:     cfg,
	}
}

// SetIndicator attaches the on-page status badge. Optional.
func (s *Scheduler) SetIndicator(ind feed.Indicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicator = ind
}

// Enable starts the change subscription and the fallback timer.
// Idempotent: enabling an enabled scheduler is a no-op.
func (s *Scheduler) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Enabled() {
		return nil
	}
	s.session.SetEnabled(true)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.source.Subscribe(loopCtx, func() { s.onChange(loopCtx) }); err != nil {
		s.cfg.Logger.Warn("scheduler: change subscription failed, relying on fallback timer", "error", err)
	}
	go s.fallbackLoop(loopCtx)

	if s.indicator != nil {
		if err := s.indicator.Show(loopCtx); err != nil {
			s.cfg.Logger.Debug("scheduler: show indicator failed", "error", err)
		}
	}

	s.cfg.Logger.Info("scheduler: enabled", "mode", s.cfg.Mode)
	return nil
}

// Disable cancels the timer and the subscription and clears the
// running flag. Idempotent. In-flight suspended steps are not aborted;
// their callbacks check the enabled flag and discard stale results.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Enabled() {
		return
	}
	s.session.SetEnabled(false)

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.source.Unsubscribe()

	if s.indicator != nil {
		hideCtx, hideCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.indicator.Hide(hideCtx); err != nil {
			s.cfg.Logger.Debug("scheduler: hide indicator failed", "error", err)
		}
		hideCancel()
	}

	s.cfg.Logger.Info("scheduler: disabled")
}

// ApplySettings pushes updated configuration into the running loop:
// action gates take effect on the next engagement, the mode retunes the
// intervals, and an automationEnabled transition toggles the loop.
func (s *Scheduler) ApplySettings(ctx context.Context, enabled, enableLiking, enableCommenting bool, mode string, commentProbability float64) {
	s.engine.ApplySettings(enableLiking, enableCommenting, commentProbability)

	if mode == ModeFast || mode == ModeSlow {
		s.mu.Lock()
		s.cfg.Mode = mode
		s.mu.Unlock()
		_, pacing := modeIntervals(mode)
		s.queue.SetPacing(pacing)
	}

	if enabled && !s.session.Enabled() {
		if err := s.Enable(ctx); err != nil {
			s.cfg.Logger.Error("scheduler: enable from settings failed", "error", err)
		}
	} else if !enabled && s.session.Enabled() {
		s.Disable()
	}
}

// onChange handles a debounced mutation notification. Batches arriving
// while a cycle runs are ignored, not queued; the fallback timer
// catches anything missed.
func (s *Scheduler) onChange(ctx context.Context) {
	if s.session.Running() {
		return
	}
	go s.RunCycle(ctx)
}

func (s *Scheduler) fallbackLoop(ctx context.Context) {
	for {
		s.mu.Lock()
		interval, _ := modeIntervals(s.cfg.Mode)
		s.mu.Unlock()

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle is the top-level unit of work: one scan, one drain (or the
// scroll fallback). At most one cycle runs at a time; any panic or
// error is confined to the cycle, and the running flag is always
// cleared.
func (s *Scheduler) RunCycle(ctx context.Context) {
	if !s.session.Enabled() {
		return
	}
	if !s.session.TryBeginCycle() {
		return
	}
	defer s.session.EndCycle()
	defer func() {
		if r := recover(); r != nil {
			s.cfg.Logger.Error("scheduler: cycle panicked", "panic", r)
		}
	}()

	s.cfg.Metrics.IncCycles()

	enqueued := s.scanAndEnqueue(ctx)
	if enqueued || s.queue.Len() > 0 {
		s.queue.Drain(ctx, func(ctx context.Context, a Action) {
			s.engine.Engage(ctx, s.surface, a.Item)
		})
		return
	}

	s.scrollFallback(ctx)
}

// scanAndEnqueue lists rendered items, refreshes the seen counter with
// the total visible count, and enqueues the first unprocessed item
// intersecting the viewport. One item per scan: the loop throttles by
// design instead of batching.
func (s *Scheduler) scanAndEnqueue(ctx context.Context) bool {
	items, err := s.surface.VisibleItems(ctx)
	if err != nil {
		s.cfg.Logger.Warn("scheduler: list items failed", "error", err)
		return false
	}
	s.session.SetSeen(len(items))

	vp, err := s.surface.Viewport(ctx)
	if err != nil {
		s.cfg.Logger.Warn("scheduler: viewport failed", "error", err)
		return false
	}

	for _, item := range items {
		if s.session.IsProcessed(item.ID()) {
			continue
		}
		bounds, err := item.Bounds(ctx)
		if err != nil {
			continue
		}
		if !bounds.Intersects(vp) {
			continue
		}
		if s.queue.Enqueue(Action{Item: item, ItemID: item.ID(), EnqueuedAt: time.Now()}) {
			s.cfg.Logger.Debug("scheduler: enqueued item", "item_id", item.ID())
		}
		return true
	}
	return false
}

// scrollFallback advances the feed when no unprocessed item is in view.
// If the page was already at the document end and still shows nothing
// new, the feed is exhausted: reset the session and reload. Recovery,
// not failure.
func (s *Scheduler) scrollFallback(ctx context.Context) {
	wasAtBottom, err := s.surface.AtBottom(ctx)
	if err != nil {
		s.cfg.Logger.Warn("scheduler: bottom check failed", "error", err)
		return
	}

	if err := s.surface.ScrollBy(ctx, s.cfg.ScrollFraction); err != nil {
		s.cfg.Logger.Warn("scheduler: scroll failed", "error", err)
		return
	}
	s.cfg.Waiter.Sleep(ctx, s.cfg.SettleDelay)

	if !wasAtBottom {
		return
	}
	if s.hasUnprocessedVisible(ctx) {
		return
	}

	s.cfg.Logger.Info("scheduler: feed exhausted, resetting session")
	s.session.Reset()
	s.cfg.Waiter.Sleep(ctx, s.cfg.ReloadDelay)
	if err := s.surface.Reload(ctx); err != nil {
		s.cfg.Logger.Error("scheduler: reload failed", "error", err)
	}
}

func (s *Scheduler) hasUnprocessedVisible(ctx context.Context) bool {
	items, err := s.surface.VisibleItems(ctx)
	if err != nil {
		return false
	}
	for _, item := range items {
		if !s.session.IsProcessed(item.ID()) {
			return true
		}
	}
	return false
}
