package engage

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hazyhaar/feedloop/feed"
	"github.com/hazyhaar/feedloop/observability"
)

// Requester dispatches an asynchronous text-generation request. The
// reply arrives later through OnGenerationReply, not as a return value.
type Requester interface {
	RequestGeneration(ctx context.Context, itemID, text string) error
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, itemID, text string) error

func (f RequesterFunc) RequestGeneration(ctx context.Context, itemID, text string) error {
	return f(ctx, itemID, text)
}

// commentState tracks a single comment attempt through its lifecycle:
// Idle → ComposerOpening → AwaitingGeneration → Inserting → Submitting
// → {Done | Recovering → Idle}.
type commentState int

const (
	stateComposerOpening commentState = iota
	stateAwaitingGeneration
	stateInserting
	stateSubmitting
)

// pendingComment is the engine's single slot for an in-flight
// generation exchange. A second comment flow must not start while one
// is pending.
type pendingComment struct {
	item      feed.Item
	itemID    string
	state     commentState
	startedAt time.Time
}

// EngineConfig tunes the EngagementEngine.
type EngineConfig struct {
	// EnableLiking and EnableCommenting gate the two action kinds.
	EnableLiking     bool
	EnableCommenting bool

	// CommentProbability is the Bernoulli gate on the comment path, the
	// "don't comment on everything" throttle. Default: 0.3.
	CommentProbability float64

	// SettleDelay is the wait after a scroll for the page to render.
	// Default: 1.5s.
	SettleDelay time.Duration
	// RetryDelay is the wait before the single retry of a transient
	// affordance lookup. Default: 500ms.
	RetryDelay time.Duration
	// VerifyInterval/VerifyDeadline drive the post-click liked-marker
	// poll. Defaults: 100ms / 2s.
	VerifyInterval time.Duration
	VerifyDeadline time.Duration
	// ComposerDeadline bounds the wait for a reply composer to appear.
	// Default: 3s.
	ComposerDeadline time.Duration
	// PendingTimeout abandons a generation exchange that never resolved.
	// Default: 30s.
	PendingTimeout time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Waiter  Waiter
	// Rand returns a uniform [0,1) sample for the comment gate.
	Rand func() float64
}

func (c *EngineConfig) defaults() {
	if c.CommentProbability <= 0 {
		c.CommentProbability = 0.3
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 1500 * time.Millisecond
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.VerifyInterval <= 0 {
		c.VerifyInterval = 100 * time.Millisecond
	}
	if c.VerifyDeadline <= 0 {
		c.VerifyDeadline = 2 * time.Second
	}
	if c.ComposerDeadline <= 0 {
		c.ComposerDeadline = 3 * time.Second
	}
	if c.PendingTimeout <= 0 {
		c.PendingTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Waiter == nil {
		c.Waiter = RealWaiter()
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
}

// Engine performs per-item engagement: like with verify-after-act, and
// the two-phase comment flow suspended on an external generation
// exchange.
type Engine struct {
	session   *Session
	requester Requester

	mu      sync.Mutex
	cfg     EngineConfig
	pending *pendingComment
}

// NewEngine creates an Engine bound to a session.
func NewEngine(session *Session, requester Requester, cfg EngineConfig) *Engine {
	cfg.defaults()
	return &Engine{session: session, requester: requester, cfg: cfg}
}

// ApplySettings updates the action gates without restart. A zero
// probability keeps the current value.
func (e *Engine) ApplySettings(enableLiking, enableCommenting bool, commentProbability float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.EnableLiking = enableLiking
	e.cfg.EnableCommenting = enableCommenting
	if commentProbability > 0 {
		e.cfg.CommentProbability = commentProbability
	}
}

func (e *Engine) config() EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Engage performs the configured actions against one item. Returns
// whether any action was taken (a dispatched comment counts: its
// completion is asynchronous).
func (e *Engine) Engage(ctx context.Context, surface feed.Surface, item feed.Item) bool {
	cfg := e.config()
	log := cfg.Logger

	e.ensureVisible(ctx, surface, item, cfg)

	liked := false
	if cfg.EnableLiking {
		liked = e.like(ctx, item, cfg)
	}

	commented := false
	if cfg.EnableCommenting && cfg.Rand() < cfg.CommentProbability {
		commented = e.comment(ctx, item, cfg)
	}

	if liked || commented {
		e.session.MarkProcessed(item.ID())
		log.Info("engine: item engaged",
			"item_id", item.ID(), "liked", liked, "comment_dispatched", commented)
	}
	return liked || commented
}

// ensureVisible scrolls the item into the viewport when its bounds
// extend beyond it, then waits for the render to settle. Best-effort.
func (e *Engine) ensureVisible(ctx context.Context, surface feed.Surface, item feed.Item, cfg EngineConfig) {
	vp, err := surface.Viewport(ctx)
	if err != nil {
		return
	}
	bounds, err := item.Bounds(ctx)
	if err != nil {
		return
	}
	if bounds.Within(vp) {
		return
	}
	if err := item.ScrollIntoView(ctx); err != nil {
		cfg.Logger.Debug("engine: scroll into view failed", "item_id", item.ID(), "error", err)
		return
	}
	cfg.Waiter.Sleep(ctx, cfg.SettleDelay)
}

// like applies the like action. Liking an already-liked item is a
// successful no-op; a fresh like is only counted after the liked marker
// is observed post-click, because the page's click handlers are
// asynchronous and a click is not proof of state change.
func (e *Engine) like(ctx context.Context, item feed.Item, cfg EngineConfig) bool {
	log := cfg.Logger

	if liked, err := item.Liked(ctx); err == nil && liked {
		log.Debug("engine: already liked", "item_id", item.ID())
		return true
	}

	if err := item.Like(ctx); err != nil {
		// One retry after a short delay: the affordance may not have
		// rendered yet.
		cfg.Waiter.Sleep(ctx, cfg.RetryDelay)
		if err := item.Like(ctx); err != nil {
			log.Warn("engine: like affordance unavailable", "item_id", item.ID(), "error", err)
			return false
		}
	}

	verified := cfg.Waiter.Poll(ctx, cfg.VerifyInterval, cfg.VerifyDeadline, func() bool {
		liked, err := item.Liked(ctx)
		return err == nil && liked
	})
	if !verified {
		log.Warn("engine: like not verified", "item_id", item.ID())
		return false
	}

	e.session.AddLiked()
	cfg.Metrics.IncLikes()
	return true
}

// comment starts the two-phase comment flow: extract text, open the
// composer, dispatch the generation request, and return with the
// exchange pending. Completion happens in OnGenerationReply.
func (e *Engine) comment(ctx context.Context, item feed.Item, cfg EngineConfig) bool {
	log := cfg.Logger

	if !e.claimPending(ctx, item, cfg) {
		log.Debug("engine: generation already pending, skipping comment", "item_id", item.ID())
		return false
	}

	text := ExtractText(ctx, item)
	if text == "" {
		log.Debug("engine: no extractable text", "item_id", item.ID())
		e.clearPending()
		return false
	}

	if err := item.OpenComposer(ctx); err != nil {
		cfg.Waiter.Sleep(ctx, cfg.RetryDelay)
		if err := item.OpenComposer(ctx); err != nil {
			log.Warn("engine: reply affordance unavailable", "item_id", item.ID(), "error", err)
			e.clearPending()
			return false
		}
	}

	ready := cfg.Waiter.Poll(ctx, cfg.VerifyInterval, cfg.ComposerDeadline, func() bool {
		ok, err := item.ComposerReady(ctx)
		return err == nil && ok
	})
	if !ready {
		log.Warn("engine: composer never appeared", "item_id", item.ID())
		e.clearPending()
		return false
	}

	if err := e.requester.RequestGeneration(ctx, item.ID(), text); err != nil {
		// Transport failure: leave the page clean and give up on this
		// comment. Not re-queued.
		log.Warn("engine: generation request failed", "item_id", item.ID(), "error", err)
		e.recover(ctx, item, cfg)
		e.clearPending()
		return false
	}

	e.setPendingState(stateAwaitingGeneration)
	cfg.Metrics.IncGenRequests()
	log.Info("engine: awaiting generation", "item_id", item.ID())
	return true
}

// OnGenerationReply finishes a pending comment with the generated (or
// fallback) text: insert, verify, submit. Stale replies — automation
// disabled meanwhile, or no exchange pending — are discarded silently.
func (e *Engine) OnGenerationReply(ctx context.Context, text string) {
	cfg := e.config()
	log := cfg.Logger

	if !e.session.Enabled() {
		log.Debug("engine: discarding reply, automation disabled")
		e.clearPending()
		return
	}

	p := e.takePending()
	if p == nil {
		log.Debug("engine: discarding reply, no pending comment")
		return
	}
	item := p.item

	p.state = stateInserting
	if err := item.InsertReply(ctx, text); err != nil {
		log.Warn("engine: insert reply failed", "item_id", p.itemID, "error", err)
		e.recover(ctx, item, cfg)
		return
	}

	// Verify the insertion landed; fall back to simulated keystrokes
	// when the composer framework ignored the direct write.
	if got, err := item.ComposerText(ctx); err != nil || collapseSpace(got) != collapseSpace(text) {
		log.Debug("engine: direct insert mismatched, typing instead", "item_id", p.itemID)
		if err := item.TypeReply(ctx, text); err != nil {
			log.Warn("engine: type reply failed", "item_id", p.itemID, "error", err)
			e.recover(ctx, item, cfg)
			return
		}
		if got, err := item.ComposerText(ctx); err != nil || collapseSpace(got) != collapseSpace(text) {
			log.Warn("engine: insertion never verified", "item_id", p.itemID)
			e.recover(ctx, item, cfg)
			return
		}
	}

	p.state = stateSubmitting
	if err := item.SubmitReply(ctx); err != nil {
		log.Warn("engine: submit failed", "item_id", p.itemID, "error", err)
		e.recover(ctx, item, cfg)
		return
	}

	e.session.AddCommented()
	cfg.Metrics.IncComments()
	log.Info("engine: comment submitted", "item_id", p.itemID)
}

// OnGenerationError handles a transport-level generation failure with
// the same composer recovery as a submit failure.
func (e *Engine) OnGenerationError(ctx context.Context, errMsg string) {
	cfg := e.config()
	cfg.Logger.Warn("engine: generation error", "error", errMsg)

	p := e.takePending()
	if p == nil {
		return
	}
	e.recover(ctx, p.item, cfg)
}

// PendingItemID exposes the in-flight exchange's item id, empty when
// idle.
func (e *Engine) PendingItemID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return ""
	}
	return e.pending.itemID
}

// claimPending takes the single pending slot. An exchange stuck past
// PendingTimeout is abandoned: its composer is dismissed and the slot
// freed for the new attempt.
func (e *Engine) claimPending(ctx context.Context, item feed.Item, cfg EngineConfig) bool {
	e.mu.Lock()
	stale := e.pending
	if stale != nil && time.Since(stale.startedAt) <= cfg.PendingTimeout {
		e.mu.Unlock()
		return false
	}
	e.pending = &pendingComment{
		item:      item,
		itemID:    item.ID(),
		state:     stateComposerOpening,
		startedAt: time.Now(),
	}
	e.mu.Unlock()

	if stale != nil {
		cfg.Logger.Warn("engine: abandoning timed-out generation", "item_id", stale.itemID)
		e.recover(ctx, stale.item, cfg)
	}
	return true
}

func (e *Engine) setPendingState(s commentState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending != nil {
		e.pending.state = s
	}
}

func (e *Engine) clearPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = nil
}

// takePending atomically removes and returns the pending exchange.
func (e *Engine) takePending() *pendingComment {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pending
	e.pending = nil
	return p
}

// recover best-effort dismisses an open composer so the page is clean
// for the next cycle. The failed comment is not re-queued.
func (e *Engine) recover(ctx context.Context, item feed.Item, cfg EngineConfig) {
	if err := item.DismissComposer(ctx); err != nil {
		cfg.Logger.Debug("engine: composer dismiss failed", "item_id", item.ID(), "error", err)
	}
}
