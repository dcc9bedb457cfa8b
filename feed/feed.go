// Package feed defines the contract between the automation core and a
// rendered feed page. The core (engage) talks only to the Surface and
// Item interfaces; the rod-backed implementation in this package drives
// a live page over CDP.
//
// feed locates, it does not decide. Which items get engaged, in what
// order, and at what pace is the engage package's business.
package feed

import "context"

// Rect is an axis-aligned rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bottom returns the Y coordinate of the lower edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Right returns the X coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() &&
		r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Within reports whether r lies entirely inside o.
func (r Rect) Within(o Rect) bool {
	return r.X >= o.X && r.Y >= o.Y &&
		r.Right() <= o.Right() && r.Bottom() <= o.Bottom()
}

// Item is one rendered feed post. Identity is stable for the page
// session: the surface assigns an ID on first sight and re-reads it on
// later traversals.
type Item interface {
	// ID returns the session-stable identifier.
	ID() string

	// Bounds returns the item's bounding box in viewport coordinates.
	Bounds(ctx context.Context) (Rect, error)

	// ScrollIntoView smoothly brings the item into the viewport.
	ScrollIntoView(ctx context.Context) error

	// Text returns the rendered text of the post body. Empty string if
	// the body is absent or empty.
	Text(ctx context.Context) (string, error)

	// HTML returns the post body's outer HTML for fallback extraction.
	HTML(ctx context.Context) (string, error)

	// Liked reports whether the already-liked marker is present.
	Liked(ctx context.Context) (bool, error)

	// Like activates the like affordance.
	Like(ctx context.Context) error

	// OpenComposer activates the reply affordance.
	OpenComposer(ctx context.Context) error

	// ComposerReady reports whether a reply composer is present.
	ComposerReady(ctx context.Context) (bool, error)

	// InsertReply writes text into the composer via direct DOM insertion.
	InsertReply(ctx context.Context, text string) error

	// ComposerText reads the composer's current content, for verifying
	// that an insertion actually landed.
	ComposerText(ctx context.Context) (string, error)

	// TypeReply writes text into the composer via simulated keystrokes,
	// the fallback when direct insertion leaves the content mismatched.
	TypeReply(ctx context.Context, text string) error

	// SubmitReply activates the submit affordance.
	SubmitReply(ctx context.Context) error

	// DismissComposer best-effort closes an open composer: clicks known
	// close affordances, then sends an escape.
	DismissComposer(ctx context.Context) error
}

// Surface is the rendered feed page.
type Surface interface {
	// VisibleItems lists currently rendered items in DOM order,
	// assigning identity to any item seen for the first time.
	VisibleItems(ctx context.Context) ([]Item, error)

	// Viewport returns the current viewport rectangle.
	Viewport(ctx context.Context) (Rect, error)

	// ScrollBy advances the scroll position smoothly by the given
	// fraction of the viewport height.
	ScrollBy(ctx context.Context, fraction float64) error

	// AtBottom reports whether the scroll position is at the document end.
	AtBottom(ctx context.Context) (bool, error)

	// Reload reloads the page. Item identity does not survive a reload.
	Reload(ctx context.Context) error
}

// Indicator is the on-page status badge shown while automation runs.
type Indicator interface {
	Show(ctx context.Context) error
	Hide(ctx context.Context) error
}
