package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/feedloop/idgen"
)

// idAttr is the DOM attribute carrying the session-stable item identity.
const idAttr = "data-feedloop-id"

// ErrNotFound is returned when an expected affordance is absent from the
// page. Callers treat it as a non-fatal skip.
var ErrNotFound = errors.New("feed: affordance not found")

// PageSurface drives a live feed page through rod.
type PageSurface struct {
	page   *rod.Page
	sel    Selectors
	newID  idgen.Generator
	logger *slog.Logger
}

// SurfaceOption configures a PageSurface.
type SurfaceOption func(*PageSurface)

// WithIDGenerator sets a custom generator for item identities.
func WithIDGenerator(gen idgen.Generator) SurfaceOption {
	return func(s *PageSurface) { s.newID = gen }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) SurfaceOption {
	return func(s *PageSurface) { s.logger = l }
}

// NewSurface wraps an already-navigated rod page.
func NewSurface(page *rod.Page, sel Selectors, opts ...SurfaceOption) *PageSurface {
	sel.ApplyDefaults()
	s := &PageSurface{
		page:   page,
		sel:    sel,
		newID:  idgen.Prefixed("itm_", idgen.NanoID(12)),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// VisibleItems lists rendered feed posts in DOM order. Items seen for
// the first time get an identity written back into the DOM so later
// traversals observe the same ID.
func (s *PageSurface) VisibleItems(ctx context.Context) ([]Item, error) {
	els, err := s.page.Context(ctx).Elements(s.sel.Item)
	if err != nil {
		return nil, fmt.Errorf("feed: list items: %w", err)
	}

	items := make([]Item, 0, len(els))
	for _, el := range els {
		id, err := s.ensureID(ctx, el)
		if err != nil {
			s.logger.Warn("feed: assign item id failed", "error", err)
			continue
		}
		items = append(items, &PageItem{
			page: s.page,
			el:   el,
			id:   id,
			sel:  &s.sel,
		})
	}
	return items, nil
}

func (s *PageSurface) ensureID(ctx context.Context, el *rod.Element) (string, error) {
	attr, err := el.Context(ctx).Attribute(idAttr)
	if err != nil {
		return "", err
	}
	if attr != nil && *attr != "" {
		return *attr, nil
	}

	id := s.newID()
	_, err = el.Context(ctx).Eval(`(attr, id) => this.setAttribute(attr, id)`, idAttr, id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Viewport returns the window's inner rectangle.
func (s *PageSurface) Viewport(ctx context.Context) (Rect, error) {
	res, err := s.page.Context(ctx).Eval(
		`() => ({x: 0, y: 0, width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return Rect{}, fmt.Errorf("feed: viewport: %w", err)
	}
	return Rect{
		Width:  res.Value.Get("width").Num(),
		Height: res.Value.Get("height").Num(),
	}, nil
}

// ScrollBy advances the scroll position smoothly by fraction of the
// viewport height.
func (s *PageSurface) ScrollBy(ctx context.Context, fraction float64) error {
	_, err := s.page.Context(ctx).Eval(
		`(frac) => window.scrollBy({top: window.innerHeight * frac, behavior: 'smooth'})`,
		fraction)
	if err != nil {
		return fmt.Errorf("feed: scroll: %w", err)
	}
	return nil
}

// AtBottom reports whether the scroll position has reached the document
// end.
func (s *PageSurface) AtBottom(ctx context.Context) (bool, error) {
	res, err := s.page.Context(ctx).Eval(
		`() => window.scrollY + window.innerHeight >= document.documentElement.scrollHeight - 2`)
	if err != nil {
		return false, fmt.Errorf("feed: scroll position: %w", err)
	}
	return res.Value.Bool(), nil
}

// Reload reloads the page. All item identity attributes are lost with
// the old DOM, which is what the session-reset path wants.
func (s *PageSurface) Reload(ctx context.Context) error {
	if err := s.page.Context(ctx).Reload(); err != nil {
		return fmt.Errorf("feed: reload: %w", err)
	}
	return nil
}
