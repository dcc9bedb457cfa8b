package feed

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// PageItem is a rod-backed feed post. Item-scoped affordances resolve
// relative to the post element; the composer resolves against the
// document because most feeds render it in an overlay.
type PageItem struct {
	page *rod.Page
	el   *rod.Element
	id   string
	sel  *Selectors
}

func (it *PageItem) ID() string { return it.id }

// Bounds returns the post's bounding box in viewport coordinates.
func (it *PageItem) Bounds(ctx context.Context) (Rect, error) {
	shape, err := it.el.Context(ctx).Shape()
	if err != nil {
		return Rect{}, fmt.Errorf("feed: item shape: %w", err)
	}
	box := shape.Box()
	if box == nil {
		return Rect{}, fmt.Errorf("feed: item has no box: %w", ErrNotFound)
	}
	return Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

// ScrollIntoView smoothly centers the post in the viewport.
func (it *PageItem) ScrollIntoView(ctx context.Context) error {
	_, err := it.el.Context(ctx).Eval(
		`() => this.scrollIntoView({behavior: 'smooth', block: 'center'})`)
	if err != nil {
		return fmt.Errorf("feed: scroll into view: %w", err)
	}
	return nil
}

// Text returns the rendered text of the post body.
func (it *PageItem) Text(ctx context.Context) (string, error) {
	ok, body, err := it.el.Context(ctx).Has(it.sel.Body)
	if err != nil {
		return "", fmt.Errorf("feed: find body: %w", err)
	}
	if !ok {
		return "", nil
	}
	text, err := body.Context(ctx).Text()
	if err != nil {
		return "", fmt.Errorf("feed: body text: %w", err)
	}
	return text, nil
}

// HTML returns the post body's outer HTML, falling back to the whole
// post element when no body matches.
func (it *PageItem) HTML(ctx context.Context) (string, error) {
	target := it.el
	if ok, body, err := it.el.Context(ctx).Has(it.sel.Body); err == nil && ok {
		target = body
	}
	html, err := target.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("feed: body html: %w", err)
	}
	return html, nil
}

// Liked reports whether the already-liked marker is present on the post.
func (it *PageItem) Liked(ctx context.Context) (bool, error) {
	ok, _, err := it.el.Context(ctx).Has(it.sel.LikedMarker)
	if err != nil {
		return false, fmt.Errorf("feed: liked marker: %w", err)
	}
	return ok, nil
}

// Like clicks the like affordance.
func (it *PageItem) Like(ctx context.Context) error {
	return it.clickIn(ctx, it.el, it.sel.LikeButton)
}

// OpenComposer clicks the reply affordance.
func (it *PageItem) OpenComposer(ctx context.Context) error {
	return it.clickIn(ctx, it.el, it.sel.ReplyButton)
}

// ComposerReady reports whether a reply composer is present on the page.
func (it *PageItem) ComposerReady(ctx context.Context) (bool, error) {
	ok, _, err := it.page.Context(ctx).Has(it.sel.Composer)
	if err != nil {
		return false, fmt.Errorf("feed: find composer: %w", err)
	}
	return ok, nil
}

// InsertReply writes text into the composer by setting its content
// directly and dispatching an input event, the path frameworks expect.
func (it *PageItem) InsertReply(ctx context.Context, text string) error {
	composer, err := it.composer(ctx)
	if err != nil {
		return err
	}
	_, err = composer.Context(ctx).Eval(`(text) => {
		this.focus();
		if (this.tagName === 'TEXTAREA' || this.tagName === 'INPUT') {
			const proto = this.tagName === 'TEXTAREA'
				? window.HTMLTextAreaElement.prototype
				: window.HTMLInputElement.prototype;
			Object.getOwnPropertyDescriptor(proto, 'value').set.call(this, text);
		} else {
			this.innerText = text;
		}
		this.dispatchEvent(new InputEvent('input', {bubbles: true}));
	}`, text)
	if err != nil {
		return fmt.Errorf("feed: insert reply: %w", err)
	}
	return nil
}

// ComposerText reads the composer's current content.
func (it *PageItem) ComposerText(ctx context.Context) (string, error) {
	composer, err := it.composer(ctx)
	if err != nil {
		return "", err
	}
	res, err := composer.Context(ctx).Eval(
		`() => (this.tagName === 'TEXTAREA' || this.tagName === 'INPUT') ? this.value : this.innerText`)
	if err != nil {
		return "", fmt.Errorf("feed: composer text: %w", err)
	}
	return res.Value.Str(), nil
}

// TypeReply clears the composer and injects text as synthesized input,
// the fallback for composers that ignore direct content writes.
func (it *PageItem) TypeReply(ctx context.Context, text string) error {
	composer, err := it.composer(ctx)
	if err != nil {
		return err
	}
	if err := composer.Context(ctx).Focus(); err != nil {
		return fmt.Errorf("feed: focus composer: %w", err)
	}
	_, err = composer.Context(ctx).Eval(`() => {
		if (this.tagName === 'TEXTAREA' || this.tagName === 'INPUT') {
			this.value = '';
		} else {
			this.innerText = '';
		}
	}`)
	if err != nil {
		return fmt.Errorf("feed: clear composer: %w", err)
	}
	if err := (proto.InputInsertText{Text: text}).Call(it.page.Context(ctx)); err != nil {
		return fmt.Errorf("feed: type reply: %w", err)
	}
	return nil
}

// SubmitReply clicks the composer's submit affordance.
func (it *PageItem) SubmitReply(ctx context.Context) error {
	ok, btn, err := it.page.Context(ctx).Has(it.sel.Submit)
	if err != nil {
		return fmt.Errorf("feed: find submit: %w", err)
	}
	if !ok {
		return fmt.Errorf("feed: submit: %w", ErrNotFound)
	}
	if err := btn.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("feed: click submit: %w", err)
	}
	return nil
}

// DismissComposer best-effort returns the page to a clean state: click
// any known close affordance, then send an escape.
func (it *PageItem) DismissComposer(ctx context.Context) error {
	if ok, btn, err := it.page.Context(ctx).Has(it.sel.Close); err == nil && ok {
		if err := btn.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err == nil {
			return nil
		}
	}
	if err := it.page.Context(ctx).Keyboard.Press(input.Escape); err != nil {
		return fmt.Errorf("feed: dismiss composer: %w", err)
	}
	return nil
}

func (it *PageItem) composer(ctx context.Context) (*rod.Element, error) {
	ok, el, err := it.page.Context(ctx).Has(it.sel.Composer)
	if err != nil {
		return nil, fmt.Errorf("feed: find composer: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("feed: composer: %w", ErrNotFound)
	}
	return el, nil
}

func (it *PageItem) clickIn(ctx context.Context, scope *rod.Element, selector string) error {
	ok, btn, err := scope.Context(ctx).Has(selector)
	if err != nil {
		return fmt.Errorf("feed: find %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("feed: %q: %w", selector, ErrNotFound)
	}
	if err := btn.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("feed: click %q: %w", selector, err)
	}
	return nil
}
