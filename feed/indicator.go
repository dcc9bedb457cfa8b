package feed

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// Badge is the floating on-page indicator shown while automation is
// enabled. Purely informational; every operation is best-effort.
type Badge struct {
	page *rod.Page
}

// NewBadge creates a Badge for the given page.
func NewBadge(page *rod.Page) *Badge {
	return &Badge{page: page}
}

// Show injects the badge element. Idempotent.
func (b *Badge) Show(ctx context.Context) error {
	_, err := b.page.Context(ctx).Eval(`() => {
		if (document.getElementById('feedloop-badge')) return;
		const el = document.createElement('div');
		el.id = 'feedloop-badge';
		el.textContent = 'feedloop active';
		el.style.cssText = 'position:fixed;bottom:12px;right:12px;z-index:2147483647;' +
			'padding:6px 10px;border-radius:6px;background:#1a7f37;color:#fff;' +
			'font:12px sans-serif;opacity:0.85;pointer-events:none;';
		document.body.appendChild(el);
	}`)
	if err != nil {
		return fmt.Errorf("feed: show badge: %w", err)
	}
	return nil
}

// Hide removes the badge element. Idempotent.
func (b *Badge) Hide(ctx context.Context) error {
	_, err := b.page.Context(ctx).Eval(`() => {
		const el = document.getElementById('feedloop-badge');
		if (el) el.remove();
	}`)
	if err != nil {
		return fmt.Errorf("feed: hide badge: %w", err)
	}
	return nil
}
