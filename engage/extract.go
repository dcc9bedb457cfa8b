package engage

import (
	"context"
	"html"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/feedloop/feed"
)

// stripTags removes all markup from post HTML.
var stripTags = bluemonday.StrictPolicy()

// ExtractText pulls the post's text content, trying a prioritized list
// of strategies; the first that yields non-empty text wins. Returns ""
// when nothing is extractable, which callers treat as "cannot comment".
//
// Order: rendered text (what the user sees), tag-stripped HTML (when
// the rendered text is hidden behind clamping), markdown conversion
// (keeps link text and structure when stripping eats too much).
func ExtractText(ctx context.Context, item feed.Item) string {
	if text, err := item.Text(ctx); err == nil {
		if t := collapseSpace(text); t != "" {
			return t
		}
	}

	rawHTML, err := item.HTML(ctx)
	if err != nil || strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	if t := collapseSpace(html.UnescapeString(stripTags.Sanitize(rawHTML))); t != "" {
		return t
	}

	if md, err := htmltomarkdown.ConvertString(rawHTML); err == nil {
		if t := collapseSpace(md); t != "" {
			return t
		}
	}

	return ""
}

// collapseSpace trims and squeezes all whitespace runs to single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
