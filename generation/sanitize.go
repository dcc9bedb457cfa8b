package generation

import (
	"strings"
	"unicode"
)

// Sanitize makes raw model output safe to paste into a composer: quotes
// and newlines stripped, non-portable characters dropped, whitespace
// collapsed, hard-truncated to max runes at a word boundary where
// possible.
func Sanitize(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r == '"' || r == '\'' || r == '“' || r == '”' || r == '‘' || r == '’' || r == '`':
			// Models love to wrap replies in quotes.
		case r > unicode.MaxASCII:
			// Emojis and decorative unicode read as canned on most feeds.
		case unicode.IsPrint(r):
			b.WriteRune(r)
		}
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	if max <= 0 || len(out) <= max {
		return out
	}

	cut := out[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:")
}
