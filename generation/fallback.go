package generation

import "math/rand"

// fallbackPhrases are substituted when generation fails, times out, or
// no API key is configured. The core treats them identically to
// generated replies.
var fallbackPhrases = []string{
	"Great point, thanks for sharing!",
	"Interesting perspective on this.",
	"Thanks for posting this, really useful.",
	"Well said!",
	"Appreciate you sharing your experience here.",
}

// FallbackPhrase picks one canned reply. pick may be nil, in which case
// the package-level rand is used.
func FallbackPhrase(pick func(n int) int) string {
	if pick == nil {
		pick = rand.Intn
	}
	return fallbackPhrases[pick(len(fallbackPhrases))]
}
