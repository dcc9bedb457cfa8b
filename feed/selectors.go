package feed

// Selectors locates feed affordances on the target site. Every field is
// a CSS selector; item-scoped selectors are resolved relative to the
// item element, composer-scoped ones relative to the document (reply
// composers are often rendered in an overlay outside the item subtree).
type Selectors struct {
	// Item matches one feed post container.
	Item string `yaml:"item"`
	// Body matches the post's text body, scoped to the item.
	Body string `yaml:"body"`
	// LikeButton matches the like affordance, scoped to the item.
	LikeButton string `yaml:"like_button"`
	// LikedMarker is present when the item is already liked, scoped to
	// the item.
	LikedMarker string `yaml:"liked_marker"`
	// ReplyButton matches the reply affordance, scoped to the item.
	ReplyButton string `yaml:"reply_button"`
	// Composer matches the reply input (contenteditable or textarea).
	Composer string `yaml:"composer"`
	// Submit matches the composer's submit affordance.
	Submit string `yaml:"submit"`
	// Close matches composer dismiss affordances.
	Close string `yaml:"close"`
}

// ApplyDefaults fills empty selectors with values for a generic
// role-annotated feed.
func (s *Selectors) ApplyDefaults() {
	if s.Item == "" {
		s.Item = `[role="article"]`
	}
	if s.Body == "" {
		s.Body = `[data-testid="post-body"]`
	}
	if s.LikeButton == "" {
		s.LikeButton = `button[aria-label*="Like" i]`
	}
	if s.LikedMarker == "" {
		s.LikedMarker = `button[aria-pressed="true"][aria-label*="Like" i]`
	}
	if s.ReplyButton == "" {
		s.ReplyButton = `button[aria-label*="Reply" i]`
	}
	if s.Composer == "" {
		s.Composer = `[contenteditable="true"][role="textbox"]`
	}
	if s.Submit == "" {
		s.Submit = `button[aria-label*="Submit" i], button[type="submit"]`
	}
	if s.Close == "" {
		s.Close = `button[aria-label*="Close" i], button[aria-label*="Dismiss" i]`
	}
}
