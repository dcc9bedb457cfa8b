package generation

import (
	"strings"
	"sync"
)

// fingerprintLen bounds the normalized source text used as a cache key.
const fingerprintLen = 120

// Fingerprint normalizes source text into a cache key: lowercased,
// whitespace collapsed, truncated. Two posts that render the same words
// with different spacing hit the same entry.
func Fingerprint(text string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	runes := []rune(norm)
	if len(runes) > fingerprintLen {
		return string(runes[:fingerprintLen])
	}
	return norm
}

// ReplyCache is a bounded fingerprint→reply map with insertion-order
// eviction: inserting past capacity evicts the single oldest-inserted
// key. Deliberately not LRU — reads never reorder.
type ReplyCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]string
	order    []string
}

// NewReplyCache creates a cache. Capacity defaults to 64 when not
// positive.
func NewReplyCache(capacity int) *ReplyCache {
	if capacity <= 0 {
		capacity = 64
	}
	return &ReplyCache{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
	}
}

// Get returns the cached reply for a fingerprint.
func (c *ReplyCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a reply. Updating an existing key keeps its original
// insertion position.
func (c *ReplyCache) Put(key, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = reply
		return
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = reply
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *ReplyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
