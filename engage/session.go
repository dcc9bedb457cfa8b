// Package engage is the automation core: a scheduler that discovers
// newly rendered feed items, a queue that serializes engagement
// actions, and an engine that performs likes and comments against the
// page, coordinating with an out-of-process text-generation exchange.
package engage

import (
	"sync"
	"time"
)

// Counters are the running per-session tallies. Seen reflects the last
// full scan's visible-item count, not a cumulative total.
type Counters struct {
	Seen      int `json:"seen"`
	Liked     int `json:"liked"`
	Commented int `json:"commented"`
}

// Session is the process-wide automation state: the enabled/running
// flags, the set of item ids already acted upon, and the counters.
// Mutated only through its methods so the scheduler and engine can be
// unit-tested without a live page.
type Session struct {
	mu         sync.Mutex
	enabled    bool
	running    bool
	processed  map[string]struct{}
	counters   Counters
	lastAction time.Time
}

// NewSession creates an idle, disabled session.
func NewSession() *Session {
	return &Session{processed: make(map[string]struct{})}
}

// SetEnabled flips the enabled flag. Disabling also forces running
// false so a torn-down loop never stays wedged.
func (s *Session) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if !enabled {
		s.running = false
	}
}

// Enabled reports whether automation is switched on.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// TryBeginCycle atomically sets the running flag. Returns false when a
// cycle is already active; the running flag is a mutual-exclusion
// marker, not a queue of waiters.
func (s *Session) TryBeginCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

// EndCycle clears the running flag.
func (s *Session) EndCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Running reports whether an engagement cycle is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// MarkProcessed records an item id as acted upon for this session.
func (s *Session) MarkProcessed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[id] = struct{}{}
}

// IsProcessed reports whether an item id was already acted upon.
func (s *Session) IsProcessed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[id]
	return ok
}

// SetSeen records the visible-item count of the latest scan.
func (s *Session) SetSeen(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Seen = n
}

// AddLiked increments the like counter and stamps the last action.
func (s *Session) AddLiked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Liked++
	s.lastAction = time.Now()
}

// AddCommented increments the comment counter and stamps the last action.
func (s *Session) AddCommented() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Commented++
	s.lastAction = time.Now()
}

// Counters returns a snapshot of the tallies.
func (s *Session) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// LastAction returns the time of the most recent successful action.
func (s *Session) LastAction() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAction
}

// Reset clears the processed set and all counters. Called on feed
// exhaustion before the page reload; the next scan starts fresh.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = make(map[string]struct{})
	s.counters = Counters{}
	s.lastAction = time.Time{}
}
