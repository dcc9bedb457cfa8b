package engage

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/feedloop/feed"
)

// instantWaiter removes all wall-clock delays: sleeps are recorded but
// not performed, and polls re-evaluate the predicate a bounded number
// of times without waiting.
type instantWaiter struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (w *instantWaiter) Sleep(ctx context.Context, d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sleeps = append(w.sleeps, d)
}

func (w *instantWaiter) Poll(ctx context.Context, interval, deadline time.Duration, pred func() bool) bool {
	for i := 0; i < 10; i++ {
		if pred() {
			return true
		}
	}
	return false
}

func (w *instantWaiter) sleepCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sleeps)
}

type fakeItem struct {
	mu     sync.Mutex
	id     string
	bounds feed.Rect
	text   string
	html   string

	liked          bool
	likeErrs       []error
	likeCalls      int
	likeSilentFail bool

	composerOpen  bool
	openErrs      []error
	composerText  string
	insertErr     error
	insertIgnored bool
	typeErr       error
	submitErr     error
	submitCalls   int
	dismissCalls  int
	scrollCalls   int
}

func (f *fakeItem) ID() string { return f.id }

func (f *fakeItem) Bounds(ctx context.Context) (feed.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bounds, nil
}

func (f *fakeItem) ScrollIntoView(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrollCalls++
	return nil
}

func (f *fakeItem) Text(ctx context.Context) (string, error) {
	return f.text, nil
}

func (f *fakeItem) HTML(ctx context.Context) (string, error) {
	return f.html, nil
}

func (f *fakeItem) Liked(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liked, nil
}

func (f *fakeItem) Like(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likeCalls++
	if len(f.likeErrs) > 0 {
		err := f.likeErrs[0]
		f.likeErrs = f.likeErrs[1:]
		if err != nil {
			return err
		}
	}
	if !f.likeSilentFail {
		f.liked = true
	}
	return nil
}

func (f *fakeItem) OpenComposer(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return err
		}
	}
	f.composerOpen = true
	return nil
}

func (f *fakeItem) ComposerReady(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.composerOpen, nil
}

func (f *fakeItem) InsertReply(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if !f.insertIgnored {
		f.composerText = text
	}
	return nil
}

func (f *fakeItem) ComposerText(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.composerText, nil
}

func (f *fakeItem) TypeReply(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.typeErr != nil {
		return f.typeErr
	}
	f.composerText = text
	return nil
}

func (f *fakeItem) SubmitReply(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitCalls++
	f.composerOpen = false
	return nil
}

func (f *fakeItem) DismissComposer(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissCalls++
	f.composerOpen = false
	return nil
}

type fakeSurface struct {
	mu           sync.Mutex
	items        []feed.Item
	viewport     feed.Rect
	atBottom     bool
	scrolls      int
	reloads      int
	visibleCalls int
}

func newFakeSurface(items ...feed.Item) *fakeSurface {
	return &fakeSurface{
		items:    items,
		viewport: feed.Rect{X: 0, Y: 0, Width: 1200, Height: 800},
	}
}

func (s *fakeSurface) VisibleItems(ctx context.Context) ([]feed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visibleCalls++
	out := make([]feed.Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *fakeSurface) Viewport(ctx context.Context) (feed.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport, nil
}

func (s *fakeSurface) ScrollBy(ctx context.Context, fraction float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolls++
	return nil
}

func (s *fakeSurface) AtBottom(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atBottom, nil
}

func (s *fakeSurface) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloads++
	return nil
}

// fakeSource is a hand-cranked ChangeSource: Fire delivers one raw
// notification to the subscriber.
type fakeSource struct {
	mu           sync.Mutex
	fn           func()
	subscribes   int
	unsubscribes int
}

func (s *fakeSource) Subscribe(ctx context.Context, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribes++
	s.fn = fn
	return nil
}

func (s *fakeSource) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribes++
	s.fn = nil
}

func (s *fakeSource) Fire() {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type recordingRequester struct {
	mu       sync.Mutex
	requests []string
	err      error
}

func (r *recordingRequester) RequestGeneration(ctx context.Context, itemID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.requests = append(r.requests, itemID)
	return nil
}

func (r *recordingRequester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
