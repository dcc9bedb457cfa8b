package feed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed observe.js
var observeJS string

const bindingName = "__feedloop_binding"

// MutationSource reports coarse page-change ticks from an injected
// MutationObserver. It implements the engage change-source contract:
// one callback invocation per binding notification, coalescing left to
// the subscriber's debouncer.
type MutationSource struct {
	page   *rod.Page
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewMutationSource creates a source for an already-navigated page.
func NewMutationSource(page *rod.Page, logger *slog.Logger) *MutationSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &MutationSource{page: page, logger: logger}
}

// Subscribe injects the observer script and starts relaying change
// ticks to fn. Subscribing twice replaces the previous subscription.
func (m *MutationSource) Subscribe(ctx context.Context, fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	subCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(m.page); err != nil {
		m.logger.Warn("feed: add binding failed (may already exist)", "error", err)
	}

	go m.page.Context(subCtx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		fn()
	})()

	if _, err := m.page.Context(subCtx).Eval(observeJS); err != nil {
		cancel()
		m.cancel = nil
		return fmt.Errorf("feed: inject observer: %w", err)
	}

	m.logger.Debug("feed: mutation source subscribed")
	return nil
}

// Unsubscribe stops relaying change ticks. The injected observer stays
// on the page but its notifications go nowhere.
func (m *MutationSource) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
