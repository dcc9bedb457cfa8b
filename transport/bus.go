// Package transport is the message channel between the automation core
// and the background coordinator. Both sides register handlers by
// message type; Call dispatches either to an in-memory function (same
// binary) or to a remote endpoint built by a transport factory.
//
// The contract is at-most-once and asynchronous-friendly: Notify fires
// a message and swallows any failure, because a vanished remote
// endpoint must never crash the automation loop.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Handler is a transport-agnostic message handler: bytes in, bytes out.
// Both local Go functions and remote clients implement this signature.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// HandlerMiddleware wraps a Handler with cross-cutting behaviour.
type HandlerMiddleware func(Handler) Handler

// Factory creates a Handler for a remote endpoint. The returned close
// function is called when the route is replaced; it may be nil.
type Factory func(endpoint string, config json.RawMessage) (handler Handler, close func(), err error)

// ErrNoHandler is returned by Call when no handler is registered for a
// message type.
type ErrNoHandler struct {
	Type string
}

func (e *ErrNoHandler) Error() string {
	return fmt.Sprintf("transport: no handler for %q", e.Type)
}

type remoteEntry struct {
	handler Handler
	close   func()
}

// Bus dispatches typed messages. Thread-safe.
type Bus struct {
	mu     sync.RWMutex
	local  map[string]Handler
	remote map[string]remoteEntry
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets a custom logger for the bus.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		local:  make(map[string]Handler),
		remote: make(map[string]remoteEntry),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// RegisterLocal registers an in-memory handler for a message type,
// optionally wrapped in middleware (applied right to left).
func (b *Bus) RegisterLocal(msgType string, h Handler, mw ...HandlerMiddleware) {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	b.mu.Lock()
	b.local[msgType] = h
	b.mu.Unlock()
}

// RegisterRemote builds a remote handler via the factory and routes the
// message type to it, replacing (and closing) any previous remote route.
func (b *Bus) RegisterRemote(msgType, endpoint string, f Factory, config json.RawMessage) error {
	h, closeFn, err := f(endpoint, config)
	if err != nil {
		return fmt.Errorf("transport: build remote route %q: %w", msgType, err)
	}

	b.mu.Lock()
	if old, ok := b.remote[msgType]; ok && old.close != nil {
		old.close()
	}
	b.remote[msgType] = remoteEntry{handler: h, close: closeFn}
	b.mu.Unlock()

	b.logger.Info("transport: remote route built", "type", msgType, "endpoint", endpoint)
	return nil
}

// Call dispatches a message and waits for the response. Remote routes
// take priority over local handlers.
func (b *Bus) Call(ctx context.Context, msgType string, payload []byte) ([]byte, error) {
	b.mu.RLock()
	entry, hasRemote := b.remote[msgType]
	localH := b.local[msgType]
	b.mu.RUnlock()

	if hasRemote {
		b.logger.DebugContext(ctx, "transport: dispatch remote", "type", msgType)
		return entry.handler(ctx, payload)
	}
	if localH != nil {
		b.logger.DebugContext(ctx, "transport: dispatch local", "type", msgType)
		return localH(ctx, payload)
	}
	return nil, &ErrNoHandler{Type: msgType}
}

// Notify marshals v and dispatches it without caring about the result.
// Failures (including a missing handler) are logged and dropped: the
// channel is at-most-once and may fail silently when the remote side is
// gone.
func (b *Bus) Notify(ctx context.Context, msgType string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("transport: marshal notify", "type", msgType, "error", err)
		return
	}
	if _, err := b.Call(ctx, msgType, payload); err != nil {
		b.logger.Debug("transport: notify dropped", "type", msgType, "error", err)
	}
}

// Close shuts down all remote routes.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, entry := range b.remote {
		if entry.close != nil {
			entry.close()
		}
	}
	b.remote = make(map[string]remoteEntry)
	return nil
}
