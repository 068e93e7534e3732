// Package messaging implements the in-memory event bus of the journal.
// The journal has exactly one logical actor (the teacher) and one mutable
// aggregate at a time, so events are dispatched synchronously in the
// publisher's goroutine; a failing handler is logged, never propagated.
package messaging

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
)

// ErrBusClosed is returned when subscribing to a closed bus.
var ErrBusClosed = errors.New("messaging: event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// EventBus is a synchronous in-memory implementation of shared.EventPublisher.
type EventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	logger      *slog.Logger
	closed      bool

	published uint64
	failed    uint64
}

// NewEventBus creates an EventBus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *EventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType, "handler", handler.Name())
	return nil
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish implements shared.EventPublisher. Handlers run synchronously in
// registration order; a handler error is logged and does not stop the rest.
func (b *EventBus) Publish(event shared.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	handlers := make([]shared.EventHandler, 0,
		len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	b.mu.Lock()
	b.published++
	b.mu.Unlock()

	for _, h := range handlers {
		if err := h.Handle(event); err != nil {
			b.mu.Lock()
			b.failed++
			b.mu.Unlock()
			b.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"handler", h.Name(),
				"error", err,
			)
		}
	}
}

// Close stops the bus; later Publish calls are dropped silently.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Stats returns the number of published events and failed handler calls.
func (b *EventBus) Stats() (published, failed uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published, b.failed
}
