// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"errors"
	"sync"

	"chantier_crm_backend/platform/logger"
)

// InMemoryBus is a process-local Bus implementation. Handlers registered for
// an event name receive every published event of that name.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers asynchronously.
// Handler errors are logged, not propagated: publishers must not be rolled
// back by listener failures.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	for _, handler := range b.subscribers(event.EventName()) {
		go func(h Handler) {
			if err := h.Handle(context.WithoutCancel(ctx), event); err != nil && b.log != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(handler)
	}
}

// PublishSync dispatches the event to all handlers in order and returns the
// combined error of any that failed.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, handler := range b.subscribers(event.EventName()) {
		if err := handler.Handle(ctx, event); err != nil {
			if b.log != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *InMemoryBus) subscribers(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	registered := b.handlers[eventName]
	out := make([]Handler, len(registered))
	copy(out, registered)
	return out
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)
