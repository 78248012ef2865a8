package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lead_portal_backend/platform/logger"
)

// InMemoryBus dispatches events to handlers registered in this process.
// Publish runs handlers on their own goroutines; Close waits for them.
type InMemoryBus struct {
	log *logger.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		log:      log,
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish fans the event out asynchronously. Handler errors and panics are
// logged, never propagated to the publisher.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.snapshot(event.EventName())
	if len(handlers) == 0 {
		return
	}

	// Detach from request cancellation; handlers outlive the request.
	ctx = context.WithoutCancel(ctx)
	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := b.invoke(ctx, h, event); err != nil {
				b.log.Error("event handler failed",
					slog.String("event", event.EventName()),
					slog.String("error", err.Error()),
				)
			}
		}(h)
	}
}

// PublishSync runs every handler in registration order and returns the first
// error. Remaining handlers still run.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var first error
	for _, h := range b.snapshot(event.EventName()) {
		if err := b.invoke(ctx, h, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close blocks until in-flight asynchronous handlers finish.
func (b *InMemoryBus) Close() {
	b.wg.Wait()
}

func (b *InMemoryBus) snapshot(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[name]...)
}

func (b *InMemoryBus) invoke(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic for %s: %v", event.EventName(), r)
		}
	}()
	return h.Handle(ctx, event)
}
