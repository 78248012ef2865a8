// Package events is the in-process publish/subscribe bus that lets modules
// react to each other without importing each other.
package events

import (
	"context"
	"time"
)

// Event is anything published on the bus. EventName is the subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events to carry the publish time.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Bus delivers events to the handlers subscribed under their EventName.
// Publish does not wait for handlers and drops their errors after logging;
// PublishSync runs them in the caller's goroutine and returns the first error.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
