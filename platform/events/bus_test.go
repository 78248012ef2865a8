package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"lead_portal_backend/platform/logger"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsAllHandlersAndReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls atomic.Int32
	boom := errors.New("boom")

	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return boom
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls.Load())
	}
}

func TestPublishRecoversFromPanickingHandler(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	done := make(chan struct{})

	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		panic("handler exploded")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second handler was not invoked")
	}
	bus.Close()
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	bus.Publish(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	bus.Close()
}
