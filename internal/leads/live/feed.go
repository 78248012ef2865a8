// Package live keeps operator dashboards current. It turns lead change
// notifications into filtered, ordered and enriched lead snapshots and
// recomputed dashboard counters.
package live

import (
	"context"
	"sync"
	"time"

	"lead_portal_backend/internal/events"

	"github.com/google/uuid"
)

// DefaultDebounce is how long feeds wait for more changes before emitting.
const DefaultDebounce = 250 * time.Millisecond

// Batch is one group of lead changes. A batch may name several leads.
type Batch struct {
	LeadIDs []uuid.UUID
}

// ChangeFeed reports lead changes. The channel is closed when ctx ends.
type ChangeFeed interface {
	Watch(ctx context.Context) (<-chan Batch, error)
}

// collector gathers changed ids until they are flushed as one batch.
type collector struct {
	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	order   []uuid.UUID
	signal  chan struct{}
}

func newCollector() *collector {
	return &collector{pending: make(map[uuid.UUID]struct{}), signal: make(chan struct{}, 1)}
}

func (c *collector) add(id uuid.UUID) {
	c.mu.Lock()
	if _, ok := c.pending[id]; !ok {
		c.pending[id] = struct{}{}
		c.order = append(c.order, id)
	}
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

func (c *collector) flush() Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := Batch{LeadIDs: c.order}
	c.pending = make(map[uuid.UUID]struct{})
	c.order = nil
	return batch
}

// run emits a batch debounce after the first change of each burst.
func (c *collector) run(ctx context.Context, debounce time.Duration, out chan<- Batch) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.signal:
		}

		if debounce > 0 {
			timer := time.NewTimer(debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		batch := c.flush()
		if len(batch.LeadIDs) == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case out <- batch:
		}
	}
}

// BusFeed turns LeadChanged events from the in-process bus into batches.
// It only sees changes made by this process.
type BusFeed struct {
	debounce  time.Duration
	collector *collector
}

// NewBusFeed subscribes to LeadChanged on bus.
func NewBusFeed(bus events.Bus, debounce time.Duration) *BusFeed {
	f := &BusFeed{debounce: debounce, collector: newCollector()}
	bus.Subscribe(events.LeadChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if changed, ok := e.(events.LeadChanged); ok {
			f.collector.add(changed.LeadID)
		}
		return nil
	}))
	return f
}

func (f *BusFeed) Watch(ctx context.Context) (<-chan Batch, error) {
	out := make(chan Batch)
	go f.collector.run(ctx, f.debounce, out)
	return out, nil
}
