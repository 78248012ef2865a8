package live

import (
	"context"
	"time"

	"lead_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the channel the leads triggers notify on.
const NotifyChannel = "lead_changes"

const (
	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// PGFeed listens for lead changes written by any process. It holds one
// pooled connection for the LISTEN and reconnects with backoff when it
// drops.
type PGFeed struct {
	pool      *pgxpool.Pool
	debounce  time.Duration
	log       *logger.Logger
	collector *collector
}

func NewPGFeed(pool *pgxpool.Pool, debounce time.Duration, log *logger.Logger) *PGFeed {
	if log == nil {
		log = logger.Discard()
	}
	return &PGFeed{pool: pool, debounce: debounce, log: log, collector: newCollector()}
}

func (f *PGFeed) Watch(ctx context.Context) (<-chan Batch, error) {
	out := make(chan Batch)
	go f.listen(ctx)
	go f.collector.run(ctx, f.debounce, out)
	return out, nil
}

func (f *PGFeed) listen(ctx context.Context) {
	delay := minReconnectDelay
	for ctx.Err() == nil {
		started := time.Now()
		err := f.listenOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if time.Since(started) > maxReconnectDelay {
			delay = minReconnectDelay
		}
		f.log.Warn("lead change listener disconnected", "error", err, "retryIn", delay.String())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

func (f *PGFeed) listenOnce(ctx context.Context) error {
	pooled, err := f.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// The LISTEN state must not leak back into the pool.
	conn := pooled.Hijack()
	defer conn.Close(context.WithoutCancel(ctx))

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		return err
	}
	f.log.Info("listening for lead changes", "channel", NotifyChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(n.Payload)
		if err != nil {
			f.log.Warn("ignoring malformed lead change payload", "payload", n.Payload)
			continue
		}
		f.collector.add(id)
	}
}
