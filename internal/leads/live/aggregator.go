package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"lead_portal_backend/internal/leads/domain"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/platform/logger"
	"lead_portal_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// MaxSnapshot caps subscriptions that ask for no limit.
const MaxSnapshot = 500

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("live: aggregator closed")

// LeadSource reads leads for snapshots and stats.
type LeadSource interface {
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
	ListAll(ctx context.Context) ([]repository.Lead, error)
}

// Options shape a lead subscription.
type Options struct {
	Status       *domain.Status
	OrderByScore bool
	Limit        int
}

type Config struct {
	Leads    LeadSource
	Users    UserSource
	Sessions SessionSource
	Feed     ChangeFeed
	// Concurrency bounds single lookups when a batched join fails.
	Concurrency int
	Log         *logger.Logger
	Metrics     *metrics.Collector
	Now         func() time.Time
}

// Aggregator fans lead changes out to subscribers.
type Aggregator struct {
	leads       LeadSource
	users       UserSource
	sessions    SessionSource
	feed        ChangeFeed
	breaker     *gobreaker.CircuitBreaker
	concurrency int
	log         *logger.Logger
	metrics     *metrics.Collector
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

func New(cfg Config) *Aggregator {
	a := &Aggregator{
		leads:       cfg.Leads,
		users:       cfg.Users,
		sessions:    cfg.Sessions,
		feed:        cfg.Feed,
		concurrency: cfg.Concurrency,
		log:         cfg.Log,
		metrics:     cfg.Metrics,
		now:         cfg.Now,
		subs:        make(map[uint64]*subscription),
	}
	if a.concurrency < 1 {
		a.concurrency = 8
	}
	if a.log == nil {
		a.log = logger.Discard()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lead-enrichment",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			a.log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return a
}

// Run forwards feed batches to subscribers until ctx ends or Close is
// called.
func (a *Aggregator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	batches, err := a.feed.Watch(ctx)
	if err != nil {
		return err
	}
	for batch := range batches {
		a.dispatch(batch)
	}
	if a.ctx.Err() != nil {
		return ErrClosed
	}
	return ctx.Err()
}

// Close ends every subscription. No callback starts afterwards.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	subs := a.subs
	a.subs = make(map[uint64]*subscription)
	a.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	a.cancel()
}

func (a *Aggregator) dispatch(batch Batch) {
	a.mu.Lock()
	subs := make([]*subscription, 0, len(a.subs))
	for _, s := range a.subs {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	for _, s := range subs {
		s.notify(batch.LeadIDs)
	}
}

// Subscribe delivers the filtered, ordered and enriched lead collection now
// and after every change batch. onError receives store failures; the
// subscription stays open. Once unsubscribe returns no callback starts;
// lookups already running finish and their results are dropped.
func (a *Aggregator) Subscribe(onUpdate func([]EnhancedLead), onError func(error), opts Options) (unsubscribe func()) {
	cache := make(map[uuid.UUID]EnhancedLead)
	return a.register("leads", func(ctx context.Context, s *subscription, changed map[uuid.UUID]struct{}, full bool) {
		leads, err := a.snapshot(ctx, opts)
		if err != nil {
			a.log.Error("lead snapshot failed", "error", err)
			s.deliver(func() {
				if onError != nil {
					onError(err)
				}
			})
			return
		}

		stale := make([]repository.Lead, 0, len(leads))
		for _, l := range leads {
			prev, cached := cache[l.ID]
			_, touched := changed[l.ID]
			if full || !cached || touched || !sameUser(prev.Lead.UserID, l.UserID) {
				stale = append(stale, l)
			}
		}
		for _, e := range a.enrich(ctx, stale) {
			cache[e.Lead.ID] = e
		}

		result := make([]EnhancedLead, len(leads))
		keep := make(map[uuid.UUID]EnhancedLead, len(leads))
		for i, l := range leads {
			e := cache[l.ID]
			e.Lead = l
			result[i] = e
			keep[l.ID] = e
		}
		clear(cache)
		for id, e := range keep {
			cache[id] = e
		}

		s.deliver(func() { onUpdate(result) })
	})
}

// SubscribeToStats delivers the dashboard counters now and after every
// change batch. Counters are recomputed over every lead each time.
func (a *Aggregator) SubscribeToStats(onUpdate func(domain.Stats)) (unsubscribe func()) {
	return a.register("stats", func(ctx context.Context, s *subscription, _ map[uuid.UUID]struct{}, _ bool) {
		leads, err := a.leads.ListAll(ctx)
		if err != nil {
			a.log.Error("lead stats failed", "error", err)
			return
		}
		stats := domain.ComputeStats(repository.StatsSamples(leads), a.now())
		s.deliver(func() { onUpdate(stats) })
	})
}

func (a *Aggregator) snapshot(ctx context.Context, opts Options) ([]repository.Lead, error) {
	limit := opts.Limit
	if limit <= 0 || limit > MaxSnapshot {
		limit = MaxSnapshot
	}
	leads, _, err := a.leads.List(ctx, repository.ListParams{
		Status:       opts.Status,
		OrderByScore: opts.OrderByScore,
		Limit:        limit,
	})
	return leads, err
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (a *Aggregator) register(kind string, refresh refreshFunc) func() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return func() {}
	}
	a.nextID++
	id := a.nextID
	s := newSubscription(a.ctx, kind, refresh, a.metrics)
	a.subs[id] = s
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.ActiveSubscriptions.Inc()
	}
	go s.loop()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
			s.stop()
		})
	}
}

type refreshFunc func(ctx context.Context, s *subscription, changed map[uuid.UUID]struct{}, full bool)

type subscription struct {
	kind    string
	ctx     context.Context
	cancel  context.CancelFunc
	refresh refreshFunc
	metrics *metrics.Collector

	wake    chan struct{}
	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	stopped sync.Once

	// deliverMu is held while a callback runs, so stop returns only after
	// any callback in progress has finished and no new one can start.
	deliverMu sync.Mutex
	closed    bool
}

func newSubscription(parent context.Context, kind string, refresh refreshFunc, m *metrics.Collector) *subscription {
	ctx, cancel := context.WithCancel(parent)
	return &subscription{
		kind:    kind,
		ctx:     ctx,
		cancel:  cancel,
		refresh: refresh,
		metrics: m,
		wake:    make(chan struct{}, 1),
		pending: make(map[uuid.UUID]struct{}),
	}
}

func (s *subscription) loop() {
	// Lookups outlive unsubscribe; their results are discarded by deliver.
	lookupCtx := context.WithoutCancel(s.ctx)

	s.refresh(lookupCtx, s, nil, true)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		s.mu.Lock()
		changed := s.pending
		s.pending = make(map[uuid.UUID]struct{})
		s.mu.Unlock()

		s.refresh(lookupCtx, s, changed, false)
	}
}

// notify queues changed ids. Consecutive batches that arrive while a
// refresh runs are coalesced into the next one.
func (s *subscription) notify(ids []uuid.UUID) {
	s.mu.Lock()
	for _, id := range ids {
		s.pending[id] = struct{}{}
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// deliver runs fn unless the subscription is stopped. Callbacks must not
// call unsubscribe themselves.
func (s *subscription) deliver(fn func()) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return
	}
	fn()
	if s.metrics != nil {
		s.metrics.FeedEmissions.WithLabelValues(s.kind).Inc()
	}
}

func (s *subscription) stop() {
	s.stopped.Do(func() {
		s.deliverMu.Lock()
		s.closed = true
		s.deliverMu.Unlock()
		s.cancel()
		if s.metrics != nil {
			s.metrics.ActiveSubscriptions.Dec()
		}
	})
}
