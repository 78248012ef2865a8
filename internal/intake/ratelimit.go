// Package intake gates lead submissions before they reach storage: a
// sliding-window attempt limiter plus a recent-duplicate check.
package intake

import (
	"context"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"lead_portal_backend/platform/config"

	"golang.org/x/crypto/blake2b"
)

// LimitConfig configures one limiter instance. Name namespaces its keys, so
// two instances never share state even for the same identifier.
type LimitConfig struct {
	Name          string
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

var (
	// FormLimit guards public contact and questionnaire submissions.
	FormLimit = LimitConfig{Name: "form", MaxAttempts: 3, Window: 10 * time.Minute, BlockDuration: 30 * time.Minute}
	// AuthLimit guards authentication attempts.
	AuthLimit = LimitConfig{Name: "auth", MaxAttempts: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute}
)

// FromSettings overrides the thresholds of base with configured values.
func FromSettings(base LimitConfig, s config.RateLimitSettings) LimitConfig {
	base.MaxAttempts = s.MaxAttempts
	base.Window = s.Window
	base.BlockDuration = s.BlockDuration
	return base
}

// Decision is the limiter's verdict for one identifier.
type Decision struct {
	Allowed    bool
	Attempts   int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the remaining block up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// RateLimiter counts failed attempts per identifier within a rolling window
// and blocks the identifier once MaxAttempts is reached. A success clears
// the identifier entirely.
type RateLimiter struct {
	cfg   LimitConfig
	store Store
	now   func() time.Time

	// Serialises read-modify-write within this process. Separate
	// processes sharing a Store can still interleave.
	mu sync.Mutex
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *RateLimiter) { r.now = now }
}

func NewRateLimiter(cfg LimitConfig, store Store, opts ...Option) *RateLimiter {
	r := &RateLimiter{cfg: cfg, store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the configured limiter name.
func (r *RateLimiter) Name() string { return r.cfg.Name }

func (r *RateLimiter) key(identifier string) string {
	sum := blake2b.Sum256([]byte(identifier))
	return "ratelimit:" + r.cfg.Name + ":" + hex.EncodeToString(sum[:])
}

func (r *RateLimiter) ttl() time.Duration {
	return r.cfg.Window + r.cfg.BlockDuration
}

// Check reports whether identifier may attempt now. It never mutates state.
func (r *RateLimiter) Check(ctx context.Context, identifier string) (Decision, error) {
	entry, ok, err := r.store.Get(ctx, r.key(identifier))
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Allowed: true}, nil
	}

	now := r.now()
	if remaining := blockRemaining(entry, now); remaining > 0 {
		return Decision{Allowed: false, Attempts: entry.Attempts, RetryAfter: remaining}, nil
	}
	if now.Sub(entry.LastAttempt) > r.cfg.Window {
		return Decision{Allowed: true}, nil
	}
	return Decision{Allowed: true, Attempts: entry.Attempts}, nil
}

// RecordFailure counts a failed attempt. The attempt that reaches
// MaxAttempts starts the block and is itself rejected.
func (r *RateLimiter) RecordFailure(ctx context.Context, identifier string) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(identifier)
	entry, _, err := r.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	now := r.now()
	if remaining := blockRemaining(entry, now); remaining > 0 {
		return Decision{Allowed: false, Attempts: entry.Attempts, RetryAfter: remaining}, nil
	}
	if entry.BlockedUntil != nil || now.Sub(entry.LastAttempt) > r.cfg.Window {
		entry = Entry{}
	}

	entry.Attempts++
	entry.LastAttempt = now

	decision := Decision{Allowed: true, Attempts: entry.Attempts}
	if entry.Attempts >= r.cfg.MaxAttempts {
		until := now.Add(r.cfg.BlockDuration)
		entry.BlockedUntil = &until
		decision.Allowed = false
		decision.RetryAfter = r.cfg.BlockDuration
	}

	if err := r.store.Set(ctx, key, entry, r.ttl()); err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// RecordSuccess deletes the identifier's entry.
func (r *RateLimiter) RecordSuccess(ctx context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, r.key(identifier))
}

// Blocked, Fail and Succeed let the limiter guard authentication middleware.

func (r *RateLimiter) Blocked(ctx context.Context, identifier string) (int, bool, error) {
	d, err := r.Check(ctx, identifier)
	if err != nil {
		return 0, false, err
	}
	return d.RetryAfterSeconds(), !d.Allowed, nil
}

func (r *RateLimiter) Fail(ctx context.Context, identifier string) error {
	_, err := r.RecordFailure(ctx, identifier)
	return err
}

func (r *RateLimiter) Succeed(ctx context.Context, identifier string) error {
	return r.RecordSuccess(ctx, identifier)
}

func blockRemaining(e Entry, now time.Time) time.Duration {
	if e.BlockedUntil == nil {
		return 0
	}
	return e.BlockedUntil.Sub(now)
}
