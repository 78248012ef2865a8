package intake

import (
	"context"
	"errors"
	"time"

	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultDuplicateWindow is how far back a submission with the same email
// counts as a duplicate.
const DefaultDuplicateWindow = 24 * time.Hour

var (
	ErrRateLimited         = errors.New("intake: too many attempts")
	ErrDuplicateSubmission = errors.New("intake: duplicate submission")
)

// Reason explains a rejected admission.
type Reason string

const (
	ReasonRateLimited Reason = "rate_limited"
	ReasonDuplicate   Reason = "duplicate"
)

// Admission is the guard's verdict for one submission.
type Admission struct {
	Allowed           bool   `json:"allowed"`
	Reason            Reason `json:"reason,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// Err maps a rejected admission onto its sentinel error, nil when allowed.
func (a Admission) Err() error {
	switch {
	case a.Allowed:
		return nil
	case a.Reason == ReasonDuplicate:
		return ErrDuplicateSubmission
	default:
		return ErrRateLimited
	}
}

// DuplicateChecker finds leads created for email at or after since.
type DuplicateChecker interface {
	HasRecentLeadByEmail(ctx context.Context, email string, since time.Time) (bool, error)
}

// Guard combines the form rate limiter with duplicate detection.
type Guard struct {
	limiter   *RateLimiter
	dupes     DuplicateChecker
	window    time.Duration
	now       func() time.Time
	log       *logger.Logger
	decisions *prometheus.CounterVec
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

func WithDuplicateWindow(d time.Duration) GuardOption {
	return func(g *Guard) { g.window = d }
}

func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

func WithLogger(log *logger.Logger) GuardOption {
	return func(g *Guard) { g.log = log }
}

// WithDecisionCounter counts outcomes, labelled by limiter and outcome.
func WithDecisionCounter(c *prometheus.CounterVec) GuardOption {
	return func(g *Guard) { g.decisions = c }
}

func NewGuard(limiter *RateLimiter, dupes DuplicateChecker, opts ...GuardOption) *Guard {
	g := &Guard{
		limiter: limiter,
		dupes:   dupes,
		window:  DefaultDuplicateWindow,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit decides whether a submission identified by identifier for email may
// be persisted. The limiter is consulted first; the duplicate lookup only
// runs when it passes. A duplicate counts as a failed attempt.
func (g *Guard) Admit(ctx context.Context, identifier, email string) (Admission, error) {
	decision, err := g.limiter.Check(ctx, identifier)
	if err != nil {
		return Admission{}, apperr.Wrap(apperr.KindUnavailable, "intake check unavailable", err).WithOp("intake.Admit")
	}
	if !decision.Allowed {
		return g.reject(ReasonRateLimited, decision.RetryAfterSeconds()), nil
	}

	dup, err := g.dupes.HasRecentLeadByEmail(ctx, email, g.now().Add(-g.window))
	if err != nil {
		return Admission{}, apperr.Wrap(apperr.KindUnavailable, "duplicate check unavailable", err).WithOp("intake.Admit")
	}
	if dup {
		if _, err := g.limiter.RecordFailure(ctx, identifier); err != nil && g.log != nil {
			g.log.Error("intake failure not recorded", "error", err)
		}
		return g.reject(ReasonDuplicate, 0), nil
	}

	g.count("allowed")
	return Admission{Allowed: true}, nil
}

// Succeeded resets the identifier after the submission was stored.
func (g *Guard) Succeeded(ctx context.Context, identifier string) error {
	return g.limiter.RecordSuccess(ctx, identifier)
}

// Failed records a failed submission, for example invalid input, and
// returns the resulting admission so callers can report a new block.
func (g *Guard) Failed(ctx context.Context, identifier string) (Admission, error) {
	decision, err := g.limiter.RecordFailure(ctx, identifier)
	if err != nil {
		return Admission{}, apperr.Wrap(apperr.KindUnavailable, "intake record unavailable", err).WithOp("intake.Failed")
	}
	if !decision.Allowed {
		return g.reject(ReasonRateLimited, decision.RetryAfterSeconds()), nil
	}
	return Admission{Allowed: true}, nil
}

func (g *Guard) reject(reason Reason, retryAfter int) Admission {
	g.count(string(reason))
	if g.log != nil {
		g.log.IntakeRejected(string(reason), retryAfter)
	}
	return Admission{Allowed: false, Reason: reason, RetryAfterSeconds: retryAfter}
}

func (g *Guard) count(outcome string) {
	if g.decisions != nil {
		g.decisions.WithLabelValues(g.limiter.Name(), outcome).Inc()
	}
}
