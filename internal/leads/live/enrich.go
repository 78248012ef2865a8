package live

import (
	"context"
	"errors"

	"lead_portal_backend/internal/leads/repository"
	questionnairerepo "lead_portal_backend/internal/questionnaire/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EnhancedLead is a lead with its best-effort joins. User and Session are
// nil when the join is missing or its lookup failed.
type EnhancedLead struct {
	Lead    repository.Lead
	User    *repository.User
	Session *questionnairerepo.Session
}

// UserSource resolves portal users.
type UserSource interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]repository.User, error)
}

// SessionSource resolves questionnaire sessions.
type SessionSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (questionnairerepo.Session, error)
	GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]questionnairerepo.Session, error)
}

const (
	stageUsers    = "user"
	stageSessions = "session"
)

// enrich joins users and sessions onto leads. Each join is tried as one
// multi-get first. When that fails the ids are looked up one by one so a
// single bad record only costs its own lead the join.
func (a *Aggregator) enrich(ctx context.Context, leads []repository.Lead) []EnhancedLead {
	out := make([]EnhancedLead, len(leads))
	userIDs := make([]uuid.UUID, 0, len(leads))
	seen := make(map[uuid.UUID]struct{}, len(leads))
	for i, l := range leads {
		out[i].Lead = l
		if l.UserID == nil {
			continue
		}
		if _, dup := seen[*l.UserID]; !dup {
			seen[*l.UserID] = struct{}{}
			userIDs = append(userIDs, *l.UserID)
		}
	}
	if len(userIDs) == 0 {
		return out
	}

	users := lookupAll(ctx, a, stageUsers, userIDs,
		a.users.GetUsersByIDs,
		a.users.GetUserByID,
		func(err error) bool { return errors.Is(err, repository.ErrUserNotFound) },
	)

	found := make([]uuid.UUID, 0, len(users))
	for _, id := range userIDs {
		if _, ok := users[id]; ok {
			found = append(found, id)
		}
	}
	sessions := map[uuid.UUID]questionnairerepo.Session{}
	if len(found) > 0 {
		sessions = lookupAll(ctx, a, stageSessions, found,
			a.sessions.GetByUserIDs,
			a.sessions.GetByUserID,
			func(err error) bool { return errors.Is(err, questionnairerepo.ErrNotFound) },
		)
	}

	for i := range out {
		if out[i].Lead.UserID == nil {
			continue
		}
		uid := *out[i].Lead.UserID
		if u, ok := users[uid]; ok {
			out[i].User = &u
			if s, ok := sessions[uid]; ok {
				out[i].Session = &s
			}
		}
	}
	return out
}

func lookupAll[T any](
	ctx context.Context,
	a *Aggregator,
	stage string,
	ids []uuid.UUID,
	many func(context.Context, []uuid.UUID) (map[uuid.UUID]T, error),
	one func(context.Context, uuid.UUID) (T, error),
	missing func(error) bool,
) map[uuid.UUID]T {
	res, err := a.breaker.Execute(func() (interface{}, error) {
		return many(ctx, ids)
	})
	if err == nil {
		return res.(map[uuid.UUID]T)
	}
	a.log.Warn("batched enrichment failed, falling back to single lookups", "stage", stage, "error", err)

	values := make([]*T, len(ids))
	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			v, err := a.breaker.Execute(func() (interface{}, error) {
				v, err := one(ctx, id)
				if err != nil && missing(err) {
					return nil, nil
				}
				return v, err
			})
			if err != nil {
				a.enrichmentFailed(id, stage, err)
				return nil
			}
			if v != nil {
				t := v.(T)
				values[i] = &t
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[uuid.UUID]T, len(ids))
	for i, id := range ids {
		if values[i] != nil {
			out[id] = *values[i]
		}
	}
	return out
}

func (a *Aggregator) enrichmentFailed(id uuid.UUID, stage string, err error) {
	a.log.EnrichmentFailed(stage, id.String(), err)
	if a.metrics != nil {
		a.metrics.EnrichmentFailures.WithLabelValues(stage).Inc()
	}
}
