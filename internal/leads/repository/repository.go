package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrStaleStatus is returned when the lead's status changed between
	// read and update.
	ErrStaleStatus = errors.New("lead status changed concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                       uuid.UUID
	UserID                   *uuid.UUID
	Name                     string
	Email                    string
	Company                  *string
	Phone                    *string
	Message                  string
	ProjectType              *string
	Budget                   *string
	Timeline                 *string
	Status                   domain.Status
	Score                    int
	ScoreBreakdown           []byte
	Source                   string
	PagesViewed              int
	TimeOnSiteSecs           int
	LastActivityAt           *time.Time
	Tags                     []string
	QuestionnaireCompletedAt *time.Time
	ContactedAt              *time.Time
	ConvertedAt              *time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

const leadColumns = `id, user_id, name, email, company, phone, message, project_type, budget, timeline,
	status, score, score_breakdown, source, pages_viewed, time_on_site_secs, last_activity_at, tags,
	questionnaire_completed_at, contacted_at, converted_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var status string
	err := row.Scan(
		&lead.ID, &lead.UserID, &lead.Name, &lead.Email, &lead.Company, &lead.Phone, &lead.Message,
		&lead.ProjectType, &lead.Budget, &lead.Timeline,
		&status, &lead.Score, &lead.ScoreBreakdown, &lead.Source,
		&lead.PagesViewed, &lead.TimeOnSiteSecs, &lead.LastActivityAt, &lead.Tags,
		&lead.QuestionnaireCompletedAt, &lead.ContactedAt, &lead.ConvertedAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	lead.Status = domain.Status(status)
	if lead.Tags == nil {
		lead.Tags = []string{}
	}
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

type CreateLeadParams struct {
	UserID         *uuid.UUID
	Name           string
	Email          string
	Company        *string
	Phone          *string
	Message        string
	ProjectType    *string
	Budget         *string
	Timeline       *string
	Source         string
	Score          int
	ScoreBreakdown []byte
	Tags           []string
	// QuestionnaireCompletedAt is set when the lead arrives with answers.
	QuestionnaireCompletedAt *time.Time
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	return scanLead(r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			user_id, name, email, company, phone, message, project_type, budget, timeline,
			source, score, score_breakdown, tags, questionnaire_completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+leadColumns,
		params.UserID, params.Name, params.Email, params.Company, params.Phone, params.Message,
		params.ProjectType, params.Budget, params.Timeline,
		params.Source, params.Score, params.ScoreBreakdown, tags, params.QuestionnaireCompletedAt,
	))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// GetLatestByUserID returns the most recent lead owned by a portal user.
func (r *Repository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE user_id = $1 AND status <> 'archived'
		ORDER BY created_at DESC LIMIT 1
	`, userID))
}

// GetLatestByEmail returns the most recent live lead for an email address.
func (r *Repository) GetLatestByEmail(ctx context.Context, email string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE lower(email) = lower($1) AND status <> 'archived'
		ORDER BY created_at DESC LIMIT 1
	`, email))
}

// HasRecentLeadByEmail reports whether a lead for email was created at or
// after since.
func (r *Repository) HasRecentLeadByEmail(ctx context.Context, email string, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leads WHERE lower(email) = lower($1) AND created_at >= $2
		)
	`, email, since).Scan(&exists)
	return exists, err
}

type ListParams struct {
	Status       *domain.Status
	OrderByScore bool
	Search       string
	Tag          *string
	Offset       int
	Limit        int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads l WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT %s FROM leads l
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, leadOrder(params.OrderByScore), argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListByIDs returns the leads that still exist among ids, in no particular order.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Lead, error) {
	if len(ids) == 0 {
		return []Lead{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// ListAll returns every lead, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func buildLeadListWhere(params ListParams) (string, []any, int) {
	whereClauses := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.status = $%d", argIdx))
		args = append(args, string(*params.Status))
		argIdx++
	}
	if params.Tag != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("$%d = ANY(l.tags)", argIdx))
		args = append(args, *params.Tag)
		argIdx++
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(l.name ILIKE $%d OR l.email ILIKE $%d OR l.company ILIKE $%d)",
			argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func leadOrder(byScore bool) string {
	if byScore {
		return "l.score DESC, l.created_at DESC, l.id"
	}
	return "l.created_at DESC, l.id"
}

// UpdateStatus moves a lead from one status to another. It fails with
// ErrStaleStatus when the stored status is no longer from. Entering
// contacted or converted stamps the matching timestamp once.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			status = $3,
			contacted_at = CASE WHEN $3 = 'contacted' AND contacted_at IS NULL THEN now() ELSE contacted_at END,
			converted_at = CASE WHEN $3 = 'converted' AND converted_at IS NULL THEN now() ELSE converted_at END,
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+leadColumns,
		id, string(from), string(to),
	))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return Lead{}, ErrStaleStatus
		}
	}
	return lead, err
}

// AddTags merges tags into the lead's tag set.
func (r *Repository) AddTags(ctx context.Context, id uuid.UUID, tags []string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			tags = ARRAY(SELECT DISTINCT t FROM unnest(tags || $2::text[]) AS t ORDER BY t),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, tags,
	))
}

// RemoveTag drops one tag; removing an absent tag is not an error.
func (r *Repository) RemoveTag(ctx context.Context, id uuid.UUID, tag string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET tags = array_remove(tags, $2), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, tag,
	))
}

// LinkUser attaches a portal user to a lead that has none yet.
func (r *Repository) LinkUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET user_id = $2, updated_at = now()
		WHERE id = $1 AND (user_id IS NULL OR user_id = $2)
	`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type UpdateScoreParams struct {
	Score          int
	ScoreBreakdown []byte
	ProjectType    *string
	Budget         *string
	Timeline       *string
	CompletedAt    time.Time
}

// UpdateScore stores a questionnaire score. Project metadata is only
// overwritten when a new value is given.
func (r *Repository) UpdateScore(ctx context.Context, id uuid.UUID, params UpdateScoreParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			score = $2,
			score_breakdown = $3,
			project_type = COALESCE($4, project_type),
			budget = COALESCE($5, budget),
			timeline = COALESCE($6, timeline),
			questionnaire_completed_at = COALESCE(questionnaire_completed_at, $7),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.Score, params.ScoreBreakdown, params.ProjectType, params.Budget, params.Timeline, params.CompletedAt,
	))
}

type EngagementParams struct {
	PagesViewed    int
	TimeOnSiteSecs int
	At             time.Time
}

// RecordEngagement adds to the lead's counters and moves last activity
// forward, never back.
func (r *Repository) RecordEngagement(ctx context.Context, id uuid.UUID, params EngagementParams) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			pages_viewed = pages_viewed + $2,
			time_on_site_secs = time_on_site_secs + $3,
			last_activity_at = GREATEST(COALESCE(last_activity_at, $4), $4),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, params.PagesViewed, params.TimeOnSiteSecs, params.At,
	))
}

// StatsSample reduces the lead to what dashboard counters need.
func (l Lead) StatsSample() domain.StatsSample {
	return domain.StatsSample{
		Status:                 l.Status,
		Score:                  l.Score,
		CreatedAt:              l.CreatedAt,
		QuestionnaireCompleted: l.QuestionnaireCompletedAt != nil,
	}
}

// StatsSamples maps StatsSample over leads.
func StatsSamples(leads []Lead) []domain.StatsSample {
	samples := make([]domain.StatsSample, len(leads))
	for i, l := range leads {
		samples[i] = l.StatsSample()
	}
	return samples
}
