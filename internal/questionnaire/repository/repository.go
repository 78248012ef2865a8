// Package repository persists questionnaire sessions, one per portal user.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lead_portal_backend/internal/questionnaire"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("questionnaire session not found")

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Answer is one stored response. Responses keep the order they were first
// given in.
type Answer struct {
	QuestionID string              `json:"questionId"`
	Value      questionnaire.Value `json:"value"`
}

type Session struct {
	UserID            uuid.UUID
	LeadID            *uuid.UUID
	Status            Status
	Responses         []Answer
	ScoreBreakdown    []byte
	CurrentQuestionID *string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time
}

// ResponseSet indexes the stored answers by question id.
func (s Session) ResponseSet() questionnaire.ResponseSet {
	set := make(questionnaire.ResponseSet, len(s.Responses))
	for _, a := range s.Responses {
		set[a.QuestionID] = a.Value
	}
	return set
}

// SetAnswer replaces the answer to questionID in place or appends it.
func (s *Session) SetAnswer(questionID string, value questionnaire.Value) {
	for i := range s.Responses {
		if s.Responses[i].QuestionID == questionID {
			s.Responses[i].Value = value
			return
		}
	}
	s.Responses = append(s.Responses, Answer{QuestionID: questionID, Value: value})
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `user_id, lead_id, status, responses, score_breakdown, current_question_id,
	started_at, completed_at, updated_at`

func scanSession(row pgx.Row) (Session, error) {
	var (
		s         Session
		status    string
		responses []byte
	)
	err := row.Scan(&s.UserID, &s.LeadID, &status, &responses, &s.ScoreBreakdown, &s.CurrentQuestionID,
		&s.StartedAt, &s.CompletedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	s.Status = Status(status)
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &s.Responses); err != nil {
			return Session{}, err
		}
	}
	if s.Responses == nil {
		s.Responses = []Answer{}
	}
	return s, nil
}

func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM questionnaire_sessions WHERE user_id = $1`, userID))
}

// GetByUserIDs loads sessions for many users. Users without a session are
// absent from the result.
func (r *Repository) GetByUserIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]Session, error) {
	result := make(map[uuid.UUID]Session, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM questionnaire_sessions WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result[s.UserID] = s
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

// Save upserts the session and returns the stored row.
func (r *Repository) Save(ctx context.Context, s Session) (Session, error) {
	responses := s.Responses
	if responses == nil {
		responses = []Answer{}
	}
	raw, err := json.Marshal(responses)
	if err != nil {
		return Session{}, err
	}

	return scanSession(r.pool.QueryRow(ctx, `
		INSERT INTO questionnaire_sessions (
			user_id, lead_id, status, responses, score_breakdown, current_question_id,
			started_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (user_id) DO UPDATE SET
			lead_id = EXCLUDED.lead_id,
			status = EXCLUDED.status,
			responses = EXCLUDED.responses,
			score_breakdown = EXCLUDED.score_breakdown,
			current_question_id = EXCLUDED.current_question_id,
			started_at = COALESCE(questionnaire_sessions.started_at, EXCLUDED.started_at),
			completed_at = EXCLUDED.completed_at,
			updated_at = now()
		RETURNING `+sessionColumns,
		s.UserID, s.LeadID, string(s.Status), raw, s.ScoreBreakdown, s.CurrentQuestionID,
		s.StartedAt, s.CompletedAt,
	))
}
