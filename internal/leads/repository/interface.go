package repository

import (
	"context"
	"time"

	"lead_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (Lead, error)
	GetLatestByEmail(ctx context.Context, email string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]Lead, error)
	ListAll(ctx context.Context) ([]Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (Lead, error)
	AddTags(ctx context.Context, id uuid.UUID, tags []string) (Lead, error)
	RemoveTag(ctx context.Context, id uuid.UUID, tag string) (Lead, error)
	LinkUser(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

// ScoreWriter records questionnaire scoring results on a lead.
type ScoreWriter interface {
	UpdateScore(ctx context.Context, id uuid.UUID, params UpdateScoreParams) (Lead, error)
}

// EngagementWriter accumulates visitor engagement on a lead.
type EngagementWriter interface {
	RecordEngagement(ctx context.Context, id uuid.UUID, params EngagementParams) (Lead, error)
}

// DuplicateFinder backs intake duplicate detection.
type DuplicateFinder interface {
	HasRecentLeadByEmail(ctx context.Context, email string, since time.Time) (bool, error)
}

// NoteStore manages lead notes. Notes are append-only.
type NoteStore interface {
	CreateLeadNote(ctx context.Context, params CreateLeadNoteParams) (LeadNote, error)
	ListLeadNotes(ctx context.Context, leadID uuid.UUID) ([]LeadNote, error)
}

// UserReader resolves portal user profiles.
type UserReader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]User, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ScoreWriter
	EngagementWriter
	DuplicateFinder
	NoteStore
	UserReader
}

// Ensure Repository implements LeadsRepository
var _ LeadsRepository = (*Repository)(nil)
