// Package notes handles lead note operations.
// This is a vertically sliced feature package containing service logic
// for appending and listing operator notes on leads.
package notes

import (
	"context"
	"errors"
	"unicode/utf8"

	"lead_portal_backend/internal/events"
	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/platform/apperr"
	"lead_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const maxNoteLength = 2000

// Repository defines the data access interface needed by the notes service.
// This is a consumer-driven interface - only what notes needs.
type Repository interface {
	// LeadExistenceChecker
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	// AuthorResolver
	GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	repository.NoteStore
}

// Service handles lead note operations.
type Service struct {
	repo     Repository
	eventBus events.Bus
}

// New creates a new notes service.
func New(repo Repository, eventBus events.Bus) *Service {
	return &Service{repo: repo, eventBus: eventBus}
}

// Add appends a note to a lead. The author name is taken from the author's
// portal profile when there is one.
func (s *Service) Add(ctx context.Context, leadID uuid.UUID, authorID uuid.UUID, req transport.CreateLeadNoteRequest) (transport.LeadNoteResponse, error) {
	content := sanitize.StripHTML(req.Content)
	if content == "" || utf8.RuneCountInString(content) > maxNoteLength {
		return transport.LeadNoteResponse{}, apperr.Validation("note content must be between 1 and 2000 characters")
	}

	authorName := ""
	if author, err := s.repo.GetUserByID(ctx, authorID); err == nil {
		authorName = author.DisplayName
		if authorName == "" {
			authorName = author.Email
		}
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return transport.LeadNoteResponse{}, apperr.Wrap(apperr.KindInternal, "failed to resolve note author", err)
	}

	note, err := s.repo.CreateLeadNote(ctx, repository.CreateLeadNoteParams{
		LeadID:     leadID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Content:    content,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadNoteResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadNoteResponse{}, apperr.Wrap(apperr.KindInternal, "failed to add note", err)
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadChanged{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Kind: events.ChangeNote})
	}
	return toLeadNoteResponse(note), nil
}

// List retrieves all notes for a lead, oldest first.
func (s *Service) List(ctx context.Context, leadID uuid.UUID) (transport.LeadNotesResponse, error) {
	// Verify lead exists
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadNotesResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadNotesResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	notesList, err := s.repo.ListLeadNotes(ctx, leadID)
	if err != nil {
		return transport.LeadNotesResponse{}, apperr.Wrap(apperr.KindInternal, "failed to list notes", err)
	}

	items := make([]transport.LeadNoteResponse, len(notesList))
	for i, note := range notesList {
		items[i] = toLeadNoteResponse(note)
	}

	return transport.LeadNotesResponse{Items: items}, nil
}

func toLeadNoteResponse(note repository.LeadNote) transport.LeadNoteResponse {
	return transport.LeadNoteResponse{
		ID:         note.ID,
		LeadID:     note.LeadID,
		AuthorID:   note.AuthorID,
		AuthorName: note.AuthorName,
		Content:    note.Content,
		CreatedAt:  note.CreatedAt,
	}
}
