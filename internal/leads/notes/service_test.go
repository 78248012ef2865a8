package notes

import (
	"context"
	"strings"
	"testing"
	"time"

	"lead_portal_backend/internal/leads/repository"
	"lead_portal_backend/internal/leads/transport"
	"lead_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads map[uuid.UUID]bool
	users map[uuid.UUID]repository.User
	notes []repository.LeadNote
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	if !f.leads[id] {
		return repository.Lead{}, repository.ErrNotFound
	}
	return repository.Lead{ID: id}, nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) CreateLeadNote(_ context.Context, p repository.CreateLeadNoteParams) (repository.LeadNote, error) {
	if !f.leads[p.LeadID] {
		return repository.LeadNote{}, repository.ErrNotFound
	}
	note := repository.LeadNote{
		ID:         uuid.New(),
		LeadID:     p.LeadID,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		Content:    p.Content,
		CreatedAt:  time.Now(),
	}
	f.notes = append(f.notes, note)
	return note, nil
}

func (f *fakeRepo) ListLeadNotes(_ context.Context, leadID uuid.UUID) ([]repository.LeadNote, error) {
	var out []repository.LeadNote
	for _, n := range f.notes {
		if n.LeadID == leadID {
			out = append(out, n)
		}
	}
	return out, nil
}

func TestAddNoteUsesAuthorProfile(t *testing.T) {
	leadID, authorID := uuid.New(), uuid.New()
	repo := &fakeRepo{
		leads: map[uuid.UUID]bool{leadID: true},
		users: map[uuid.UUID]repository.User{authorID: {ID: authorID, DisplayName: "Operator Olga"}},
	}
	svc := New(repo, nil)

	note, err := svc.Add(context.Background(), leadID, authorID, transport.CreateLeadNoteRequest{Content: "<b>Called</b> back"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if note.AuthorName != "Operator Olga" {
		t.Fatalf("expected author name from profile, got %q", note.AuthorName)
	}
	if note.Content != "Called back" {
		t.Fatalf("expected sanitized content, got %q", note.Content)
	}

	list, err := svc.List(context.Background(), leadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected one note, got %d", len(list.Items))
	}
}

func TestAddNoteValidation(t *testing.T) {
	leadID := uuid.New()
	svc := New(&fakeRepo{leads: map[uuid.UUID]bool{leadID: true}}, nil)

	for _, content := range []string{"", "   ", "<p></p>", strings.Repeat("a", 2001)} {
		if _, err := svc.Add(context.Background(), leadID, uuid.New(), transport.CreateLeadNoteRequest{Content: content}); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %q, got %v", content, err)
		}
	}
}

func TestAddNoteUnknownLead(t *testing.T) {
	svc := New(&fakeRepo{leads: map[uuid.UUID]bool{}}, nil)

	_, err := svc.Add(context.Background(), uuid.New(), uuid.New(), transport.CreateLeadNoteRequest{Content: "hello"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.List(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
