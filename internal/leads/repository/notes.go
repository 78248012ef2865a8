package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type LeadNote struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

type CreateLeadNoteParams struct {
	LeadID     uuid.UUID
	AuthorID   uuid.UUID
	AuthorName string
	Content    string
}

func (r *Repository) CreateLeadNote(ctx context.Context, params CreateLeadNoteParams) (LeadNote, error) {
	var note LeadNote
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_notes (lead_id, author_id, author_name, content)
		SELECT l.id, $2, $3, $4 FROM leads l WHERE l.id = $1
		RETURNING id, lead_id, author_id, author_name, content, created_at
	`, params.LeadID, params.AuthorID, params.AuthorName, params.Content).Scan(
		&note.ID,
		&note.LeadID,
		&note.AuthorID,
		&note.AuthorName,
		&note.Content,
		&note.CreatedAt,
	)
	if isNoRows(err) {
		return LeadNote{}, ErrNotFound
	}
	return note, err
}

// ListLeadNotes returns a lead's notes oldest first.
func (r *Repository) ListLeadNotes(ctx context.Context, leadID uuid.UUID) ([]LeadNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, author_id, author_name, content, created_at
		FROM lead_notes
		WHERE lead_id = $1
		ORDER BY created_at, id
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]LeadNote, 0)
	for rows.Next() {
		var note LeadNote
		if err := rows.Scan(
			&note.ID,
			&note.LeadID,
			&note.AuthorID,
			&note.AuthorName,
			&note.Content,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return notes, nil
}
