package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	Role         string
	JourneyStage string
	Milestones   []string
	CreatedAt    time.Time
}

const userColumns = `id, email, display_name, role, journey_stage, milestones, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.JourneyStage, &u.Milestones, &u.CreatedAt)
	if isNoRows(err) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUsersByIDs resolves users in one round trip. Unknown ids are absent
// from the result.
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]User, error) {
	result := make(map[uuid.UUID]User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result[u.ID] = u
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
