package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UpsertUser creates the user on first sight with the given plan and returns
// the stored record. An existing user keeps their stored plan: the
// email-derived plan only applies once.
func (s *Store) UpsertUser(ctx context.Context, email, initialPlan string) (User, error) {
	id := uuid.NewString()
	query := `
INSERT INTO users (id, email, plan)
VALUES (?, ?, ?)
ON CONFLICT(email) DO UPDATE SET
  updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
RETURNING id, email, plan, created_at, updated_at;
`

	var out User
	if err := s.db.QueryRowContext(ctx, query, id, strings.ToLower(strings.TrimSpace(email)), initialPlan).Scan(
		&out.ID,
		&out.Email,
		&out.Plan,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}

	return out, nil
}

// UserByEmail looks up a user record; ErrNotFound when absent.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	query := `
SELECT id, email, plan, created_at, updated_at
FROM users
WHERE email = ?
LIMIT 1;
`

	var out User
	err := s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&out.ID,
		&out.Email,
		&out.Plan,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("user by email: %w", err)
	}
	return out, nil
}

// SetPlan updates a user's stored plan.
func (s *Store) SetPlan(ctx context.Context, email, planName string) error {
	result, err := s.db.ExecContext(ctx, `
UPDATE users
SET plan = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE email = ?;
`, planName, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set plan rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
