package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, normalizeEmail(email), username, passwordHash, s.now(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("insert user %s: %w", email, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE id = ?`, id,
	))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users WHERE email = ?`, normalizeEmail(email),
	))
}

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
