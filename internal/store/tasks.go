package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

func (s *Store) CreateTask(ctx context.Context, userID, name string) (*Task, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, userID, name, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM tasks WHERE id = ?`, id,
	))
}

// FindTask returns the newest task with the given name.
func (s *Store) FindTask(ctx context.Context, userID, name string) (*Task, error) {
	return scanTask(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, created_at FROM tasks
		 WHERE user_id = ? AND name = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, userID, name,
	))
}

// EnsureTask returns the newest task named name, creating it on first use.
func (s *Store) EnsureTask(ctx context.Context, userID, name string) (*Task, error) {
	t, err := s.FindTask(ctx, userID, name)
	if err == nil {
		return t, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	return s.CreateTask(ctx, userID, name)
}

// ListTasks returns the user's tasks, one per name, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, created_at FROM tasks
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var tasks []Task
	for rows.Next() {
		var t Task
		var createdAt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &createdAt); err != nil {
			return nil, err
		}
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		t.CreatedAt = parseTime(createdAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask removes every task with the given name together with their
// records and snapshots.
func (s *Store) DeleteTask(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("delete task %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %q: %w", name, ErrNotFound)
	}
	return nil
}

func scanTask(row *sql.Row) (*Task, error) {
	t := &Task{}
	var createdAt string
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}
