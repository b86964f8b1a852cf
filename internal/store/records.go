package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func (s *Store) CreateRecord(ctx context.Context, r NewRecord) (*TaskRecord, error) {
	label := strings.TrimSpace(r.UnitLabel)
	if label == "" {
		label = DefaultUnitLabel
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_records (id, task_id, total_units, unit_label, total_budget_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, r.TaskID, r.TotalUnits, label, r.TotalBudgetSeconds, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return s.GetRecord(ctx, id)
}

func (s *Store) GetRecord(ctx context.Context, id string) (*TaskRecord, error) {
	r := &TaskRecord{}
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, total_units, unit_label, total_budget_seconds, completed_count, created_at
		 FROM task_records WHERE id = ?`, id,
	).Scan(&r.ID, &r.TaskID, &r.TotalUnits, &r.UnitLabel, &r.TotalBudgetSeconds, &r.CompletedCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	r.CreatedAt = parseTime(createdAt)
	return r, nil
}

// UpdateRecord applies a patch. The completed count never moves backwards, so
// acknowledgements arriving out of order cannot undo a later one.
func (s *Store) UpdateRecord(ctx context.Context, id string, p RecordPatch) error {
	var sets []string
	var args []any
	if p.TotalUnits != nil {
		sets = append(sets, `total_units = ?`)
		args = append(args, *p.TotalUnits)
	}
	if p.CompletedCount != nil {
		sets = append(sets, `completed_count = MAX(completed_count, ?)`)
		args = append(args, *p.CompletedCount)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE task_records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		return fmt.Errorf("update record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update record %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete record %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRecordsWithSnapshots returns records joined with their task name and
// snapshot totals, newest first.
func (s *Store) ListRecordsWithSnapshots(ctx context.Context, f RecordFilter) ([]RecordSummary, error) {
	query := `
		SELECT r.id, r.task_id, t.name, r.total_units, r.unit_label, r.total_budget_seconds,
		       r.completed_count, r.created_at, COALESCE(s.n, 0), COALESCE(s.total, 0)
		FROM task_records r
		JOIN tasks t ON t.id = r.task_id
		LEFT JOIN (
			SELECT record_id, COUNT(*) AS n, SUM(unit_seconds) AS total
			FROM task_snapshots GROUP BY record_id
		) s ON s.record_id = r.id
		WHERE 1=1`
	var args []any
	if f.UserID != "" {
		query += ` AND t.user_id = ?`
		args = append(args, f.UserID)
	}
	if f.TaskName != "" {
		query += ` AND t.name = ?`
		args = append(args, f.TaskName)
	}
	query += ` ORDER BY r.created_at DESC, r.rowid DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []RecordSummary
	for rows.Next() {
		var r RecordSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.TaskID, &r.TaskName, &r.TotalUnits, &r.UnitLabel, &r.TotalBudgetSeconds,
			&r.CompletedCount, &createdAt, &r.SnapshotCount, &r.UnitSecondsSum); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
