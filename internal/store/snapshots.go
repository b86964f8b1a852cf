package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateSnapshot stores a recorded unit. Writing the same (record, sequence)
// twice is a no-op, which makes replays safe.
func (s *Store) CreateSnapshot(ctx context.Context, n NewSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_snapshots (id, record_id, sequence, unit_seconds, cumulative_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(record_id, sequence) DO NOTHING`,
		uuid.NewString(), n.RecordID, n.Sequence, n.UnitSeconds, n.CumulativeSeconds, s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s#%d: %w", n.RecordID, n.Sequence, err)
	}
	return nil
}

// ListSnapshots returns a record's snapshots in sequence order.
func (s *Store) ListSnapshots(ctx context.Context, recordID string) ([]TaskSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, sequence, unit_seconds, cumulative_seconds, created_at
		 FROM task_snapshots WHERE record_id = ? ORDER BY sequence`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []TaskSnapshot
	for rows.Next() {
		var sn TaskSnapshot
		var createdAt string
		if err := rows.Scan(&sn.ID, &sn.RecordID, &sn.Sequence, &sn.UnitSeconds, &sn.CumulativeSeconds, &createdAt); err != nil {
			return nil, err
		}
		sn.CreatedAt = parseTime(createdAt)
		snaps = append(snaps, sn)
	}
	return snaps, rows.Err()
}
