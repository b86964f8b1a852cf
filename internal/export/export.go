// Package export writes a user's records and their snapshots to CSV, JSON or
// YAML files.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/sadopc/goaltrack/internal/store"
)

// Record is one exported record with its snapshots in sequence order.
type Record struct {
	store.RecordSummary
	Snapshots []store.TaskSnapshot
}

// Source is the read side of the store an export needs.
type Source interface {
	ListRecordsWithSnapshots(ctx context.Context, f store.RecordFilter) ([]store.RecordSummary, error)
	ListSnapshots(ctx context.Context, recordID string) ([]store.TaskSnapshot, error)
}

// Collect loads the records matching f, newest first, with their snapshots.
func Collect(ctx context.Context, src Source, f store.RecordFilter) ([]Record, error) {
	summaries, err := src.ListRecordsWithSnapshots(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(summaries))
	for _, s := range summaries {
		snaps, err := src.ListSnapshots(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{RecordSummary: s, Snapshots: snaps})
	}
	return out, nil
}

// Formats lists the supported output formats.
var Formats = []string{"csv", "json", "yaml"}

// Write dispatches on format.
func Write(format string, records []Record, path string) error {
	switch strings.ToLower(format) {
	case "csv":
		return ToCSV(records, path)
	case "json":
		return ToJSON(records, path)
	case "yaml", "yml":
		return ToYAML(records, path)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
