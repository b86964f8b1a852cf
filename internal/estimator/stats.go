package estimator

import (
	"context"

	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/store"
)

// RecordAverage is one record's mean unit duration.
type RecordAverage struct {
	RecordID       string
	CompletedCount int
	TotalUnits     int
	AverageSeconds float64
}

// TaskStats summarises every record of one task name.
type TaskStats struct {
	TaskName       string
	UnitLabel      string
	Records        int
	TotalCompleted int
	TotalTarget    int
	AverageSeconds float64
	// PerRecord is newest first.
	PerRecord []RecordAverage
}

// Stats groups the user's history by task name. Tasks are ordered by their
// most recent record.
func (e *Estimator) Stats(ctx context.Context, userID string) ([]TaskStats, error) {
	records, err := e.history.ListRecordsWithSnapshots(ctx, store.RecordFilter{UserID: userID})
	if err != nil {
		e.log.Error("load history", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodePersistence, "load history", err)
	}
	return GroupStats(records), nil
}

// GroupStats aggregates newest-first records per task name.
func GroupStats(records []store.RecordSummary) []TaskStats {
	index := make(map[string]int)
	var out []TaskStats
	var unitSums []int64

	for _, r := range records {
		i, ok := index[r.TaskName]
		if !ok {
			i = len(out)
			index[r.TaskName] = i
			out = append(out, TaskStats{TaskName: r.TaskName, UnitLabel: r.UnitLabel})
			unitSums = append(unitSums, 0)
		}
		ts := &out[i]
		ts.Records++
		ts.TotalCompleted += r.CompletedCount
		ts.TotalTarget += r.TotalUnits
		if r.CompletedCount > 0 {
			unitSums[i] += r.UnitSecondsSum
		}
		ts.PerRecord = append(ts.PerRecord, RecordAverage{
			RecordID:       r.ID,
			CompletedCount: r.CompletedCount,
			TotalUnits:     r.TotalUnits,
			AverageSeconds: r.AverageUnitSeconds(),
		})
	}

	for i := range out {
		if out[i].TotalCompleted > 0 {
			out[i].AverageSeconds = float64(unitSums[i]) / float64(out[i].TotalCompleted)
		}
	}
	return out
}
