package store

import "time"

// DefaultUnitLabel replaces a blank unit label.
const DefaultUnitLabel = "item"

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Task is a named kind of recurring work. Names are not unique; lookups by
// name use the newest row.
type Task struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// TaskRecord is one tracking session of a task.
type TaskRecord struct {
	ID                 string
	TaskID             string
	TotalUnits         int
	UnitLabel          string
	TotalBudgetSeconds int64
	CompletedCount     int
	CreatedAt          time.Time
}

// TaskSnapshot is one recorded unit within a record.
type TaskSnapshot struct {
	ID                string
	RecordID          string
	Sequence          int
	UnitSeconds       int64
	CumulativeSeconds int64
	CreatedAt         time.Time
}

type NewRecord struct {
	TaskID             string
	TotalUnits         int
	UnitLabel          string
	TotalBudgetSeconds int64
}

// RecordPatch updates a record. Nil fields are left alone.
type RecordPatch struct {
	TotalUnits     *int
	CompletedCount *int
}

type NewSnapshot struct {
	RecordID          string
	Sequence          int
	UnitSeconds       int64
	CumulativeSeconds int64
}

// RecordFilter is used to filter records in queries.
type RecordFilter struct {
	UserID   string
	TaskName string
	Limit    int
}

// RecordSummary is a record joined with its task name and aggregated
// snapshot durations.
type RecordSummary struct {
	TaskRecord
	TaskName       string
	SnapshotCount  int
	UnitSecondsSum int64
}

// AverageUnitSeconds is the mean unit duration of the record, or 0 when no
// unit was completed.
func (r RecordSummary) AverageUnitSeconds() float64 {
	if r.CompletedCount <= 0 {
		return 0
	}
	return float64(r.UnitSecondsSum) / float64(r.CompletedCount)
}
