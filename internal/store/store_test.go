package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Each created_at is one second after the previous one so ordering
	// assertions are deterministic.
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	s.Now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return s
}

func mustUser(t *testing.T, s *Store) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "ada@example.com", "ada", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// insertRecord creates a record for task with the given unit durations
// recorded as snapshots.
func insertRecord(t *testing.T, s *Store, taskID string, total int, units ...int64) *TaskRecord {
	t.Helper()
	ctx := context.Background()
	r, err := s.CreateRecord(ctx, NewRecord{TaskID: taskID, TotalUnits: total, TotalBudgetSeconds: 600})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	var cum int64
	for i, u := range units {
		cum += u
		if err := s.CreateSnapshot(ctx, NewSnapshot{RecordID: r.ID, Sequence: i + 1, UnitSeconds: u, CumulativeSeconds: cum}); err != nil {
			t.Fatalf("create snapshot: %v", err)
		}
	}
	done := len(units)
	if err := s.UpdateRecord(ctx, r.ID, RecordPatch{CompletedCount: &done}); err != nil {
		t.Fatalf("update record: %v", err)
	}
	return r
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "goaltrack.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: should succeed and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "goaltrack.db" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Users
// ============================================================

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "  Ada@Example.com ", "ada", "hash")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" || u.Email != "ada@example.com" || u.Username != "ada" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}

	byEmail, err := s.GetUserByEmail(ctx, "ADA@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, byEmail.ID)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustUser(t, s)

	_, err := s.CreateUser(ctx, "ada@example.com", "other", "hash")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUser(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestEnsureTaskReusesName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)

	a, err := s.EnsureTask(ctx, u.ID, "pushups")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.EnsureTask(ctx, u.ID, "pushups")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatalf("expected the same task, got %s and %s", a.ID, b.ID)
	}
}

func TestListTasksDeduplicatesByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)

	s.CreateTask(ctx, u.ID, "reading")
	s.CreateTask(ctx, u.ID, "pushups")
	newest, _ := s.CreateTask(ctx, u.ID, "reading")

	tasks, err := s.ListTasks(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != newest.ID {
		t.Fatalf("expected newest reading task first, got %+v", tasks[0])
	}
	if tasks[1].Name != "pushups" {
		t.Fatalf("expected pushups second, got %s", tasks[1].Name)
	}
}

func TestListTasksScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	other, _ := s.CreateUser(ctx, "bob@example.com", "bob", "hash")

	s.CreateTask(ctx, u.ID, "reading")
	tasks, _ := s.ListTasks(ctx, other.ID)
	if tasks != nil {
		t.Fatalf("expected no tasks for other user, got %d", len(tasks))
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)

	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r := insertRecord(t, s, task.ID, 3, 10, 20)

	if err := s.DeleteTask(ctx, u.ID, "pushups"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRecord(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record should be gone, got %v", err)
	}
	snaps, _ := s.ListSnapshots(ctx, r.ID)
	if len(snaps) != 0 {
		t.Fatalf("snapshots should be gone, got %d", len(snaps))
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	u := mustUser(t, s)
	err := s.DeleteTask(context.Background(), u.ID, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Records
// ============================================================

func TestCreateRecordDefaultsLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")

	r, err := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 3, UnitLabel: "  ", TotalBudgetSeconds: 90})
	if err != nil {
		t.Fatal(err)
	}
	if r.UnitLabel != DefaultUnitLabel {
		t.Fatalf("expected default label, got %q", r.UnitLabel)
	}
	if r.CompletedCount != 0 || r.TotalUnits != 3 || r.TotalBudgetSeconds != 90 {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestCreateRecordRejectsNonPositive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")

	if _, err := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 0, TotalBudgetSeconds: 90}); err == nil {
		t.Fatal("expected error for zero units")
	}
	if _, err := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 3, TotalBudgetSeconds: 0}); err == nil {
		t.Fatal("expected error for zero budget")
	}
}

func TestUpdateRecordCompletedNeverDecreases(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r, _ := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 5, TotalBudgetSeconds: 90})

	two, one := 2, 1
	s.UpdateRecord(ctx, r.ID, RecordPatch{CompletedCount: &two})
	// A late acknowledgement for unit 1 must not undo unit 2.
	s.UpdateRecord(ctx, r.ID, RecordPatch{CompletedCount: &one})

	got, _ := s.GetRecord(ctx, r.ID)
	if got.CompletedCount != 2 {
		t.Fatalf("expected completed 2, got %d", got.CompletedCount)
	}
}

func TestUpdateRecordTotalUnits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r, _ := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 3, TotalBudgetSeconds: 90})

	seven := 7
	if err := s.UpdateRecord(ctx, r.ID, RecordPatch{TotalUnits: &seven}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetRecord(ctx, r.ID)
	if got.TotalUnits != 7 {
		t.Fatalf("expected 7 units, got %d", got.TotalUnits)
	}
}

func TestUpdateRecordRejectsCompletedAboveTotal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r, _ := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 2, TotalBudgetSeconds: 90})

	three := 3
	if err := s.UpdateRecord(ctx, r.ID, RecordPatch{CompletedCount: &three}); err == nil {
		t.Fatal("expected check constraint failure")
	}
}

func TestUpdateRecordNotFound(t *testing.T) {
	s := newTestStore(t)
	one := 1
	err := s.UpdateRecord(context.Background(), "missing", RecordPatch{CompletedCount: &one})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRecordEmptyPatch(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateRecord(context.Background(), "missing", RecordPatch{}); err != nil {
		t.Fatalf("empty patch should be a no-op, got %v", err)
	}
}

func TestDeleteRecordCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r := insertRecord(t, s, task.ID, 3, 10)

	if err := s.DeleteRecord(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	snaps, _ := s.ListSnapshots(ctx, r.ID)
	if len(snaps) != 0 {
		t.Fatalf("expected snapshots removed, got %d", len(snaps))
	}
	if err := s.DeleteRecord(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListRecordsWithSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	pushups, _ := s.CreateTask(ctx, u.ID, "pushups")
	reading, _ := s.CreateTask(ctx, u.ID, "reading")

	first := insertRecord(t, s, pushups.ID, 3, 30, 40, 50)
	insertRecord(t, s, reading.ID, 2, 100)
	last := insertRecord(t, s, pushups.ID, 4)

	all, err := s.ListRecordsWithSnapshots(ctx, RecordFilter{UserID: u.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != last.ID {
		t.Fatal("expected newest record first")
	}

	pu, _ := s.ListRecordsWithSnapshots(ctx, RecordFilter{UserID: u.ID, TaskName: "pushups"})
	if len(pu) != 2 {
		t.Fatalf("expected 2 pushups records, got %d", len(pu))
	}
	old := pu[1]
	if old.ID != first.ID || old.TaskName != "pushups" {
		t.Fatalf("unexpected record: %+v", old)
	}
	if old.SnapshotCount != 3 || old.UnitSecondsSum != 120 || old.CompletedCount != 3 {
		t.Fatalf("unexpected aggregates: %+v", old)
	}
	if old.AverageUnitSeconds() != 40 {
		t.Fatalf("expected average 40, got %v", old.AverageUnitSeconds())
	}
	if pu[0].AverageUnitSeconds() != 0 {
		t.Fatal("record without units should average 0")
	}

	limited, _ := s.ListRecordsWithSnapshots(ctx, RecordFilter{UserID: u.ID, Limit: 1})
	if len(limited) != 1 || limited[0].ID != last.ID {
		t.Fatalf("limit should keep newest only, got %d", len(limited))
	}
}

// ============================================================
// Snapshots
// ============================================================

func TestCreateSnapshotIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r, _ := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 3, TotalBudgetSeconds: 90})

	snap := NewSnapshot{RecordID: r.ID, Sequence: 1, UnitSeconds: 25, CumulativeSeconds: 25}
	if err := s.CreateSnapshot(ctx, snap); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSnapshot(ctx, snap); err != nil {
		t.Fatalf("replay should be a no-op, got %v", err)
	}

	snaps, _ := s.ListSnapshots(ctx, r.ID)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
}

func TestListSnapshotsOrderedBySequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustUser(t, s)
	task, _ := s.CreateTask(ctx, u.ID, "pushups")
	r, _ := s.CreateRecord(ctx, NewRecord{TaskID: task.ID, TotalUnits: 3, TotalBudgetSeconds: 90})

	// Written out of order, as a retry queue may do.
	s.CreateSnapshot(ctx, NewSnapshot{RecordID: r.ID, Sequence: 2, UnitSeconds: 45, CumulativeSeconds: 70})
	s.CreateSnapshot(ctx, NewSnapshot{RecordID: r.ID, Sequence: 1, UnitSeconds: 25, CumulativeSeconds: 25})

	snaps, err := s.ListSnapshots(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[0].Sequence != 1 || snaps[1].Sequence != 2 {
		t.Fatalf("unexpected order: %+v", snaps)
	}
}

func TestCreateSnapshotUnknownRecord(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateSnapshot(context.Background(), NewSnapshot{RecordID: "missing", Sequence: 1})
	if err == nil {
		t.Fatal("expected foreign key error")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSetting(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.SetSetting(ctx, "a", "1")
	s.SetSetting(ctx, "a", "2")
	s.SetSetting(ctx, "b", "3")

	v, err := s.GetSetting(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if v != "2" {
		t.Fatalf("expected overwritten value 2, got %s", v)
	}

	if v, _ := s.GetSetting(ctx, "b"); v != "3" {
		t.Fatalf("expected b to be untouched, got %s", v)
	}

	s.DeleteSetting(ctx, "a")
	if _, err := s.GetSetting(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected deleted setting to be gone")
	}
}
