package outbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sadopc/goaltrack/internal/store"
)

func newTestOutbox(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeTarget struct {
	snapshots []store.NewSnapshot
	updates   map[string]store.RecordPatch
	failures  int
}

func (f *fakeTarget) CreateSnapshot(_ context.Context, s store.NewSnapshot) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("database is locked")
	}
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakeTarget) UpdateRecord(_ context.Context, id string, p store.RecordPatch) error {
	if f.updates == nil {
		f.updates = map[string]store.RecordPatch{}
	}
	f.updates[id] = p
	return nil
}

// ============================================================
// Store
// ============================================================

func TestEnqueueBatchFIFO(t *testing.T) {
	s := newTestOutbox(t)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	for i := 3; i >= 1; i-- {
		item, _ := SnapshotItem(store.NewSnapshot{RecordID: "r1", Sequence: i})
		item.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := s.Enqueue(item); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.Batch(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Timestamp.After(items[1].Timestamp) || items[1].Timestamp.After(items[2].Timestamp) {
		t.Fatal("expected oldest first")
	}
	if items[0].ID == "" {
		t.Fatal("expected generated id")
	}

	if n, _ := s.Size(); n != 3 {
		t.Fatalf("expected size 3, got %d", n)
	}
	s.Remove(items[0])
	if n, _ := s.Size(); n != 2 {
		t.Fatalf("expected size 2 after remove, got %d", n)
	}
}

func TestBatchLimit(t *testing.T) {
	s := newTestOutbox(t)
	for i := 1; i <= 5; i++ {
		item, _ := SnapshotItem(store.NewSnapshot{RecordID: "r1", Sequence: i})
		s.Enqueue(item)
	}
	items, _ := s.Batch(2)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestReopenKeepsItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	item, _ := RecordUpdateItem("r1", store.RecordPatch{})
	s.Enqueue(item)
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if n, _ := s2.Size(); n != 1 {
		t.Fatalf("expected 1 item after reopen, got %d", n)
	}
}

// ============================================================
// Processor
// ============================================================

func TestDrainReplaysAndRemoves(t *testing.T) {
	s := newTestOutbox(t)
	target := &fakeTarget{}
	p := NewProcessor(s, target, nil, Config{})

	snap, _ := SnapshotItem(store.NewSnapshot{RecordID: "r1", Sequence: 1, UnitSeconds: 25, CumulativeSeconds: 25})
	two := 2
	upd, _ := RecordUpdateItem("r1", store.RecordPatch{CompletedCount: &two})
	p.Enqueue(snap)
	p.Enqueue(upd)

	if err := p.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(target.snapshots) != 1 || target.snapshots[0].UnitSeconds != 25 {
		t.Fatalf("unexpected snapshots: %+v", target.snapshots)
	}
	got := target.updates["r1"]
	if got.CompletedCount == nil || *got.CompletedCount != 2 || got.TotalUnits != nil {
		t.Fatalf("unexpected patch: %+v", got)
	}
	if p.Size() != 0 {
		t.Fatalf("expected empty outbox, got %d", p.Size())
	}
}

func TestDrainRequeuesThenDrops(t *testing.T) {
	s := newTestOutbox(t)
	target := &fakeTarget{failures: 10}
	p := NewProcessor(s, target, nil, Config{MaxRetries: 2})

	item, _ := SnapshotItem(store.NewSnapshot{RecordID: "r1", Sequence: 1})
	p.Enqueue(item)

	p.Drain(context.Background())
	items, _ := s.Batch(10)
	if len(items) != 1 || items[0].Retries != 1 {
		t.Fatalf("expected one requeued item with 1 retry, got %+v", items)
	}

	p.Drain(context.Background())
	if p.Size() != 0 {
		t.Fatalf("expected item dropped after max retries, got %d", p.Size())
	}
}

func TestDrainUnknownKind(t *testing.T) {
	s := newTestOutbox(t)
	p := NewProcessor(s, &fakeTarget{}, nil, Config{MaxRetries: 1})
	p.Enqueue(Item{Kind: "bogus"})

	p.Drain(context.Background())
	if p.Size() != 0 {
		t.Fatal("unknown kind should be dropped once retries are exhausted")
	}
}

func TestDrainIntoStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	u, _ := db.CreateUser(ctx, "ada@example.com", "ada", "hash")
	task, _ := db.CreateTask(ctx, u.ID, "pushups")
	r, _ := db.CreateRecord(ctx, store.NewRecord{TaskID: task.ID, TotalUnits: 3, TotalBudgetSeconds: 90})

	ob := newTestOutbox(t)
	p := NewProcessor(ob, db, nil, Config{})
	snap := store.NewSnapshot{RecordID: r.ID, Sequence: 1, UnitSeconds: 25, CumulativeSeconds: 25}
	db.CreateSnapshot(ctx, snap)

	item, _ := SnapshotItem(snap)
	p.Enqueue(item)
	p.Drain(ctx)

	snaps, _ := db.ListSnapshots(ctx, r.ID)
	if len(snaps) != 1 {
		t.Fatalf("replay must not duplicate, got %d snapshots", len(snaps))
	}
}

func TestStartStop(t *testing.T) {
	p := NewProcessor(newTestOutbox(t), &fakeTarget{}, nil, Config{Interval: time.Hour})
	p.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.Stop(ctx)
}
