// Package tracker runs one goal session: two stopwatches, the unit counter
// and the snapshot list, with persistence handed to the store and failed
// writes handed to the outbox.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/clock"
	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/notify"
	"github.com/sadopc/goaltrack/internal/outbox"
	"github.com/sadopc/goaltrack/internal/pacing"
	"github.com/sadopc/goaltrack/internal/store"
)

var validate = validator.New()

// Persistence is the store surface a session writes to.
type Persistence interface {
	EnsureTask(ctx context.Context, userID, name string) (*store.Task, error)
	CreateRecord(ctx context.Context, r store.NewRecord) (*store.TaskRecord, error)
	UpdateRecord(ctx context.Context, id string, p store.RecordPatch) error
	CreateSnapshot(ctx context.Context, s store.NewSnapshot) error
}

// Identity gates configuration on a signed-in user.
type Identity interface {
	CurrentUser() *domain.User
}

// Outbox accepts writes that failed so they can be replayed later.
type Outbox interface {
	Enqueue(item outbox.Item) error
}

// Goal is the input to Configure.
type Goal struct {
	TaskName      string `validate:"required,max=128"`
	TotalUnits    int    `validate:"gt=0"`
	UnitLabel     string `validate:"max=32"`
	BudgetSeconds int64  `validate:"gt=0"`
}

// Snapshot is one recorded unit. It never changes after it is taken.
type Snapshot struct {
	Sequence          int
	UnitSeconds       int64
	CumulativeSeconds int64
	RecordedAt        time.Time
}

// Outcome describes what RecordUnit did.
type Outcome struct {
	Snapshot *Snapshot
	// Completed is set when this unit finished the goal.
	Completed bool
	// AlreadyComplete is set when the goal was finished before the call; no
	// snapshot was taken.
	AlreadyComplete bool
}

type Options struct {
	Clock            clock.Clock
	Store            Persistence
	Identity         Identity
	Notifier         notify.Notifier
	Outbox           Outbox
	Logger           *zap.Logger
	DefaultUnitLabel string
}

// Session is safe for concurrent use. Store writes run outside the state lock
// so the clocks and Status stay live while a write is in flight; they are
// serialized among themselves so submission order follows sequence order.
type Session struct {
	mu      sync.Mutex
	writeMu sync.Mutex

	clock        clock.Clock
	store        Persistence
	identity     Identity
	notifier     notify.Notifier
	outbox       Outbox
	log          *zap.Logger
	defaultLabel string

	state     State
	taskName  string
	unitLabel string
	recordID  string
	plan      pacing.Plan
	total     *clock.Stopwatch
	unit      *clock.Stopwatch
	completed int
	snapshots []Snapshot // newest first
	editing   bool
}

func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.DefaultUnitLabel) == "" {
		opts.DefaultUnitLabel = store.DefaultUnitLabel
	}
	return &Session{
		clock:        opts.Clock,
		store:        opts.Store,
		identity:     opts.Identity,
		notifier:     opts.Notifier,
		outbox:       opts.Outbox,
		log:          opts.Logger,
		defaultLabel: opts.DefaultUnitLabel,
		total:        clock.NewStopwatch(opts.Clock),
		unit:         clock.NewStopwatch(opts.Clock),
	}
}

// Configure attaches a new goal, creating the task on first use and a record
// for this run. Both clocks read zero afterwards and wait for Start. On any
// error the session is left as it was.
func (s *Session) Configure(ctx context.Context, g Goal) error {
	g.TaskName = strings.TrimSpace(g.TaskName)
	g.UnitLabel = strings.TrimSpace(g.UnitLabel)
	if g.UnitLabel == "" {
		g.UnitLabel = s.defaultLabel
	}
	if err := validate.Struct(g); err != nil {
		return domain.Validation(err)
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == Running || state == Paused {
		return domain.NewError(domain.ErrCodeInvalidState, "reset the current run before configuring a new one")
	}

	var user *domain.User
	if s.identity != nil {
		user = s.identity.CurrentUser()
	}
	if user == nil {
		return domain.ErrNotSignedIn
	}

	task, err := s.store.EnsureTask(ctx, user.ID, g.TaskName)
	if err != nil {
		s.log.Error("ensure task", zap.String("task", g.TaskName), zap.Error(err))
		return domain.WrapError(domain.ErrCodePersistence, "save task", err)
	}
	rec, err := s.store.CreateRecord(ctx, store.NewRecord{
		TaskID:             task.ID,
		TotalUnits:         g.TotalUnits,
		UnitLabel:          g.UnitLabel,
		TotalBudgetSeconds: g.BudgetSeconds,
	})
	if err != nil {
		s.log.Error("create record", zap.String("task", g.TaskName), zap.Error(err))
		return domain.WrapError(domain.ErrCodePersistence, "save record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.state = Configuring
	s.taskName = g.TaskName
	s.unitLabel = rec.UnitLabel
	s.recordID = rec.ID
	s.plan = pacing.Plan{TotalUnits: g.TotalUnits, BudgetSeconds: g.BudgetSeconds}
	s.log.Info("goal configured",
		zap.String("task", g.TaskName),
		zap.String("record_id", rec.ID),
		zap.Int("units", g.TotalUnits),
		zap.Int64("budget_seconds", g.BudgetSeconds))
	return nil
}

// Start runs both clocks. It is a no-op while running and leaves budget edit
// mode.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Running:
		return nil
	case Idle:
		return domain.ErrNotConfigured
	case Completed:
		return domain.ErrSessionComplete
	}
	s.editing = false
	s.total.Start()
	s.unit.Start()
	s.state = Running
	return nil
}

// Pause freezes both clocks. It is a no-op unless running.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseLocked()
}

// Toggle pauses a running session and starts any other.
func (s *Session) Toggle() error {
	s.mu.Lock()
	running := s.state == Running
	s.mu.Unlock()
	if running {
		s.Pause()
		return nil
	}
	return s.Start()
}

func (s *Session) pauseLocked() {
	if s.state != Running {
		return
	}
	s.total.Pause()
	s.unit.Pause()
	s.state = Paused
}

// RecordUnit closes the current unit. The in-memory count and snapshot list
// are updated before the store is written; a failed write is queued for
// replay and reported as a PERSISTENCE error without undoing the unit.
func (s *Session) RecordUnit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state.Configured() && s.completed >= s.plan.TotalUnits {
		total, label := s.plan.TotalUnits, s.unitLabel
		s.mu.Unlock()
		s.notify(ctx, "Goal reached", fmt.Sprintf("All %d %s already completed", total, label))
		return Outcome{AlreadyComplete: true}, nil
	}
	switch s.state {
	case Idle:
		s.mu.Unlock()
		return Outcome{}, domain.ErrNotConfigured
	case Running:
	default:
		s.mu.Unlock()
		return Outcome{}, domain.ErrNotRunning
	}

	snap := Snapshot{
		Sequence:          s.completed + 1,
		UnitSeconds:       s.unit.Seconds(),
		CumulativeSeconds: s.total.Seconds(),
		RecordedAt:        s.clock.Now(),
	}
	s.snapshots = append([]Snapshot{snap}, s.snapshots...)
	s.completed++
	s.unit.Restart()

	out := Outcome{Snapshot: &snap}
	if s.completed == s.plan.TotalUnits {
		s.pauseLocked()
		s.state = Completed
		out.Completed = true
	}
	recordID, completed := s.recordID, s.completed
	total, label, task := s.plan.TotalUnits, s.unitLabel, s.taskName

	// Taking writeMu before releasing mu keeps writes in sequence order.
	s.writeMu.Lock()
	s.mu.Unlock()
	err := s.persistUnit(ctx, recordID, snap, completed)
	s.writeMu.Unlock()

	if out.Completed {
		s.log.Info("goal completed", zap.String("task", task), zap.String("record_id", recordID))
		s.notify(ctx, "Goal reached", fmt.Sprintf("All %d %s completed", total, label))
	}
	return out, err
}

func (s *Session) persistUnit(ctx context.Context, recordID string, snap Snapshot, completed int) error {
	var failed error

	ns := store.NewSnapshot{
		RecordID:          recordID,
		Sequence:          snap.Sequence,
		UnitSeconds:       snap.UnitSeconds,
		CumulativeSeconds: snap.CumulativeSeconds,
	}
	if err := s.store.CreateSnapshot(ctx, ns); err != nil {
		s.log.Error("save snapshot",
			zap.String("record_id", recordID),
			zap.Int("sequence", snap.Sequence),
			zap.Error(err))
		item, _ := outbox.SnapshotItem(ns)
		s.enqueue(item)
		failed = err
	}

	patch := store.RecordPatch{CompletedCount: &completed}
	if err := s.store.UpdateRecord(ctx, recordID, patch); err != nil {
		s.log.Error("save completed count",
			zap.String("record_id", recordID),
			zap.Int("completed", completed),
			zap.Error(err))
		item, _ := outbox.RecordUpdateItem(recordID, patch)
		s.enqueue(item)
		if failed == nil {
			failed = err
		}
	}

	if failed != nil {
		return domain.WrapError(domain.ErrCodePersistence, "save unit", failed)
	}
	return nil
}

func (s *Session) enqueue(item outbox.Item) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(item); err != nil {
		s.log.Error("enqueue outbox item", zap.String("kind", item.Kind), zap.Error(err))
	}
}

func (s *Session) notify(ctx context.Context, title, body string) {
	if err := s.notifier.Notify(ctx, title, body); err != nil {
		s.log.Warn("notify", zap.String("title", title), zap.Error(err))
	}
}

// Reset stops the clocks and forgets the run. Stored records are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.state = Idle
	s.taskName = ""
	s.unitLabel = ""
	s.recordID = ""
	s.plan = pacing.Plan{}
}

func (s *Session) clearLocked() {
	s.total.Reset()
	s.unit.Reset()
	s.completed = 0
	s.snapshots = nil
	s.editing = false
}

// Snapshots returns the recorded units, newest first.
func (s *Session) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.snapshots...)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
