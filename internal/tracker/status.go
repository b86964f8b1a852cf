package tracker

import (
	"time"

	"github.com/sadopc/goaltrack/internal/clock"
	"github.com/sadopc/goaltrack/internal/pacing"
)

// GradedSnapshot is a snapshot colored against the live allowance.
type GradedSnapshot struct {
	Snapshot
	pacing.Grade
}

// Status is a point-in-time copy of the session for display.
type Status struct {
	State         State
	TaskName      string
	UnitLabel     string
	RecordID      string
	TotalUnits    int
	Completed     int
	BudgetSeconds int64
	EditingBudget bool

	ElapsedSeconds int64
	ElapsedTicks   int
	UnitSeconds    int64
	UnitTicks      int

	Pacing    pacing.Status
	Snapshots []GradedSnapshot // newest first
}

// Status reads both clocks once each, so seconds and ticks always agree.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalElapsed := s.total.Elapsed()
	unitElapsed := s.unit.Elapsed()
	totalSecs := int64(totalElapsed / time.Second)
	unitSecs := int64(unitElapsed / time.Second)

	st := Status{
		State:          s.state,
		TaskName:       s.taskName,
		UnitLabel:      s.unitLabel,
		RecordID:       s.recordID,
		TotalUnits:     s.plan.TotalUnits,
		Completed:      s.completed,
		BudgetSeconds:  s.plan.BudgetSeconds,
		EditingBudget:  s.editing,
		ElapsedSeconds: totalSecs,
		ElapsedTicks:   clock.Ticks(totalElapsed),
		UnitSeconds:    unitSecs,
		UnitTicks:      clock.Ticks(unitElapsed),
	}
	if !s.state.Configured() {
		return st
	}

	st.Pacing = s.plan.Evaluate(s.completed, totalSecs, unitSecs)
	perUnit := st.Pacing.PerUnitAllowance
	st.Snapshots = make([]GradedSnapshot, len(s.snapshots))
	for i, snap := range s.snapshots {
		st.Snapshots[i] = GradedSnapshot{
			Snapshot: snap,
			Grade:    pacing.GradeUnit(perUnit, snap.Sequence, snap.UnitSeconds, snap.CumulativeSeconds),
		}
	}
	return st
}
