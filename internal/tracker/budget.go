package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/outbox"
	"github.com/sadopc/goaltrack/internal/store"
)

// ChangeTotalUnits moves the unit target and stores it on the record. The
// target may not drop below completed+1. Raising the target of a completed
// run reopens it in the paused state.
func (s *Session) ChangeTotalUnits(ctx context.Context, n int) error {
	s.mu.Lock()
	if !s.state.Configured() {
		s.mu.Unlock()
		return domain.ErrNotConfigured
	}
	if n < s.completed+1 {
		least := s.completed + 1
		s.mu.Unlock()
		return domain.NewError(domain.ErrCodeValidation, fmt.Sprintf("total units must be at least %d", least))
	}
	s.plan.TotalUnits = n
	if s.state == Completed {
		s.state = Paused
	}
	recordID := s.recordID

	s.writeMu.Lock()
	s.mu.Unlock()
	defer s.writeMu.Unlock()

	patch := store.RecordPatch{TotalUnits: &n}
	if err := s.store.UpdateRecord(ctx, recordID, patch); err != nil {
		s.log.Error("save total units", zap.String("record_id", recordID), zap.Int("units", n), zap.Error(err))
		item, _ := outbox.RecordUpdateItem(recordID, patch)
		s.enqueue(item)
		return domain.WrapError(domain.ErrCodePersistence, "save total units", err)
	}
	return nil
}

// ChangeTotalBudget replaces the time budget for the live run. It is not
// written to the record.
func (s *Session) ChangeTotalBudget(seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changeBudgetLocked(seconds)
}

func (s *Session) changeBudgetLocked(seconds int64) error {
	if !s.state.Configured() {
		return domain.ErrNotConfigured
	}
	if seconds <= 0 {
		return domain.NewError(domain.ErrCodeValidation, "budget must be positive")
	}
	s.plan.BudgetSeconds = seconds
	return nil
}

// BeginBudgetEdit enters budget edit mode, pausing a running session.
func (s *Session) BeginBudgetEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Configured() {
		return domain.ErrNotConfigured
	}
	s.pauseLocked()
	s.editing = true
	return nil
}

// CommitBudgetEdit applies the edited budget and leaves edit mode. On error
// edit mode stays active. The clocks stay paused either way.
func (s *Session) CommitBudgetEdit(seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.changeBudgetLocked(seconds); err != nil {
		return err
	}
	s.editing = false
	return nil
}

func (s *Session) CancelBudgetEdit() {
	s.mu.Lock()
	s.editing = false
	s.mu.Unlock()
}
