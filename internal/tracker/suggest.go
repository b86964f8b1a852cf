package tracker

import "github.com/sadopc/goaltrack/internal/estimator"

// GoalFromSuggestion builds a goal whose budget is the suggested pace scaled
// to units. fallback is used when there is no suggestion.
func GoalFromSuggestion(taskName string, units int, label string, s *estimator.Suggestion, fallback int64) Goal {
	budget := s.TotalSeconds(units)
	if budget <= 0 {
		budget = fallback
	}
	return Goal{
		TaskName:      taskName,
		TotalUnits:    units,
		UnitLabel:     label,
		BudgetSeconds: budget,
	}
}
