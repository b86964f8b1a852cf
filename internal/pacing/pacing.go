// Package pacing computes linear time allowances for a goal and flags whether
// a run is ahead of or behind schedule. Every function is pure; the flags are
// advisory and never affect the timers.
package pacing

// Plan is the goal being paced: a number of units within a time budget.
// Callers validate TotalUnits > 0 and BudgetSeconds > 0 before building one.
type Plan struct {
	TotalUnits    int
	BudgetSeconds int64
}

// PerUnitAllowance is the budget divided evenly across the units. It returns 0
// for a plan without units instead of dividing by zero.
func (p Plan) PerUnitAllowance() float64 {
	if p.TotalUnits <= 0 {
		return 0
	}
	return float64(p.BudgetSeconds) / float64(p.TotalUnits)
}

// CumulativeAllowance is the time allowed for the first n units, capped at the
// whole budget.
func (p Plan) CumulativeAllowance(n int) float64 {
	if p.TotalUnits <= 0 || n <= 0 {
		return 0
	}
	if n >= p.TotalUnits {
		return float64(p.BudgetSeconds)
	}
	return float64(p.BudgetSeconds) * float64(n) / float64(p.TotalUnits)
}

// IsOverTotalBudget reports whether the run has used more than the allowance
// for the unit currently in progress (completed+1), capped at the budget.
func (p Plan) IsOverTotalBudget(completed int, totalElapsed int64) bool {
	return float64(totalElapsed) > p.CumulativeAllowance(completed+1)
}

// IsOverUnitBudget reports whether the current unit has taken longer than the
// per-unit allowance.
func (p Plan) IsOverUnitBudget(unitElapsed int64) bool {
	return float64(unitElapsed) > p.PerUnitAllowance()
}

// Status is the pacing picture at one instant of a run.
type Status struct {
	PerUnitAllowance float64
	// CumulativeTarget is the allowance the total clock is compared against.
	CumulativeTarget float64
	OverTotal        bool
	OverUnit         bool
	RemainingUnits   int
	// RemainingSeconds is the unspent budget; negative once over.
	RemainingSeconds int64
}

// Evaluate computes the full pacing status for a run.
func (p Plan) Evaluate(completed int, totalElapsed, unitElapsed int64) Status {
	remaining := p.TotalUnits - completed
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		PerUnitAllowance: p.PerUnitAllowance(),
		CumulativeTarget: p.CumulativeAllowance(completed + 1),
		OverTotal:        p.IsOverTotalBudget(completed, totalElapsed),
		OverUnit:         p.IsOverUnitBudget(unitElapsed),
		RemainingUnits:   remaining,
		RemainingSeconds: p.BudgetSeconds - totalElapsed,
	}
}
