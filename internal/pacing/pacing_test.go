package pacing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPerUnitAllowance(t *testing.T) {
	tests := []struct {
		plan Plan
		want float64
	}{
		{Plan{TotalUnits: 3, BudgetSeconds: 90}, 30},
		{Plan{TotalUnits: 4, BudgetSeconds: 3600}, 900},
		{Plan{TotalUnits: 3, BudgetSeconds: 100}, 100.0 / 3.0},
		{Plan{TotalUnits: 0, BudgetSeconds: 100}, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.plan.PerUnitAllowance(), 1e-9, "%+v", tt.plan)
	}
}

func TestPerUnitAllowanceScalesLinearly(t *testing.T) {
	for units := 1; units <= 12; units++ {
		for _, budget := range []int64{1, 59, 90, 3600, 86399} {
			p := Plan{TotalUnits: units, BudgetSeconds: budget}
			doubled := Plan{TotalUnits: units, BudgetSeconds: budget * 2}
			assert.InDelta(t, 2*p.PerUnitAllowance(), doubled.PerUnitAllowance(), 1e-9)
		}
	}
}

func TestCumulativeAllowanceCappedAtBudget(t *testing.T) {
	p := Plan{TotalUnits: 3, BudgetSeconds: 100}

	assert.Equal(t, 0.0, p.CumulativeAllowance(0))
	assert.InDelta(t, 100.0/3.0, p.CumulativeAllowance(1), 1e-9)
	assert.InDelta(t, 200.0/3.0, p.CumulativeAllowance(2), 1e-9)
	assert.Equal(t, 100.0, p.CumulativeAllowance(3))
	assert.Equal(t, 100.0, p.CumulativeAllowance(4), "never beyond the budget")
}

func TestIsOverTotalBudget(t *testing.T) {
	p := Plan{TotalUnits: 3, BudgetSeconds: 90}

	assert.False(t, p.IsOverTotalBudget(0, 30))
	assert.True(t, p.IsOverTotalBudget(0, 31))
	assert.True(t, p.IsOverTotalBudget(1, 70), "70 > 30*2")
	assert.False(t, p.IsOverTotalBudget(2, 90))
	assert.True(t, p.IsOverTotalBudget(2, 91))
	// After the final unit the target stays at the budget.
	assert.True(t, p.IsOverTotalBudget(3, 95))
	assert.False(t, p.IsOverTotalBudget(3, 90))
}

func TestIsOverUnitBudget(t *testing.T) {
	p := Plan{TotalUnits: 3, BudgetSeconds: 90}

	assert.False(t, p.IsOverUnitBudget(30))
	assert.True(t, p.IsOverUnitBudget(31))
}

func TestEvaluate(t *testing.T) {
	p := Plan{TotalUnits: 3, BudgetSeconds: 90}
	st := p.Evaluate(1, 70, 45)

	assert.Equal(t, 30.0, st.PerUnitAllowance)
	assert.Equal(t, 60.0, st.CumulativeTarget)
	assert.True(t, st.OverTotal)
	assert.True(t, st.OverUnit)
	assert.Equal(t, 2, st.RemainingUnits)
	assert.Equal(t, int64(20), st.RemainingSeconds)

	done := p.Evaluate(3, 95, 0)
	assert.Equal(t, 0, done.RemainingUnits)
	assert.Equal(t, int64(-5), done.RemainingSeconds)
}

func TestAdjustmentsCommute(t *testing.T) {
	direct := Plan{TotalUnits: 5, BudgetSeconds: 600}

	a := Plan{TotalUnits: 3, BudgetSeconds: 90}
	a.BudgetSeconds = 600
	a.TotalUnits = 5

	b := Plan{TotalUnits: 3, BudgetSeconds: 90}
	b.TotalUnits = 5
	b.BudgetSeconds = 600

	assert.Equal(t, direct.PerUnitAllowance(), a.PerUnitAllowance())
	assert.Equal(t, direct.PerUnitAllowance(), b.PerUnitAllowance())
}

func TestGradeUnit(t *testing.T) {
	tests := []struct {
		name      string
		seq       int
		unit, cum int64
		want      Grade
	}{
		{"on pace", 1, 25, 25, Grade{}},
		{"slow unit late run", 2, 45, 70, Grade{UnitOver: true, CumulativeOver: true}},
		{"fast unit late run", 3, 25, 95, Grade{CumulativeOver: true}},
		{"slow unit early run", 2, 35, 50, Grade{UnitOver: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GradeUnit(30, tt.seq, tt.unit, tt.cum))
		})
	}
}
