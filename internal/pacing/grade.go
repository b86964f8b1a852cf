package pacing

// Grade colors one recorded unit.
type Grade struct {
	// UnitOver is set when the unit took longer than the per-unit allowance.
	UnitOver bool
	// CumulativeOver is set when the total clock at completion exceeded the
	// allowance for that many units.
	CumulativeOver bool
}

// GradeUnit grades a recorded unit against perUnit, the allowance the caller
// currently displays. Sequence is 1-based.
func GradeUnit(perUnit float64, sequence int, unitSeconds, cumulativeSeconds int64) Grade {
	return Grade{
		UnitOver:       float64(unitSeconds) > perUnit,
		CumulativeOver: float64(cumulativeSeconds) > perUnit*float64(sequence),
	}
}
