package tracker

// State is the lifecycle phase of a session.
type State int

const (
	Idle State = iota
	Configuring
	Running
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Configured reports whether a goal is attached to the session.
func (s State) Configured() bool {
	return s != Idle
}
