package clock

import "time"

// TickResolution is the display granularity of the sub-second phase.
const TickResolution = 10 * time.Millisecond

// TicksPerSecond is the number of display ticks in one second (0..99).
const TicksPerSecond = int(time.Second / TickResolution)

// Stopwatch measures elapsed running time. It is not safe for concurrent
// use; the owning session serializes access.
type Stopwatch struct {
	clock Clock

	running  bool
	segStart time.Time     // start of the current running segment
	banked   time.Duration // time accumulated by earlier segments
}

// NewStopwatch returns a stopped stopwatch reading zero.
func NewStopwatch(c Clock) *Stopwatch {
	if c == nil {
		c = Real{}
	}
	return &Stopwatch{clock: c}
}

// Start resumes counting. No-op when already running.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.running = true
	s.segStart = s.clock.Now()
}

// Pause freezes the counters without losing accumulated time.
func (s *Stopwatch) Pause() {
	if !s.running {
		return
	}
	s.banked += s.clock.Now().Sub(s.segStart)
	s.running = false
}

// Reset stops the stopwatch and zeroes it.
func (s *Stopwatch) Reset() {
	s.running = false
	s.banked = 0
	s.segStart = time.Time{}
}

// Restart zeroes the stopwatch and keeps its running state.
func (s *Stopwatch) Restart() {
	running := s.running
	s.Reset()
	if running {
		s.Start()
	}
}

func (s *Stopwatch) Running() bool { return s.running }

// Elapsed returns the total running time.
func (s *Stopwatch) Elapsed() time.Duration {
	if !s.running {
		return s.banked
	}
	d := s.banked + s.clock.Now().Sub(s.segStart)
	if d < 0 {
		return s.banked
	}
	return d
}

// Seconds returns whole elapsed seconds. This is the value pacing logic uses.
func (s *Stopwatch) Seconds() int64 {
	return int64(s.Elapsed() / time.Second)
}

// Ticks returns the sub-second display phase in 0..99. It is derived from the
// same reading as Seconds, so the two can never disagree.
func (s *Stopwatch) Ticks() int {
	return Ticks(s.Elapsed())
}

// Ticks returns the 10ms phase of d within its current second.
func Ticks(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int((d % time.Second) / TickResolution)
}
