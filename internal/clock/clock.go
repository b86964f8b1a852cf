// Package clock provides the time source and the stopwatch that drive a
// tracking session. Elapsed time is always derived from the clock, never
// accumulated by counting ticks, so a late or dropped repaint cannot drift
// the counters.
package clock

import (
	"sync"
	"time"
)

// Clock is a source of monotonic time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock. time.Now carries a monotonic reading, so
// differences between two values are immune to wall-clock adjustments.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
