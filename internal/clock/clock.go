// Package clock times deploy attempts.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Manual is a Clock that only moves when told to.
type Manual struct {
	now time.Time
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Stopwatch measures the time since it was started on a Clock.
type Stopwatch struct {
	clock Clock
	start time.Time
}

// Start begins a Stopwatch on c.
func Start(c Clock) Stopwatch {
	return Stopwatch{clock: c, start: c.Now()}
}

// Started is when the Stopwatch began.
func (s Stopwatch) Started() time.Time {
	return s.start
}

// Elapsed is the time since the Stopwatch began.
func (s Stopwatch) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}
