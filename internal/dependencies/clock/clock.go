package clock

import "time"

// Clock is the time source for sessions, rooms and matches
type Clock interface {
	Now() time.Time
	// Since is the time elapsed from t
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Since returns time.Since(t)
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
