// Package clock provides an injectable time source for code that schedules
// work, so that polling cadence and expiry can be tested without waiting
// for real time to pass.
package clock

import "time"

// Timer is a single-shot timer owned by its creator. Stop must be called on
// every exit path that abandons the timer before it fires.
type Timer interface {
	// C returns the channel on which the fire time is delivered.
	C() <-chan time.Time
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer.
	Stop() bool
}

// Clock abstracts the current time and timer creation.
type Clock interface {
	// Now returns the current time according to this clock.
	Now() time.Time
	// NewTimer creates a timer that fires once after d.
	NewTimer(d time.Duration) Timer
}

// Real implements Clock using the system time.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// NewTimer returns a timer backed by time.Timer.
func (Real) NewTimer(d time.Duration) Timer {
	return realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool          { return r.t.Stop() }
