package callsched

import "time"

// Timer is a pending single-shot timer. Stop prevents it from firing and
// reports whether it was still pending.
type Timer interface {
	Stop() bool
}

// Clock is the time source and timer primitive a Scheduler runs on.
//
// AfterFunc must call f once, on its own goroutine, after d elapses. Timers
// created by a Clock must not keep the process alive on their own.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock is the wall clock backed by time.AfterFunc.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// AfterFunc arms a runtime timer.
func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
