package sequencer

import "time"

// Clock abstracts timer scheduling so the player's cancellation and
// re-entrancy behavior can be driven deterministically in tests.
type Clock interface {
	// AfterFunc schedules f to run after d and returns a cancellable
	// handle.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled call.
type Timer interface {
	// Stop cancels the call if it has not fired yet.
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}
