// Package clock abstracts the wall clock so year-stamped numbering and
// expiry checks stay deterministic under test.
package clock

import "time"

// Clock reports the current time in UTC.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
