// Package system provides the wall clock used for record timestamps.
package system

import "time"

// Clock returns UTC time truncated to microseconds, the precision Postgres
// keeps for timestamptz, so a stored record reads back unchanged.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
