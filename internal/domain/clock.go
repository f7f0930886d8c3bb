package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for day computation. Pass nil to reset
// to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// DayStart returns local midnight of today in loc plus offset days. Anchoring
// on midnight keeps the queried date stable for the whole day.
func DayStart(loc *time.Location, offset int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := clock.Now().In(loc).Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
}

// Now returns the current time from the package clock.
func Now() time.Time {
	return clock.Now()
}
