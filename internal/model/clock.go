package model

import "time"

// Clock interface
type Clock interface {
	// Now returns the current local time.
	Now() time.Time
}

// ClockFunc implements Clock interface
type ClockFunc func() time.Time

func (fn ClockFunc) Now() time.Time {
	return fn()
}

// LocalTime Clock
var LocalTime Clock = ClockFunc(time.Now)

// ClockAt returns a Clock frozen at [date]. Testing aid.
func ClockAt(date time.Time) Clock {
	return ClockFunc(func() time.Time {
		return date
	})
}
