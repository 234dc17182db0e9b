// Package clock supplies the calendar day the publication jobs compare
// pub_date against.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// Today is midnight UTC of the current calendar day in the clock's location.
	Today() time.Time
}

type systemClock struct {
	loc *time.Location
}

// System reads the wall clock, resolving the calendar day in loc.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Today() time.Time {
	return Day(c.Now())
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

func (f Fixed) Today() time.Time {
	return Day(time.Time(f))
}

// Day drops the time of day, keeping t's calendar date as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
