// Package clock normalizes dates, weekdays and times of day in the school's timezone.
//
// Every tolerance or lateness computation in the engine is expressed in minutes since
// local midnight, so callers must obtain "now" from a Clock built with the configured
// location and never from time.Now() directly.
package clock

import (
	"time"
)

const (
	dateCodeLayout = "20060102"
	dateLayout     = "2006-01-02"
)

// Clock reports the current instant in the school's timezone.
type Clock interface {
	Now() time.Time
}

type local struct {
	loc *time.Location
}

// New returns a Clock whose Now() is always expressed in loc.
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return local{loc: loc}
}

func (c local) Now() time.Time { return time.Now().In(c.loc) }

// Fixed is a Clock frozen at T. Used by tests and by the admin CLI's "resolve --at".
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// Today returns the local date of c.Now() at midnight.
func Today(c Clock) time.Time {
	return Date(c.Now())
}

// Date truncates t to midnight in t's own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MinuteOfDay returns the minutes elapsed since local midnight, seconds truncated.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// At places a time of day on the given date, in loc.
func At(date time.Time, tod TimeOfDay, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc)
}

// DateCode formats t's date as YYYYMMDD.
func DateCode(t time.Time) string {
	return t.Format(dateCodeLayout)
}

// ParseDateCode parses a YYYYMMDD date in loc.
func ParseDateCode(s string, loc *time.Location) (time.Time, bool) {
	if len(s) != len(dateCodeLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateCodeLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate formats t's date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
