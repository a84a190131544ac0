package core

import (
	"time"
)

// Clock returns the reference time used by analyses
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a clock pinned to t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// DateLayout is the calendar-date format used for schedule dates and aggregation keys
const DateLayout = "2006-01-02"

// MonthLayout is the key format for monthly aggregation
const MonthLayout = "2006-01"

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfISOWeek returns the Monday that starts t's ISO week
func StartOfISOWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseTime accepts RFC3339 timestamps or plain calendar dates
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation(DateLayout, s, loc)
}
