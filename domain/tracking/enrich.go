package tracking

import (
	"strings"
	"time"
)

// BucketHour maps an hour of day to its TimeOfDay period
func BucketHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 21:
		return TimeEvening
	default:
		return TimeNight
	}
}

// WeekdayName is the lowercase English weekday name
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// EnrichLog fills the derived time fields of a log in loc
func EnrichLog(l LogEntry, loc *time.Location) LogEntry {
	local := inLocation(l.Timestamp, loc)
	l.DayOfWeek = WeekdayName(local.Weekday())
	l.HourOfDay = local.Hour()
	l.TimeOfDay = BucketHour(l.HourOfDay)
	return l
}

// EnrichCrisis fills the derived time fields of a crisis event in loc
func EnrichCrisis(c CrisisEvent, loc *time.Location) CrisisEvent {
	local := inLocation(c.Timestamp, loc)
	c.DayOfWeek = WeekdayName(local.Weekday())
	c.HourOfDay = local.Hour()
	c.TimeOfDay = BucketHour(c.HourOfDay)
	return c
}

func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// Hour returns the derived hour of day, or the timestamp's own hour when the log was never enriched
func (l LogEntry) Hour() int {
	if l.DayOfWeek == "" {
		return l.Timestamp.Hour()
	}
	return l.HourOfDay
}
