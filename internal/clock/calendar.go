package clock

import "time"

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ParseDate parses a calendar date in loc
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, loc)
}

// StartOfDay returns the first instant of t's calendar day in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayRange converts an inclusive calendar-date range into the half-open instant
// range [start of first day, start of the day after last).
func DayRange(first, last time.Time, loc *time.Location) (from, to time.Time) {
	from = StartOfDay(first, loc)
	to = StartOfDay(last, loc).AddDate(0, 0, 1)
	return from, to
}
