// Package dateutil provides calendar arithmetic for recurring date series.
package dateutil

import "time"

// AddMonths returns t shifted forward by the given number of calendar months.
// When the original day-of-month does not exist in the target month, the day
// is clamped to the last day of that month (Jan 31 + 1 month = Feb 28/29, not
// Mar 3). Time of day and location are preserved.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := DaysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DayWindow returns the inclusive bounds of the calendar day containing t,
// in t's location: midnight through one nanosecond before the next midnight.
func DayWindow(t time.Time) (start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end = start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// MonthsBetween returns the number of whole calendar-month boundaries between
// a and b (negative when b is before a). Days are ignored: Jan 31 to Feb 1 is
// one month.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
