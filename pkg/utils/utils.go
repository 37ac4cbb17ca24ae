package utils

import "time"

// AddMonthsClamped returns the date n calendar months after t, keeping the
// day-of-month of t and clamping to the last valid day when the target month
// is shorter (Jan 31 + 1 month = Feb 28/29). Plain time.AddDate normalizes
// overflow into the next month, which is wrong for due dates.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)

	if last := DaysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}

// DateOnly truncates a timestamp to midnight in its location. Due-date
// comparisons are whole-day comparisons.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
