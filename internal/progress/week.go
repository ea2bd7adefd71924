package progress

import "time"

// Calendar helpers for the week-based progress engine. All arithmetic is
// day-granular: times are collapsed to midnight-UTC day keys and weeks are
// anchored on Sunday.

// DayKey normalizes a timestamp to the midnight-UTC key of its calendar day.
// The day is taken from t's own location, so an entry logged late in the
// evening in the user's zone keeps that local date.
func DayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Sunday-00:00 day key of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := DayKey(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// NextWeekStart returns the start of the week after the one containing t.
func NextWeekStart(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 7)
}

// SameWeek reports whether a and b fall in the same Sunday-anchored week.
func SameWeek(a, b time.Time) bool {
	return WeekStart(a).Equal(WeekStart(b))
}

// DaysElapsedInWeek counts the calendar days from the week start through
// today inclusive: 1 on Sunday, 7 on Saturday.
func DaysElapsedInWeek(today time.Time) int {
	return int(today.Weekday()) + 1
}

// inWindow reports whether a day key falls in [from, to).
func inWindow(day, from, to time.Time) bool {
	return !day.Before(from) && day.Before(to)
}
