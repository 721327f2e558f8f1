package shared

import (
	"fmt"
	"time"
)

// MonthLayout is the canonical settlement month key format (e.g. "2026-02").
const MonthLayout = "2006-01"

// DateOnly truncates t to midnight in t's location. All lifecycle comparisons
// work at calendar-day granularity; time-of-day must never influence a stage.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CalendarDays returns the whole-day difference to - from, ignoring
// time-of-day on both sides. Both dates are rebuilt as UTC midnights so the
// difference is an exact day count even across a DST transition or between
// inputs carrying different locations.
func CalendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}

// MonthKey formats t as a settlement month key.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// ParseMonthKey parses a settlement month key.
func ParseMonthKey(s string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse month %q: %w", s, ErrValidation)
	}
	return t, nil
}

// SameCalendarDay reports whether a and b fall on the same calendar day.
func SameCalendarDay(a, b time.Time) bool {
	return CalendarDays(a, b) == 0
}
