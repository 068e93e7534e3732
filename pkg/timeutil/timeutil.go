// Package timeutil provides date and clock-time helpers for the classroom journal.
// Session identity and statistics work on calendar dates (YYYY-MM-DD) and wall
// clock times (HH:MM), so the parsing rules live here in one place.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the canonical session date format.
const DateLayout = "2006-01-02"

// ClockLayout is the canonical start-time format (24h).
const ClockLayout = "15:04"

// Now is the clock used by this package. Overridable in tests.
var Now = time.Now

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate formats a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CompactDate formats a time as YYYYMMDD (used in export filenames).
func CompactDate(t time.Time) string {
	return t.Format("20060102")
}

// ParseClock parses an HH:MM 24-hour clock string.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// IsValidClock reports whether s is a valid HH:MM 24-hour clock string.
func IsValidClock(s string) bool {
	_, _, err := ParseClock(s)
	return err == nil
}

// StartOfDay returns the start of the day (00:00:00) for t, keeping its location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// IsFutureDate reports whether the date lies after today.
// Comparison is by calendar day, not instant, so "today" is never future.
func IsFutureDate(t time.Time) bool {
	today := StartOfDay(Now())
	return StartOfDay(t).After(today)
}

// IsOlderThan reports whether the date lies more than d before today.
func IsOlderThan(t time.Time, d time.Duration) bool {
	today := StartOfDay(Now())
	return StartOfDay(t).Before(today.Add(-d))
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}
