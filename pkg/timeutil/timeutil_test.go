package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())
	assert.Equal(t, 15, parsed.Day())

	_, err = ParseDate("15/03/2026")
	assert.Error(t, err)

	_, err = ParseDate("2026-3-15")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestFormatDate_RoundTrip(t *testing.T) {
	parsed, err := ParseDate("2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02", FormatDate(parsed))
	assert.Equal(t, "20260102", CompactDate(parsed))
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, hour)
	assert.Equal(t, 30, minute)

	assert.True(t, IsValidClock("00:00"))
	assert.True(t, IsValidClock("23:59"))
	assert.False(t, IsValidClock("24:00"))
	assert.False(t, IsValidClock("8:30am"))
	assert.False(t, IsValidClock(""))
}

func TestIsFutureDate(t *testing.T) {
	fixed := time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)
	Now = func() time.Time { return fixed }
	defer func() { Now = time.Now }()

	// Today is never future even late in the day.
	assert.False(t, IsFutureDate(time.Date(2026, 6, 15, 23, 0, 0, 0, time.UTC)))
	assert.False(t, IsFutureDate(time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.True(t, IsFutureDate(time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)))
}

func TestIsOlderThan(t *testing.T) {
	fixed := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	Now = func() time.Time { return fixed }
	defer func() { Now = time.Now }()

	year := 365 * 24 * time.Hour
	assert.False(t, IsOlderThan(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), year))
	assert.True(t, IsOlderThan(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), year))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 6, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 6, 4, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, DaysBetween(a, b))
	assert.Equal(t, -3, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}
