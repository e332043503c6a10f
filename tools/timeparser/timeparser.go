package timeparser

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout of a stats date
const DateLayout = "2006-01-02"

// ParseEventTimestamp attempts to parse a meal event timestamp with multiple formats.
// Timestamps without an offset are wall-clock times in loc.
func ParseEventTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}

	formats := []string{
		"2006-01-02T15:04:05", // Local date-time without offset
		"2006-01-02 15:04:05", // SQL style
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", s, lastErr)
}

// DateOf returns midnight of the calendar day t falls on in loc
func DateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayBounds returns the half-open interval [start, end) in loc covering the calendar day of date.
// Only the year, month and day of date are used, so DATE values scanned as UTC midnight work too.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// FormatDate renders the calendar day of date as YYYY-MM-DD
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}
