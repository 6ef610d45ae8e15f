package utils

import (
	"fmt"
	"time"
)

// ParseDate parses a calendar date in YYYY-MM-DD form, the format used
// for fee validity bounds, as a UTC midnight timestamp.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t.UTC(), nil
}

// FormatDate renders a timestamp as its UTC calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
