// Package timeutil provides time formatting utilities.
package timeutil

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration into a human-readable string.
// It rounds to the nearest second and displays in "Xm Ys" or "Ys" format.
//
// Examples:
//   - 1m 23s for durations >= 1 minute
//   - 45s for durations < 1 minute
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := d / time.Minute
	seconds := (d % time.Minute) / time.Second

	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatUntil describes how long until t, for rate-limit reset messages.
// A zero or past time yields a fixed string instead of a countdown.
func FormatUntil(t time.Time) string {
	if t.IsZero() {
		return "reset time unknown"
	}

	remaining := time.Until(t)
	if remaining <= 0 {
		return "resets now"
	}
	return "resets in " + FormatDuration(remaining)
}
