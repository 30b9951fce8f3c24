// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// DateOnly formats t as a UTC calendar date (YYYY-MM-DD)
func DateOnly(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
