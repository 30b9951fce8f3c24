// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// NilIfBlank returns nil for empty or whitespace-only strings
func NilIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Deref returns the pointed string or the empty string
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
