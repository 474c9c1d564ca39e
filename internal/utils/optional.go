package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

// SamePtr compares two optional values: both nil, or both set and equal.
func SamePtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// NonBlank trims s and returns nil when nothing is left.
func NonBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
