// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// NormalizeFieldKey canonicalizes a baseline field key so registration,
// relationship lookups and hydration provenance all agree on the same form.
func NormalizeFieldKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
