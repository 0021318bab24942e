// Package util holds small generic helpers shared across quotron.
package util

// Ptr returns a pointer to v. Useful for optional literal fields.
func Ptr[T any](v T) *T {
	return &v
}
