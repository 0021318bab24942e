// Package kv defines the key-value storage boundary used by quotron
// registries. Operations are atomic per single key; composite index
// updates are the caller's responsibility.
package kv

import (
	"context"
	"time"
)

// Adapter is the abstract storage capability consumed by the registries.
// Implementations must make single-key reads and writes atomic; no
// multi-key transaction is assumed.
type Adapter interface {
	// Save stores value under key with no expiry.
	Save(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key, or errors.ErrNotFound
	// when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key, reporting whether anything was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// SaveWithTTL stores value under key with an expiry after which the
	// key lapses on its own.
	SaveWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
