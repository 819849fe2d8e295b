package cache

import (
	"context"
	"time"
)

// Store is the storage backend behind a Cache.
// Implementations must be safe for concurrent use, and a value passed to Set
// must become visible atomically.
type Store interface {
	// Get returns the stored value and true, or false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
