package store

import (
	"context"
	"time"
)

// Store is a key-value store with per-key expiry. Every Put resets the
// entry's deadline (sliding expiry); a Get past the deadline reports the
// entry as absent. Expired entries are unrecoverable.
type Store interface {
	// Get returns the stored value for key, with ok=false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value under key with the given time-to-live. A ttl <= 0
	// stores the entry without an expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Close() error
}
