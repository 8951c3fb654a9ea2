// Package kvstore provides an expiring key-value store abstraction.
//
// It backs every piece of short-lived state in CineVerse: OTP codes,
// rate-limit counters, and cached lookups. Production uses Redis; tests and
// single-node dev use the in-memory store. The in-memory store loses all
// state on restart — pending OTPs included — which is acceptable only
// outside production.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is missing or has expired.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the minimal interface for TTL-capable key-value storage.
type Store interface {
	// Get returns the string value of a key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores a value with an expiry. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes one or more keys.
	Del(ctx context.Context, keys ...string) error
	// Incr atomically increments a counter key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining time-to-live. Zero or negative if missing.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
