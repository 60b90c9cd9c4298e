// Package kvstore is the shared TTL key/value store behind the blacklist,
// the JWKS cache and the login attempt counters.
//
// Redis backs multi-instance deployments. The in-memory store serves single
// instance runs and tests.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a key/value store with per-key expiry. Every single-key
// operation is atomic. A ttl of zero means no expiry.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	// Incr increments the integer at key and resets its expiry to ttl,
	// returning the new value. Missing keys start at zero.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Ping(ctx context.Context) error
}
