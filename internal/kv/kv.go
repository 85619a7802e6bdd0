// Package kv wraps a managed key-value service behind put/get/delete/list
// primitives. All higher-level state (cache entries, rate windows, session
// records) lives under this abstraction. Each call is atomic for its single
// key only; there are no cross-key transactions.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or has expired.
// Callers using the store for best-effort caching must treat I/O failures
// and ErrNotFound identically.
var ErrNotFound = errors.New("kv: key not found")

// Store defines the key-value adapter contract.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores value under key. A zero ttl means no expiry; otherwise the
	// store deletes the key itself once ttl elapses.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves the value for key. Returns ErrNotFound for absent or
	// expired keys.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies the backing service is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
