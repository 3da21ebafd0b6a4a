// Package storage provides the persistence layer for TabSess.
package storage

import (
	"context"
	"errors"
	"time"
)

// Cache errors.
var (
	// ErrKeyNotFound is returned when a key does not exist or has expired.
	ErrKeyNotFound = errors.New("storage: key not found")

	// ErrCacheClosed is returned when operating on a closed cache.
	ErrCacheClosed = errors.New("storage: cache is closed")

	// ErrInvalidKey is returned for empty or malformed keys.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// CacheClient is the TTL-aware key-value cache interface backing the
// session store.
//
// Implementations must treat a TTL of zero as "no expiration" and must
// make expired entries indistinguishable from absent ones: Get on an
// expired key returns ErrKeyNotFound even if the backend has not yet
// physically reclaimed the entry.
type CacheClient interface {
	// Get retrieves the value for a key.
	// Returns ErrKeyNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under a key with the given TTL.
	// A zero TTL stores the entry without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Expire resets the TTL of an existing key without touching its value.
	// Returns ErrKeyNotFound if the key does not exist or has expired.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Has reports whether a live (non-expired) entry exists for the key.
	Has(ctx context.Context, key string) (bool, error)

	// Stats returns point-in-time cache statistics.
	Stats(ctx context.Context) (CacheStats, error)

	// Close releases backend resources. The cache is unusable afterwards.
	Close() error
}

// CacheStats holds point-in-time statistics of a cache backend.
type CacheStats struct {
	// Keys is the number of live entries.
	Keys int64 `json:"keys"`

	// BytesUsed is the approximate memory or disk footprint in bytes.
	BytesUsed int64 `json:"bytes_used"`

	// Expired is the cumulative number of entries reclaimed by expiry.
	Expired int64 `json:"expired"`

	// Backend identifies the implementation ("memory" or "badger").
	Backend string `json:"backend"`
}
