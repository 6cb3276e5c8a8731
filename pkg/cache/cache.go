// Package cache provides the public caching interface for completion
// results. Backends include the in-memory LRU store and Redis; both map a
// request fingerprint to a serialized completion.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all cache backends implement.
// Implementations must be safe for concurrent use; a stored entry is
// visible to every lookup that starts after the store returns.
type Cache interface {
	// Get retrieves a value. A miss returns nil, nil; backend failures
	// return an error which callers treat as a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. Zero TTL means the backend
	// default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Stats returns hit/miss counters and current entry count.
	Stats() Stats
}

// Stats holds cache counters for monitoring.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Size   int   `json:"size"`
}
