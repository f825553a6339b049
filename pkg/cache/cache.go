// Package cache stores rendered diagram artifacts keyed by content hash.
//
// Three backends share the [Cache] interface:
//
//   - [FileCache]: one JSON file per entry under a local directory (CLI default)
//   - [RedisCache]: a shared Redis instance for multi-process deployments
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys come from a [Keyer] so callers never build key strings by hand. Use
// [NewScopedKeyer] to isolate namespaces that share one backend.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
//
// Get reports a miss as (nil, false, nil); an error means the backend itself
// failed. A ttl of zero stores the entry without expiration.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default entry lifetimes.
const (
	// TTLSchema bounds how long a parsed schema summary is reused.
	TTLSchema = 24 * time.Hour

	// TTLArtifact bounds how long a rendered artifact is reused. Artifacts are
	// keyed by the hash of their DOT source so they never go stale; the TTL
	// only limits disk and memory growth.
	TTLArtifact = 7 * 24 * time.Hour
)
