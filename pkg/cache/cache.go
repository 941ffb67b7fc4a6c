// Package cache provides the byte-level caches peergraph keeps between
// runs: raw registry responses and finished resolutions.
//
// Three backends implement [Cache]:
//
//   - [FileCache] stores entries under a directory, for the CLI
//   - [RedisCache] shares entries between server replicas
//   - [NullCache] stores nothing, for --no-cache and tests
//
// Keys come from a [Keyer] so that every caller builds them the same way.
// [Instrument] wraps any backend with the observability cache hooks.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key. hit is false when the key is absent
	// or expired; that is not an error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs.
const (
	// HTTPTTL bounds how long a registry response is reused.
	HTTPTTL = 24 * time.Hour
	// ResolutionTTL bounds how long a finished resolution is reused.
	ResolutionTTL = time.Hour
)
