package embedcache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by backends that distinguish a miss from a
// transport error; callers should treat it the same as (nil, false, nil).
var ErrNotFound = errors.New("embedcache: key not found")

// Cache is the storage interface shared by the embedding cache and the
// router's query-result cache. Implementations must be safe for concurrent
// use and must never block the caller indefinitely: a backend that cannot
// reach its store should fail fast so the caller falls through to a fresh
// computation.
type Cache interface {
	// Get returns the cached value for key. found is false on a miss; it is
	// also false (with a nil error) when the cache is disabled.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key with the given TTL, unconditionally
	// overwriting any prior value. The entry expires at now+ttl; a zero TTL
	// has no special meaning, so callers pass a positive TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping reports whether the backend is reachable, used by health checks.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// noopCache is used when no backend is configured; every Get is a miss and
// every Set is silently discarded: an "absent backend
// degrades to no-op" contract.
type noopCache struct{}

// NewNoop returns a Cache that always misses and never stores anything.
func NewNoop() Cache { return noopCache{} }

func (noopCache) Get(_ context.Context, _ string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (noopCache) Ping(_ context.Context) error                                     { return nil }
func (noopCache) Close() error                                                     { return nil }
