package embedcache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry wraps a cached value with its absolute expiry time.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// LRUCache is the default in-memory embedding/result cache backend: a
// bounded LRU keyed by cache key, with per-entry TTL checked on read. It
// requires no external service, preferring an
// embedded default over a network dependency.
type LRUCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, entry]
}

// NewLRU creates an LRUCache holding at most maxEntries items. maxEntries
// must be positive.
func NewLRU(maxEntries int) (*LRUCache, error) {
	c, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		c.cache.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (c *LRUCache) Ping(_ context.Context) error { return nil }

func (c *LRUCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
	return nil
}
