package lookup

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheSize = 128
	// Entries older than this are never returned; they are silently
	// replaced on the next lookup.
	CacheTTL = 15 * time.Minute
)

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache is a bounded TTL memoization cache keyed by string. It is a local
// best-effort optimization only: a racing duplicate fetch is wasteful but
// never incorrect.
type Cache[V any] struct {
	lru *lru.Cache[string, cacheEntry[V]]
	ttl time.Duration
	now func() time.Time
}

// NewCache creates a cache holding at most size entries, each valid for ttl.
// A non-positive size or ttl selects the defaults.
func NewCache[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = CacheTTL
	}
	// lru.New only fails on a non-positive size, which is guarded above.
	inner, _ := lru.New[string, cacheEntry[V]](size)
	return &Cache[V]{lru: inner, ttl: ttl, now: time.Now}
}

// Get returns the cached value for key if present and fresh.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		c.lru.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key, replacing any previous entry.
func (c *Cache[V]) Put(key string, value V) {
	c.lru.Add(key, cacheEntry[V]{value: value, storedAt: c.now()})
}

// Purge drops all entries.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// SetClock overrides the time source. Tests only.
func (c *Cache[V]) SetClock(now func() time.Time) {
	c.now = now
}
