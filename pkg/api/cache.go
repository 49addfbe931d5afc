package api

import (
	"sync"
	"time"
)

// Cache is an explicit expiring cache for API lookups, passed to the
// components that need one instead of living as process-wide state. The
// duplicate-PR guard uses it to avoid refetching open pull requests on every
// check within one run.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry

	// now is replaceable in tests.
	now func() time.Time
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// NewCache creates a cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or false if absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expires) {
		return nil, false
	}
	return entry.value, true
}

// Put stores value under key with the cache's TTL.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Evict removes key from the cache.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
