package cache

import (
	"sync"
	"time"
)

// cacheEntry holds a cached value with its insertion time.
type cacheEntry struct {
	value      string
	insertedAt time.Time
}

// InMemoryCache is a thread-safe in-memory cache with lazy TTL expiry.
// Expired entries are removed when read; there is no background sweep and
// no capacity bound.
type InMemoryCache struct {
	cache map[string]cacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

// Option configures an InMemoryCache.
type Option func(*InMemoryCache)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *InMemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
// If ttl is 0 or negative, entries never expire.
func NewInMemoryCache(ttl time.Duration, opts ...Option) *InMemoryCache {
	if ttl < 0 {
		ttl = 0
	}
	c := &InMemoryCache{
		cache: make(map[string]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache. An entry older than the TTL is
// reported absent and removed.
func (c *InMemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if c.expired(entry, c.now()) {
		c.mu.Lock()
		// A Set may have landed between the locks; only drop what is still stale.
		if current, ok := c.cache[key]; ok && c.expired(current, c.now()) {
			delete(c.cache, key)
		}
		c.mu.Unlock()
		return "", false
	}

	return entry.value, true
}

// Set stores a value in the cache, overwriting any previous entry.
func (c *InMemoryCache) Set(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = cacheEntry{
		value:      value,
		insertedAt: c.now(),
	}
	return nil
}

func (c *InMemoryCache) expired(entry cacheEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.insertedAt) > c.ttl
}

// Len returns the number of entries in the cache (including expired ones).
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Entries returns all non-expired entries as key-value pairs.
func (c *InMemoryCache) Entries() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]string, len(c.cache))
	now := c.now()

	for key, entry := range c.cache {
		if c.expired(entry, now) {
			continue
		}
		result[key] = entry.value
	}

	return result
}

// Verify InMemoryCache implements ExportableCache
var _ ExportableCache = (*InMemoryCache)(nil)
