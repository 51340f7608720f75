package util

import (
	"sync"
	"time"
)

type (
	// Cache is an explicit TTL cache constructed and owned by the
	// caller. Expired entries are dropped lazily on access or in bulk
	// by Sweep, which the owning process invokes on its own schedule;
	// the cache never starts timers of its own
	Cache[T any] struct {
		entries map[string]cacheEntry[T]
		ttl     time.Duration
		stats   CacheStats
		mu      sync.Mutex
	}

	// CacheStats reports cumulative cache activity
	CacheStats struct {
		Hits      int64 `json:"hits"`
		Misses    int64 `json:"misses"`
		Evictions int64 `json:"evictions"`
		Entries   int   `json:"entries"`
	}

	cacheEntry[T any] struct {
		value    T
		insertAt time.Time
	}
)

// NewCache creates a TTL cache. A zero ttl means entries never expire
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		entries: map[string]cacheEntry[T]{},
		ttl:     ttl,
	}
}

// Get returns the cached value for key, dropping it first if expired
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && c.expired(entry, time.Now()) {
		delete(c.entries, key)
		c.stats.Evictions++
		ok = false
	}

	if !ok {
		c.stats.Misses++
		var zero T
		return zero, false
	}
	c.stats.Hits++
	return entry.value, true
}

// Set stores a value under key, resetting its insertion timestamp
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[T]{
		value:    value,
		insertAt: time.Now(),
	}
}

// Clear removes all entries
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry[T]{}
}

// Sweep evicts every expired entry and returns the eviction count
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			evicted++
		}
	}
	c.stats.Evictions += int64(evicted)
	return evicted
}

// Stats returns a point-in-time copy of the cache counters
func (c *Cache[T]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = len(c.entries)
	return stats
}

func (c *Cache[T]) expired(entry cacheEntry[T], now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.insertAt) > c.ttl
}
