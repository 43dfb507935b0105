package services

import (
	"context"
	"sync"
	"time"
)

// Cache defaults shared by the transcript and extraction caches.
const (
	CacheTTL     = 24 * time.Hour
	CacheMaxSize = 100
)

type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
}

// Cache is a TTL cache with a capacity bound. Expired entries are never
// returned as hits; when the cache is full the oldest entry by timestamp is
// evicted. Safe for concurrent use. Owned by whoever composes the clients so
// tests can reset it deterministically.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]cacheEntry[T]
	now     func() time.Time
}

// NewCache creates an empty cache with the given TTL and capacity.
func NewCache[T any](ttl time.Duration, maxSize int) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]cacheEntry[T]),
		now:     time.Now,
	}
}

// Get returns the cached value for key. An expired entry counts as a miss
// and is purged.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}

	return e.value, true
}

// Set stores value under key, evicting the oldest entry when full. The whole
// entry is written atomically, there is no partial-write hazard.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = cacheEntry[T]{value: value, storedAt: c.now()}
}

// evictOldest removes the entry with the smallest timestamp. Caller holds the lock.
func (c *Cache[T]) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
		first     = true
	)
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.storedAt, false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// Sweep purges all expired entries and returns how many were removed.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.now().Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Reset drops all entries.
func (c *Cache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry[T])
}

// StartSweeper runs a periodic eviction sweep until ctx is cancelled.
func (c *Cache[T]) StartSweeper(ctx context.Context, every time.Duration) {
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Sweep()
			}
		}
	}()
}
