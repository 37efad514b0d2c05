// Package cache provides an in-process cache with TTL and size-bounded
// eviction, used as the current-week fallback when Redis is not configured.
package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a cached value with its expiration and insertion time.
type entry struct {
	value      []byte
	expiresAt  time.Time
	insertedAt time.Time
}

// LRUCache is a thread-safe in-memory cache. At capacity the oldest entry by
// insertion time is evicted. Expired entries are dropped lazily on Get.
type LRUCache struct {
	mu         sync.Mutex
	items      map[string]*entry
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries. defaultTTL
// applies when Set is called with a non-positive ttl.
func NewLRUCache(maxSize int, defaultTTL time.Duration) *LRUCache {
	if maxSize < 1 {
		maxSize = 1
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &LRUCache{
		items:      make(map[string]*entry, maxSize),
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the value for key. A missing or expired key reports false.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl.
func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()
	if _, ok := c.items[key]; !ok && len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = &entry{value: value, expiresAt: now.Add(ttl), insertedAt: now}
	return nil
}

// Invalidate removes key.
func (c *LRUCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Size returns the number of entries, including expired ones not yet dropped.
func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evictOldest removes the entry with the oldest insertedAt. Caller holds c.mu.
func (c *LRUCache) evictOldest() {
	var (
		oldestKey  string
		oldestTime time.Time
		first      = true
	)
	for k, e := range c.items {
		if first || e.insertedAt.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.insertedAt, false
		}
	}
	if !first {
		delete(c.items, oldestKey)
	}
}
