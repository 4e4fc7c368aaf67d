package memory

import (
	"context"
	"sync"
	"time"

	"school-quiz-service/internal/cache"
)

// Cache is an in-process implementation of cache.Cache with per-entry TTL.
// Expired entries are dropped lazily on read. There is no eviction beyond
// TTL expiry; the key space is enumerable and small.
//
// A single Cache instance is only coherent within one process. Horizontally
// scaled deployments must use the Redis backend instead.
type Cache struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func NewCache() *Cache {
	return NewCacheWithClock(time.Now)
}

// NewCacheWithClock allows deterministic expiry in tests.
func NewCacheWithClock(clock func() time.Time) *Cache {
	return &Cache{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	now := c.clock()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, cache.ErrMiss
	}
	if !e.expiresAt.After(now) {
		c.mu.Lock()
		if current, stillThere := c.entries[key]; stillThere && !current.expiresAt.After(now) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, cache.ErrMiss
	}
	return e.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.clock().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) FlushAll(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}
