package cache

import (
	"context"
	"sync"
	"time"
)

// DedupCache remembers inbound message IDs so redelivered webhooks can be
// dropped.
type DedupCache interface {
	// Seen records id and reports whether it had already been recorded within
	// the cache TTL.
	Seen(ctx context.Context, id string) (bool, error)
}

// MemoryCache is the in-process fallback used when Redis is not configured.
type MemoryCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

func (c *MemoryCache) Seen(_ context.Context, id string) (bool, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, expires := range c.entries {
		if expires.Before(now) {
			delete(c.entries, key)
		}
	}

	if _, ok := c.entries[id]; ok {
		return true, nil
	}
	c.entries[id] = now.Add(c.ttl)
	return false, nil
}
