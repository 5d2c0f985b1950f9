package store

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// contextCache holds rendered history snapshots keyed by user id and limit.
// It is shared across all plans and models for a user so every backend sees
// the same history. The mutex matters: the cache is written from concurrent
// request handlers.
type contextCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	snapshot historySnapshot
	storedAt time.Time
}

func newContextCache(ttl time.Duration) *contextCache {
	return &contextCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(userID string, limit int) string {
	return userID + ":" + strconv.Itoa(limit)
}

func (c *contextCache) get(key string) (historySnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return historySnapshot{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return historySnapshot{}, false
	}
	return entry.snapshot, true
}

func (c *contextCache) set(key string, snapshot historySnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{snapshot: snapshot, storedAt: c.now()}
}

func (c *contextCache) invalidateUser(userID string) {
	prefix := userID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}
