// Package cache provides the TTL-bounded result cache consulted before and
// populated after each adapter call and after a full pipeline run.
package cache

import (
	"sync"
	"time"
)

// Stage discriminators appended to the normalized subject identity so
// stage-level and whole-profile entries coexist under one store.
const (
	StageRepo    = "repo"
	StageTech    = "tech"
	StageContact = "contact"
	StageCompany = "company"
	StageLead    = "lead"
)

// DefaultTTL is applied by Set when the caller passes a non-positive TTL.
const DefaultTTL = time.Hour

// Key builds a cache key from a normalized subject identity and a stage
// discriminator.
func Key(identity, stage string) string {
	return identity + ":" + stage
}

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

// Cache is a concurrent TTL key/value store with passive expiry: a stale
// entry is treated as a miss and silently overwritten on the next write.
// No background sweep runs.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock creates a cache with an injected clock for tests.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Get returns the cached value for key, or a miss if absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= e.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL, replacing any prior entry.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, insertedAt: c.now(), ttl: ttl}
	c.mu.Unlock()
}

// Len returns the number of entries currently held, including expired ones
// that have not been overwritten yet.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
