// Package keyedcache provides an explicit keyed store for transient
// per-subject state (draft answers, per-key submission guards). It
// replaces ambient module-level maps: the cache is constructed once,
// injected into the components that need it, and bounded by TTL and
// capacity so entries cannot accumulate forever.
package keyedcache

import (
	"context"
	"sync"
	"time"
)

// Key addresses one cached value by subject and dimension, e.g.
// ("interview-42", "draft") or ("candidate-7", "submission-lock").
type Key struct {
	SubjectID string
	Dimension string
}

// Cache is the keyed store contract.
type Cache interface {
	// Get returns the stored value, or false when absent or expired.
	Get(ctx context.Context, k Key) (string, bool)

	// Set stores a value under k, refreshing its TTL.
	Set(ctx context.Context, k Key, value string)

	// Delete removes k if present.
	Delete(ctx context.Context, k Key)

	// Len returns the number of live entries.
	Len() int
}

type entry struct {
	value     string
	expiresAt time.Time
	storedAt  time.Time
}

// memoryCache implements Cache with a mutex-guarded map, lazy expiry
// on read, and oldest-first eviction at capacity.
type memoryCache struct {
	mu      sync.Mutex
	entries map[Key]entry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// New creates a cache with configuration options.
func New(opts ...Option) Cache {
	c := &memoryCache{
		entries: make(map[Key]entry),
		ttl:     15 * time.Minute,
		maxSize: 10000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, k Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, k)
		return "", false
	}
	return e.value, true
}

func (c *memoryCache) Set(_ context.Context, k Key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest(now)
	}
	c.entries[k] = entry{
		value:     value,
		expiresAt: now.Add(c.ttl),
		storedAt:  now,
	}
}

func (c *memoryCache) Delete(_ context.Context, k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k)
}

func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	now := c.now()
	for _, e := range c.entries {
		if !now.After(e.expiresAt) {
			n++
		}
	}
	return n
}

// evictOldest drops expired entries first, then the oldest live entry.
// Must be called with c.mu held.
func (c *memoryCache) evictOldest(now time.Time) {
	var oldestKey Key
	var oldestAt time.Time
	found := false
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			return
		}
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
