package keyedcache

import "time"

// Option applies a configuration option to the cache.
type Option func(*memoryCache)

// WithTTL sets how long entries live after their last Set.
func WithTTL(ttl time.Duration) Option {
	return func(c *memoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxSize bounds the number of entries; the oldest entry is
// evicted when the bound is hit.
func WithMaxSize(maxSize int) Option {
	return func(c *memoryCache) {
		if maxSize > 0 {
			c.maxSize = maxSize
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *memoryCache) {
		if now != nil {
			c.now = now
		}
	}
}
