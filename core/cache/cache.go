// Package cache provides a small in-memory TTL cache with injectable
// clock and explicit Clear semantics. The cache is an ordinary object
// owned by whoever constructs it; nothing here is ambient global state.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache maps comparable keys to values with a fixed time-to-live. A
// zero or negative TTL disables expiry. All methods are safe for
// concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[K]entry[V]
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithClock overrides the time source, which tests use to step expiry
// deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// New creates an empty cache with the given TTL.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[K, V]{
		ttl:     ttl,
		now:     cfg.now,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the live value for a key. Expired entries are evicted on
// access.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores a value, restarting its TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Delete removes one key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
