// Package cache provides a small thread-safe TTL cache used by the remote
// API clients to avoid hammering upstream services.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value    T
	deadline time.Time
}

// Cache maps string keys to values that expire after a fixed TTL.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	done    chan struct{}
}

// New creates a cache whose values expire after ttl. A background janitor
// sweeps expired entries until Close is called.
func New[T any](ttl time.Duration) *Cache[T] {
	c := &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get returns the cached value for key and whether it is still fresh.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.deadline) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, deadline: time.Now().Add(c.ttl)}
}

// Delete drops key from the cache.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor goroutine.
func (c *Cache[T]) Close() {
	close(c.done)
}

func (c *Cache[T]) janitor() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *Cache[T]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.deadline) {
			delete(c.entries, key)
		}
	}
}
