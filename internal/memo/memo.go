// Package memo provides a single-entry memoization cache.
package memo

import "sync"

// Cache remembers the value computed for the most recent key only.
type Cache[K, V any] struct {
	mu    sync.RWMutex
	equal func(a, b K) bool
	key   K
	value V
	ok    bool
}

// New returns an empty cache comparing keys with equal.
func New[K, V any](equal func(a, b K) bool) *Cache[K, V] {
	return &Cache[K, V]{equal: equal}
}

// Get returns the stored value when key matches the stored key. Otherwise it
// calls compute, stores the new pair and returns the fresh value.
func (c *Cache[K, V]) Get(key K, compute func(K) V) V {
	c.mu.RLock()
	if c.ok && c.equal(c.key, key) {
		v := c.value
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	v := compute(key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.value = v
	c.ok = true
	return v
}

// Invalidate drops the stored pair.
func (c *Cache[K, V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zeroK K
	var zeroV V
	c.key, c.value, c.ok = zeroK, zeroV, false
}
