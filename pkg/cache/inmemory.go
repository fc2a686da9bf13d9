package cache

import "sync"

// InMemory is a mutex-guarded map implementation of the same CACHE
// contract as ReferenceCache, for tests and demos that should not require
// a live Redis instance.
type InMemory struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewInMemory returns a ready-to-use InMemory cache.
func NewInMemory() *InMemory {
	return &InMemory{counts: make(map[string]int)}
}

// LockCache implements dualtree.CacheLocker.
func (c *InMemory) LockCache(cacheID string, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[cacheID] += count
	return nil
}

// Release decrements the reference count of cacheID by count.
func (c *InMemory) Release(cacheID string, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[cacheID] -= count
	return nil
}

// RefCount returns the current reference count for cacheID.
func (c *InMemory) RefCount(cacheID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[cacheID]
}
