package verifier

import "sync"

// Cache stores verdicts keyed by content hash. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) (*Result, bool)
	// Put stores the result unless the key is already present; the
	// stored result (existing or new) is returned. First writer wins.
	Put(key string, r *Result) *Result
}

// MemoryCache is a write-once in-process cache. A key's first verdict
// is immutable; concurrent writers racing on the same key all end up
// observing the same stored result.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string]*Result
}

// NewMemoryCache allocates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]*Result)}
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.m[key]
	return r, ok
}

// Put implements Cache.
func (c *MemoryCache) Put(key string, r *Result) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.m[key]; ok {
		return existing
	}
	c.m[key] = r
	return r
}

// Len reports the number of cached verdicts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
