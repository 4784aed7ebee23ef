package artifact

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/latticeforge/kernel/hash"
)

// Cache is a content-addressed get-or-compute cache for artifacts of type
// T. Identical hashes always produce identical content (that's the whole
// point of content addressing), so once an entry is computed it is cached
// forever; the only thing worth sharing across callers is the computation
// itself, which GetOrCompute guarantees runs at most once concurrently per
// hash via singleflight.
type Cache[T Content] struct {
	group singleflight.Group

	mu      sync.RWMutex
	entries map[hash.Hash]Artifact[T]
}

// NewCache returns an empty cache.
func NewCache[T Content]() *Cache[T] {
	return &Cache[T]{entries: make(map[hash.Hash]Artifact[T])}
}

// Get returns the cached artifact for h, if present, without triggering a
// computation.
func (c *Cache[T]) Get(h hash.Hash) (Artifact[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.entries[h]
	return a, ok
}

// Put inserts a precomputed artifact directly, bypassing GetOrCompute. Used
// when an artifact arrives already built (e.g. loaded from internal/audit)
// and recomputing it would be wasted work.
func (c *Cache[T]) Put(h hash.Hash, a Artifact[T]) {
	c.mu.Lock()
	c.entries[h] = a
	c.mu.Unlock()
}

// GetOrCompute returns the cached artifact for h, computing it with compute
// if absent. When N goroutines call GetOrCompute for the same h at once,
// exactly one of them runs compute; the rest block and receive its result,
// whether that result is a value or an error — compute's error is not
// cached, so a later call retries it fresh.
func (c *Cache[T]) GetOrCompute(h hash.Hash, compute func() (Artifact[T], error)) (Artifact[T], error) {
	if a, ok := c.Get(h); ok {
		return a, nil
	}

	v, err, _ := c.group.Do(h.String(), func() (interface{}, error) {
		// Re-check: another caller may have finished computing and stored
		// the result between our first Get and acquiring the singleflight
		// slot.
		if a, ok := c.Get(h); ok {
			return a, nil
		}
		a, err := compute()
		if err != nil {
			return Artifact[T]{}, err
		}
		c.Put(h, a)
		return a, nil
	})
	if err != nil {
		return Artifact[T]{}, err
	}
	return v.(Artifact[T]), nil
}

// Len reports how many artifacts are cached.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Delete evicts h from the cache, if present.
func (c *Cache[T]) Delete(h hash.Hash) {
	c.mu.Lock()
	delete(c.entries, h)
	c.mu.Unlock()
}
