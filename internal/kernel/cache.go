package kernel

import "sync"

type cacheKey struct {
	radius int
	curve  string
}

// Cache memoises kernels by (radius, curve name).
//
// Curve identity is by name: callers must never register two different
// curves under one name. Cache is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	maxRadius int
	entries   map[cacheKey]*Kernel
	hits      int
	misses    int
}

// NewCache creates an empty cache bounded by maxRadius.
func NewCache(maxRadius int) *Cache {
	if maxRadius <= 0 {
		maxRadius = DefaultMaxRadius
	}
	return &Cache{
		maxRadius: maxRadius,
		entries:   make(map[cacheKey]*Kernel),
	}
}

// MaxRadius returns the largest radius the cache will build.
func (c *Cache) MaxRadius() int { return c.maxRadius }

// Get returns the kernel for (radius, name), building it from curve on
// first use.
func (c *Cache) Get(radius int, name string, curve Curve) (*Kernel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{radius: radius, curve: name}
	if k, ok := c.entries[key]; ok {
		c.hits++
		return k, nil
	}
	k, err := Build(radius, curve, c.maxRadius)
	if err != nil {
		return nil, err
	}
	c.misses++
	c.entries[key] = k
	return k, nil
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
