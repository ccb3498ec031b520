// Package cache is a typed, concurrency-safe in-memory cache whose entries
// never expire.
package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Cache maps string keys to values of type V.
type Cache[V any] struct {
	cache *gocache.Cache
}

// New returns an empty cache. Entries never expire, so no janitor runs.
func New[V any]() *Cache[V] {
	return &Cache[V]{cache: gocache.New(gocache.NoExpiration, 0)}
}

// Get retrieves an item from the cache by its key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zeroValue V

	value, found := c.cache.Get(key)
	if !found {
		return zeroValue, false
	}
	v, ok := value.(V)
	if !ok {
		return zeroValue, false
	}
	return v, true
}

// Set stores value under key, replacing any previous value.
func (c *Cache[V]) Set(key string, value V) {
	c.cache.Set(key, value, gocache.NoExpiration)
}

// Add stores value under key unless the key is present. It reports
// whether the value was stored.
func (c *Cache[V]) Add(key string, value V) bool {
	return c.cache.Add(key, value, gocache.NoExpiration) == nil
}

// Len returns the number of cached items.
func (c *Cache[V]) Len() int {
	return c.cache.ItemCount()
}

// Items returns a snapshot of the cache contents.
func (c *Cache[V]) Items() map[string]V {
	items := c.cache.Items()
	out := make(map[string]V, len(items))
	for k, item := range items {
		if v, ok := item.Object.(V); ok {
			out[k] = v
		}
	}
	return out
}
