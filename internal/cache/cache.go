// Package cache provides the TTL cache owned by the habit service. Entries
// are dropped explicitly on mutation and expire after a fixed TTL otherwise.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed view over go-cache. Each key also carries a generation
// that Invalidate bumps, so a fill started before an invalidation can be
// refused with SetIfCurrent.
type Cache[V any] struct {
	store *gocache.Cache
	ttl   time.Duration

	mu   sync.Mutex
	gens map[string]uint64
}

// New creates a cache whose entries live for ttl. A non-positive ttl disables
// caching. Expired entries are removed by Purge, there is no janitor goroutine.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		store: gocache.New(ttl, 0),
		ttl:   ttl,
		gens:  make(map[string]uint64),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	v, ok := raw.(V)
	return v, ok
}

func (c *Cache[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// Generation returns the token to pass to SetIfCurrent after loading key.
func (c *Cache[V]) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key]
}

// SetIfCurrent stores value only if key was not invalidated since gen was
// taken. It reports whether the value was stored.
func (c *Cache[V]) SetIfCurrent(key string, value V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.Set(key, value)
	return c.ttl > 0
}

// Invalidate drops the entry for key, if any.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.store.Delete(key)
}

// Forget drops key and its generation. Use it for keys that will never be
// loaded again, such as a deleted habit.
func (c *Cache[V]) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.gens, key)
	c.store.Delete(key)
}

// Purge removes expired entries and returns how many were dropped.
func (c *Cache[V]) Purge() int {
	before := c.store.ItemCount()
	c.store.DeleteExpired()
	if removed := before - c.store.ItemCount(); removed > 0 {
		return removed
	}
	return 0
}

// Len counts stored entries, expired ones included until the next Purge.
func (c *Cache[V]) Len() int {
	return c.store.ItemCount()
}
