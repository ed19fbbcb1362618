// Package cache provides the one bounded cache abstraction shared by the
// embedding client and the retrieval service: capacity-bounded LRU with TTL
// expiry and explicit invalidation by owner key. Entries are never served
// past their TTL.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a bounded LRU+TTL cache with an owner index for explicit
// invalidation. Owners are typically profile IDs: invalidating an owner
// removes every entry that references it.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]

	mu     sync.Mutex
	owners map[string]map[string]struct{} // owner -> keys
	keyref map[string][]string            // key -> owners
}

// New creates a cache holding at most size entries, each expiring after ttl.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		owners: make(map[string]map[string]struct{}),
		keyref: make(map[string][]string),
	}
	c.lru = expirable.NewLRU[string, V](size, func(key string, _ V) {
		c.dropKeyRefs(key)
	}, ttl)
	return c
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores a value under key with no owner association.
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// SetWithOwners stores a value and registers it against the given owners so
// InvalidateOwner can remove it later.
func (c *Cache[V]) SetWithOwners(key string, value V, owners ...string) {
	c.lru.Add(key, value)

	c.mu.Lock()
	for _, owner := range owners {
		keys, ok := c.owners[owner]
		if !ok {
			keys = make(map[string]struct{})
			c.owners[owner] = keys
		}
		keys[key] = struct{}{}
	}
	c.keyref[key] = append(c.keyref[key][:0], owners...)
	c.mu.Unlock()
}

// InvalidateOwner removes every entry registered against the owner.
// Returns the number of entries removed.
func (c *Cache[V]) InvalidateOwner(owner string) int {
	c.mu.Lock()
	keys := make([]string, 0, len(c.owners[owner]))
	for key := range c.owners[owner] {
		keys = append(keys, key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.lru.Remove(key)
	}
	return len(keys)
}

// Remove deletes a single entry.
func (c *Cache[V]) Remove(key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Purge drops all entries and owner associations.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
	c.mu.Lock()
	c.owners = make(map[string]map[string]struct{})
	c.keyref = make(map[string][]string)
	c.mu.Unlock()
}

// dropKeyRefs unregisters an evicted or removed key from the owner index.
// Called from the LRU eviction callback, so it must not touch the LRU itself.
func (c *Cache[V]) dropKeyRefs(key string) {
	c.mu.Lock()
	for _, owner := range c.keyref[key] {
		if keys, ok := c.owners[owner]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.owners, owner)
			}
		}
	}
	delete(c.keyref, key)
	c.mu.Unlock()
}
