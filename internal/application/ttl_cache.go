package application

import (
	"sync"
	"time"
)

// ttlCache keeps recently resolved identities in memory so that sign in and
// session checks keep working for a while without reaching the store.
type ttlCache[K comparable, V any] struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[K]ttlCacheEntry[V]
}

type ttlCacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func newTTLCache[K comparable, V any](ttl time.Duration, maxEntries int, now func() time.Time) *ttlCache[K, V] {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &ttlCache[K, V]{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[K]ttlCacheEntry[V]),
	}
}

func (c *ttlCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return zero, false
	}
	return entry.value, true
}

// Store caches value for the default TTL.
func (c *ttlCache[K, V]) Store(key K, value V) {
	if c == nil {
		return
	}
	c.StoreUntil(key, value, c.now().Add(c.ttl))
}

// StoreUntil caches value until expiresAt.
func (c *ttlCache[K, V]) StoreUntil(key K, value V, expiresAt time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = ttlCacheEntry[V]{value: value, expiresAt: expiresAt}
}

func (c *ttlCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeleteFunc removes every entry for which match returns true.
func (c *ttlCache[K, V]) DeleteFunc(match func(K, V) bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if match(key, entry.value) {
			delete(c.entries, key)
		}
	}
}

func (c *ttlCache[K, V]) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[K]ttlCacheEntry[V])
	c.mu.Unlock()
}

func (c *ttlCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ttlCache[K, V]) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// evictOneLocked drops the entry closest to expiry.
func (c *ttlCache[K, V]) evictOneLocked() {
	var (
		victim K
		oldest time.Time
		found  bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			victim, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}
