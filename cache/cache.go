// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry and lock-free hit/miss metrics. It backs the TTL-cached
// reference-data and article-master lookups.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a generic thread-safe LRU cache. When constructed with a TTL,
// entries expire that long after they were last set; expired entries are
// treated as misses and dropped on access.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*entry[K, V]
	order    *list.List
	capacity int
	ttl      time.Duration

	now func() time.Time

	// Metrics (lock-free using atomics)
	hits    atomic.Uint64
	misses  atomic.Uint64
	evicts  atomic.Uint64
	expired atomic.Uint64
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	setAt    time.Time
	element  *list.Element
}

// New creates a Cache with the given capacity and no expiry.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return NewWithTTL[K, V](capacity, 0)
}

// NewWithTTL creates a Cache whose entries expire ttl after being set.
// A ttl of zero disables expiry. When the cache is full, the least
// recently used entry is evicted.
func NewWithTTL[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache[K, V]{
		items:    make(map[K]*entry[K, V], capacity),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get retrieves a value. Returns the zero value and false on a miss or
// when the entry has expired. A hit moves the entry to the front of the
// LRU list.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	e, ok := c.items[key]
	if ok && c.ttl > 0 && c.now().Sub(e.setAt) > c.ttl {
		delete(c.items, key)
		c.order.Remove(e.element)
		c.expired.Add(1)
		ok = false
	}
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(e.element)
	v := e.value
	c.mu.Unlock()

	c.hits.Add(1)
	return v, true
}

// Set adds or refreshes a value, restarting its TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.setAt = c.now()
		c.order.MoveToFront(e.element)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictOldest()
	}

	element := c.order.PushFront(key)
	c.items[key] = &entry[K, V]{
		key:     key,
		value:   value,
		setAt:   c.now(),
		element: element,
	}
}

// evictOldest removes the least recently used entry. Caller holds mu.
func (c *Cache[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	key := oldest.Value.(K)
	delete(c.items, key)
	c.order.Remove(oldest)
	c.evicts.Add(1)
}

// Delete removes an entry.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		delete(c.items, key)
		c.order.Remove(e.element)
	}
}

// Len returns the current number of entries, including not yet collected
// expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*entry[K, V], c.capacity)
	c.order.Init()
}

// Stats holds cache counters.
type Stats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	Evicts   uint64  `json:"evicts"`
	Expired  uint64  `json:"expired"`
	HitRate  float64 `json:"hit_rate"`
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.items)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:     size,
		Capacity: c.capacity,
		Hits:     hits,
		Misses:   misses,
		Evicts:   c.evicts.Load(),
		Expired:  c.expired.Load(),
		HitRate:  hitRate,
	}
}
