// Package lookup implements per-model bean finders with bounded memoization.
package lookup

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the number of query results each finder cache keeps.
const DefaultCacheSize = 42

type lruItem[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a size-bounded cache. On overflow it first drops every key that no
// longer passes the validity predicate and only then the least recently used
// entry.
type LRU[K comparable, V any] struct {
	mu    sync.Mutex
	max   int
	ll    *list.List
	items map[K]*list.Element
	valid func(K) bool
}

// NewLRU creates a cache holding at most max entries. valid may be nil.
func NewLRU[K comparable, V any](max int, valid func(K) bool) *LRU[K, V] {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &LRU[K, V]{
		max:   max,
		ll:    list.New(),
		items: make(map[K]*list.Element),
		valid: valid,
	}
}

// Get returns the value for key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*lruItem[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key, evicting if the cache is full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruItem[K, V]).value = value
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.max {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&lruItem[K, V]{key: key, value: value})
}

// GetOrCompute returns the cached value or computes and stores it. compute
// runs outside the lock; the result is published whole.
func (c *LRU[K, V]) GetOrCompute(key K, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Put(key, v)
	return v
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear drops every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *LRU[K, V]) clearLocked() {
	c.ll.Init()
	c.items = make(map[K]*list.Element)
}

func (c *LRU[K, V]) evictLocked() {
	if c.valid != nil {
		removed := 0
		for el := c.ll.Back(); el != nil; {
			prev := el.Prev()
			key := el.Value.(*lruItem[K, V]).key
			if !c.valid(key) {
				c.ll.Remove(el)
				delete(c.items, key)
				removed++
			}
			el = prev
		}
		if removed > 0 {
			return
		}
	}

	oldest := c.ll.Back()
	if oldest == nil {
		c.clearLocked()
		return
	}
	c.ll.Remove(oldest)
	delete(c.items, oldest.Value.(*lruItem[K, V]).key)
	if c.ll.Len() >= c.max {
		c.clearLocked()
	}
}
