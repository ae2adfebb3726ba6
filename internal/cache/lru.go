// Package cache keeps recent immutable reads in memory.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a bounded map that drops the least recently read key when full and
// treats entries older than the TTL as absent.
type LRU[K comparable, V any] struct {
	mu      sync.Mutex
	limit   int
	ttl     time.Duration
	byKey   map[K]*list.Element
	recency *list.List
	now     func() time.Time
}

type slot[K comparable, V any] struct {
	key      K
	val      V
	storedAt time.Time
}

// NewLRU returns a cache holding at most limit entries. A limit below one
// yields a cache that stores nothing.
func NewLRU[K comparable, V any](limit int, ttl time.Duration) *LRU[K, V] {
	if limit < 0 {
		limit = 0
	}
	return &LRU[K, V]{
		limit:   limit,
		ttl:     ttl,
		byKey:   make(map[K]*list.Element, limit),
		recency: list.New(),
		now:     time.Now,
	}
}

func (c *LRU[K, V]) expired(s *slot[K, V]) bool {
	return c.ttl > 0 && c.now().Sub(s.storedAt) >= c.ttl
}

// Get returns the stored value and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.byKey[key]
	if !ok {
		return zero, false
	}
	s := el.Value.(*slot[K, V])
	if c.expired(s) {
		c.drop(el)
		return zero, false
	}
	c.recency.MoveToFront(el)
	return s.val, true
}

// Put stores val, refreshing its age when key is already present.
func (c *LRU[K, V]) Put(key K, val V) {
	if c.limit == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byKey[key]; ok {
		s := el.Value.(*slot[K, V])
		s.val, s.storedAt = val, c.now()
		c.recency.MoveToFront(el)
		return
	}
	for c.recency.Len() >= c.limit {
		c.drop(c.recency.Back())
	}
	c.byKey[key] = c.recency.PushFront(&slot[K, V]{key: key, val: val, storedAt: c.now()})
}

// Remove forgets key.
func (c *LRU[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byKey[key]; ok {
		c.drop(el)
	}
}

// Len counts stored entries, expired ones included until they are read.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recency.Len()
}

func (c *LRU[K, V]) drop(el *list.Element) {
	c.recency.Remove(el)
	delete(c.byKey, el.Value.(*slot[K, V]).key)
}
