package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a bounded in-memory cache with per-entry expiry. Reads and
// existence checks both refresh recency. Safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	order    *list.List // front is most recently used
	items    map[string]*list.Element
}

type lruItem[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// NewLRU creates an LRU holding at most capacity entries for ttl each.
// A nil now uses time.Now.
func NewLRU[V any](capacity int, ttl time.Duration, now func() time.Time) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	if now == nil {
		now = time.Now
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the live value for key and marks it most recently used
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.live(key)
	if !ok {
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruItem[V]).value, true
}

// Has reports whether key holds a live value and marks it most recently used
func (c *LRU[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.live(key)
	if ok {
		c.order.MoveToFront(el)
	}
	return ok
}

// Put stores value under key, evicting the least recently used entry when full
func (c *LRU[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		item := el.Value.(*lruItem[V])
		item.value = value
		item.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&lruItem[V]{key: key, value: value, expiresAt: expiresAt})
	for c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
}

// Delete removes key
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len returns the number of stored entries, including expired ones not yet reclaimed
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the stored keys from most to least recently used
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*lruItem[V]).key)
	}
	return keys
}

// Clear drops every entry
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.items)
}

// live returns the element for key, reclaiming it if expired. Caller holds mu.
func (c *LRU[V]) live(key string) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(el.Value.(*lruItem[V]).expiresAt) {
		c.removeElement(el)
		return nil, false
	}
	return el, true
}

func (c *LRU[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*lruItem[V]).key)
}
