// Package cache provides a thread-safe LRU cache for evaluation results.
//
// The cache is owned by one engine bound to one document and maps the
// canonical text of a path AST to the result previously computed for it.
// It must be invalidated (or the engine discarded) whenever the document
// mutates; stale entries would silently return outdated values.
//
// # Example
//
//	c := cache.New(256)
//	c.Set(path.String(), cache.Result{Value: v, Found: true})
package cache

import (
	"container/list"
	"sync"
)

// Result is a cached evaluation outcome. Found distinguishes an absent
// result from an explicit null value; only successfully computed results
// are ever stored, never error states.
type Result struct {
	Value interface{}
	Found bool
}

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key    string
	result Result
}

// Cache is a thread-safe LRU (Least Recently Used) cache for evaluation
// results. Once the capacity is reached, the least recently accessed entry
// is evicted.
//
// Safe for concurrent use by multiple goroutines.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a new LRU cache with the given capacity.
// capacity must be > 0; if <= 0, a default of 256 is used.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a result from the cache.
// Returns (result, true) if found and moves the entry to front (MRU).
// Returns (Result{}, false) if not present.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return Result{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).result, true
}

// Set inserts or replaces a result in the cache.
// If at capacity, the least recently used entry is evicted first.
func (c *Cache) Set(key string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).result = result
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}

	el := c.ll.PushFront(&entry{key: key, result: result})
	c.items[key] = el
}

// Len returns the number of entries currently in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.items)
	c.mu.RUnlock()
	return n
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Invalidate removes a single entry from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, el.Value.(*entry).key)
	}
}

// Clear removes all entries from the cache. Callers must clear the cache
// after any mutation of the bound document.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
