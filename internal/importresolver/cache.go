// # internal/importresolver/cache.go
package importresolver

import (
	"container/list"
	"sync"
)

// resolveCache is a thread-safe, capacity-bounded LRU over resolution
// results. Import resolution walks the filesystem, so repeated lookups of
// the same descriptor from the same directory are the hot path; when the
// cache is full the least-recently-used entry is evicted automatically.
type resolveCache struct {
	mu       sync.Mutex
	capacity int
	items    map[cacheKey]*list.Element
	order    *list.List // front = most-recently used
}

type cacheKey struct {
	fromDir    string
	descriptor string
}

type cacheEntry struct {
	key   cacheKey
	value *ResolvedImport
}

func newResolveCache(capacity int) *resolveCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &resolveCache{
		capacity: capacity,
		items:    make(map[cacheKey]*list.Element, capacity),
		order:    list.New(),
	}
}

// get returns the cached result if present. A hit moves the entry to the
// front (most-recently used).
func (c *resolveCache) get(key cacheKey) (*ResolvedImport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

// put inserts or updates an entry, evicting the least-recently-used entry
// when at capacity.
func (c *resolveCache) put(key cacheKey, value *ResolvedImport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		back := c.order.Back()
		if back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*cacheEntry).key)
		}
	}

	el := c.order.PushFront(&cacheEntry{key: key, value: value})
	c.items[key] = el
}

func (c *resolveCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// clear removes all items, used when the execution environment changes.
func (c *resolveCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[cacheKey]*list.Element, c.capacity)
}
