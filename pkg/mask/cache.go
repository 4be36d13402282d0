package mask

import (
	"fmt"
	"sync"

	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Builder produces a mask for an area, land source and pixel grid
type Builder interface {
	BuildMask(area types.TargetArea, land geo.Land, t geo.Transform, width, height int) (Mask, error)
}

// Cache wraps a Builder with an in-memory LRU cache.
// Cached masks are shared between callers and must be treated as read-only.
type Cache struct {
	inner   Builder
	observe func(hit bool)

	mu       sync.Mutex
	lru      *lruCache
	inflight map[string]*call
}

type call struct {
	done chan struct{}
	mask Mask
	err  error
}

// NewCache creates a cache decorator around a mask builder.
// observe, when non-nil, is told about every lookup.
func NewCache(inner Builder, maxEntries int, observe func(hit bool)) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		inner:    inner,
		observe:  observe,
		lru:      newLRUCache(maxEntries),
		inflight: make(map[string]*call),
	}
}

// Key identifies a mask by everything it is a pure function of
func Key(area types.TargetArea, land geo.Land, t geo.Transform, width, height int) string {
	return fmt.Sprintf("%s|%s|%s|%dx%d", area.Key(), land.ID, t.Key(), width, height)
}

// BuildMask returns the cached mask or builds it on a miss. Concurrent misses
// for the same key share one build. Errors are not cached.
func (c *Cache) BuildMask(area types.TargetArea, land geo.Land, t geo.Transform, width, height int) (Mask, error) {
	key := Key(area, land, t, width, height)

	c.mu.Lock()
	if m, ok := c.lru.get(key); ok {
		c.mu.Unlock()
		c.report(true)
		return m, nil
	}
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		c.report(cl.err == nil)
		return cl.mask, cl.err
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	c.report(false)
	cl.mask, cl.err = c.inner.BuildMask(area, land, t, width, height)

	c.mu.Lock()
	delete(c.inflight, key)
	if cl.err == nil {
		c.lru.put(key, cl.mask)
	}
	c.mu.Unlock()
	close(cl.done)

	return cl.mask, cl.err
}

// Len returns the number of cached masks
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lru.entries)
}

func (c *Cache) report(hit bool) {
	if c.observe != nil {
		c.observe(hit)
	}
}

// lruCache is a simple LRU of masks; callers hold Cache.mu
type lruCache struct {
	maxEntries int
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value Mask
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (Mask, bool) {
	e, ok := c.entries[key]
	if !ok {
		return Mask{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value Mask) {
	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
