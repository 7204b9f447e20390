package medvox

import (
	"container/list"

	"github.com/gchahal1982/medvox/object"
)

// cachedResult holds the reusable portion of a query result. Duration and
// CacheHit are per-execution and filled in by the facade on each lookup.
type cachedResult struct {
	objects         []*object.SpatialObject
	distances       []float64
	totalCandidates int
}

// queryCache is a fixed-size LRU over canonical query keys. It is not
// internally synchronized; the facade's lock covers all access.
type queryCache struct {
	capacity  int
	items     map[string]*list.Element
	evictList *list.List

	hits   int64
	misses int64
}

type cacheEntry struct {
	key    string
	result cachedResult
}

func newQueryCache(capacity int) *queryCache {
	return &queryCache{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

func (c *queryCache) get(key string) (cachedResult, bool) {
	if ent, ok := c.items[key]; ok {
		c.hits++
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry).result, true
	}
	c.misses++
	return cachedResult{}, false
}

func (c *queryCache) set(key string, result cachedResult) {
	if c.capacity <= 0 {
		return
	}

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*cacheEntry).result = result
		return
	}

	for c.evictList.Len() >= c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}

	element := c.evictList.PushFront(&cacheEntry{key: key, result: result})
	c.items[key] = element
}

// purge drops every entry. Called after any mutation so stale results are
// never served.
func (c *queryCache) purge() {
	c.items = make(map[string]*list.Element)
	c.evictList.Init()
}

func (c *queryCache) len() int {
	return c.evictList.Len()
}

func (c *queryCache) stats() (hits, misses int64) {
	return c.hits, c.misses
}

func (c *queryCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*cacheEntry).key)
}
