package layout

import "rtgen/internal/types"

type cacheKey struct {
	Type     types.TypeID
	Instance bool // by-value class instance rather than the class reference
}

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

type cache struct {
	byKey map[cacheKey]*cacheEntry
}

func newCache() *cache {
	return &cache{byKey: make(map[cacheKey]*cacheEntry, 256)}
}

func (c *cache) get(key cacheKey) (*cacheEntry, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.byKey[key]
	return e, ok
}

func (c *cache) put(key cacheKey, e *cacheEntry) {
	if c == nil {
		return
	}
	if e == nil {
		delete(c.byKey, key)
		return
	}
	c.byKey[key] = e
}
