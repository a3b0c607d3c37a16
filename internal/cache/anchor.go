// Package cache implements the link checker's bounded caches: the anchor
// cache (C4) and the result cache (C5). Both are guarded by their own
// single lock (anchor_cache_lock, result_cache_lock per spec §5). The
// anchor cache evicts on a monotonic insertion-order index (spec §4.4);
// the result cache evicts its least-frequently-used entry (spec §4.5).
package cache

import "sync"

// AnchorCache is a bounded store mapping an anchor-stripped cache URL to
// its parsed anchor set (and other per-URL reusable artefacts), keyed
// additionally by "kind" so unrelated plugins can share one cache
// (spec §3 AnchorCacheEntry, §4.4).
type AnchorCache struct {
	mu       sync.Mutex // anchor_cache_lock
	maxSize  int
	order    []string // insertion-ordered cache-url keys
	delIndex int       // next index in order to evict
	entries  map[string]map[string]any
}

// NewAnchorCache creates an anchor cache bounded to maxSize distinct
// cache-url keys.
func NewAnchorCache(maxSize int) *AnchorCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &AnchorCache{
		maxSize: maxSize,
		entries: make(map[string]map[string]any),
	}
}

// Get looks up kind's payload for key. The second return is false on miss.
func (c *AnchorCache) Get(key, kind string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byKind, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	v, ok := byKind[kind]
	return v, ok
}

// Put inserts payload under key/kind. When capacity is exceeded, the
// oldest inserted key is evicted by advancing the delete index; keys
// that already exist retain their original insertion order (spec §4.4).
func (c *AnchorCache) Put(key, kind string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind, exists := c.entries[key]
	if !exists {
		byKind = make(map[string]any)
		c.entries[key] = byKind
		c.order = append(c.order, key)
		c.evictLocked()
	}
	byKind[kind] = payload
}

func (c *AnchorCache) evictLocked() {
	for len(c.entries) > c.maxSize && c.delIndex < len(c.order) {
		oldest := c.order[c.delIndex]
		c.delIndex++
		delete(c.entries, oldest)
	}
}

// Len returns the number of distinct keys currently cached (test/debug use).
func (c *AnchorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
