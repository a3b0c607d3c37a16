package cache

import "sync"

// Result is the minimal finished-check result copied into a URLObject
// when its cache_url hits the result cache (spec §3 ResultCacheEntry).
type Result struct {
	Valid       bool
	ResultText  string
	Info        []string
	Warnings    []string
	ContentType string
	Size        int64
}

type resultEntry struct {
	value Result
	freq  int
}

// ResultCache maps a cache_url fingerprint to its finished result,
// guaranteeing at-most-once full check per fingerprint (spec §4.5). Unlike
// the anchor cache's insertion-order eviction, the result cache uses
// genuine least-frequently-used eviction: each Get/Put bumps a per-entry
// frequency counter, and eviction drops the lowest-frequency entry.
type ResultCache struct {
	mu      sync.Mutex // result_cache_lock
	maxSize int
	entries map[string]*resultEntry

	// pending tracks fingerprints currently being checked, so concurrently
	// dequeued duplicates can wait rather than race (spec §4.7, "built ->
	// checking": a sentinel marks "check in progress").
	pending map[string]chan struct{}
}

// NewResultCache creates a result cache bounded to maxSize entries.
func NewResultCache(maxSize int) *ResultCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &ResultCache{
		maxSize: maxSize,
		entries: make(map[string]*resultEntry),
		pending: make(map[string]chan struct{}),
	}
}

// Get returns the cached result for cacheURL, if any, bumping its
// frequency counter.
func (c *ResultCache) Get(cacheURL string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheURL]
	if !ok {
		return Result{}, false
	}
	e.freq++
	return e.value, true
}

// Put inserts or overwrites the result for cacheURL, evicting the
// least-frequently-used entry when the cache is full.
func (c *ResultCache) Put(cacheURL string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[cacheURL]; ok {
		e.value = result
		e.freq++
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictLFULocked()
	}
	c.entries[cacheURL] = &resultEntry{value: result, freq: 1}
}

func (c *ResultCache) evictLFULocked() {
	var victim string
	min := -1
	for k, e := range c.entries {
		if min == -1 || e.freq < min {
			min = e.freq
			victim = k
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

// ClaimCheck marks cacheURL as "check in progress" and returns (doneCh,
// true) when the caller is the owner who must perform the check and
// later call Finish. If another goroutine already owns the check, it
// returns (doneCh, false): the caller should wait on doneCh, then re-read
// Get.
func (c *ResultCache) ClaimCheck(cacheURL string) (chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.pending[cacheURL]; ok {
		return ch, false
	}
	ch := make(chan struct{})
	c.pending[cacheURL] = ch
	return ch, true
}

// Finish completes a claimed check: stores the result and wakes waiters.
func (c *ResultCache) Finish(cacheURL string, result Result) {
	c.mu.Lock()
	ch, ok := c.pending[cacheURL]
	delete(c.pending, cacheURL)
	if len(c.entries) >= c.maxSize {
		if _, exists := c.entries[cacheURL]; !exists {
			c.evictLFULocked()
		}
	}
	c.entries[cacheURL] = &resultEntry{value: result, freq: 1}
	c.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Len returns the number of cached results (test/debug use).
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
