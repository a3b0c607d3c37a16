package cache

import "testing"

func TestAnchorCacheGetPutMiss(t *testing.T) {
	c := NewAnchorCache(10)
	if _, ok := c.Get("http://example.com/a", "anchors"); ok {
		t.Fatal("expected miss")
	}
	c.Put("http://example.com/a", "anchors", []string{"one", "two"})
	v, ok := c.Get("http://example.com/a", "anchors")
	if !ok {
		t.Fatal("expected hit")
	}
	if got, ok := v.([]string); !ok || len(got) != 2 {
		t.Fatalf("got %v", v)
	}
}

func TestAnchorCacheEvictsOldest(t *testing.T) {
	c := NewAnchorCache(2)
	c.Put("a", "k", 1)
	c.Put("b", "k", 2)
	c.Put("c", "k", 3)

	if _, ok := c.Get("a", "k"); ok {
		t.Fatal("expected 'a' to have been evicted")
	}
	if _, ok := c.Get("b", "k"); !ok {
		t.Fatal("expected 'b' to survive")
	}
	if _, ok := c.Get("c", "k"); !ok {
		t.Fatal("expected 'c' to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestAnchorCacheReusePreventsRecompute(t *testing.T) {
	// Mirrors S5: a 3-page cluster referencing each other's distinct
	// fragments should only compute the anchor set once per page.
	c := NewAnchorCache(10)
	computeCount := 0
	compute := func(page string) []string {
		computeCount++
		return []string{page + "#a", page + "#b"}
	}

	pages := []string{"A", "B", "C"}
	fragmentsPerPage := 3 // each page referenced by 3 distinct fragments
	for _, p := range pages {
		for i := 0; i < fragmentsPerPage; i++ {
			if _, ok := c.Get(p, "anchors"); !ok {
				c.Put(p, "anchors", compute(p))
			}
		}
	}
	if computeCount != len(pages) {
		t.Errorf("computeCount = %d, want %d", computeCount, len(pages))
	}
}
