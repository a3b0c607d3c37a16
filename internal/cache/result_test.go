package cache

import "testing"

func TestResultCacheGetPut(t *testing.T) {
	c := NewResultCache(10)
	if _, ok := c.Get("http://example.com/"); ok {
		t.Fatal("expected miss")
	}
	c.Put("http://example.com/", Result{Valid: true, ResultText: "200 OK"})
	r, ok := c.Get("http://example.com/")
	if !ok || !r.Valid {
		t.Fatalf("got %+v ok=%v", r, ok)
	}
}

func TestResultCacheLFUEviction(t *testing.T) {
	c := NewResultCache(2)
	c.Put("a", Result{ResultText: "a"})
	c.Put("b", Result{ResultText: "b"})

	// Access "a" repeatedly so it is not the least-frequently-used entry.
	for i := 0; i < 5; i++ {
		c.Get("a")
	}

	c.Put("c", Result{ResultText: "c"})

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' (least frequently used) to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected 'a' to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected 'c' to survive")
	}
}

func TestResultCacheClaimCheck(t *testing.T) {
	c := NewResultCache(10)
	ch, owner := c.ClaimCheck("http://example.com/")
	if !owner {
		t.Fatal("expected to be the owner of the first claim")
	}

	_, owner2 := c.ClaimCheck("http://example.com/")
	if owner2 {
		t.Fatal("expected second claim to not be owner")
	}

	c.Finish("http://example.com/", Result{Valid: true})

	select {
	case <-ch:
	default:
		t.Fatal("expected done channel to be closed after Finish")
	}

	r, ok := c.Get("http://example.com/")
	if !ok || !r.Valid {
		t.Fatalf("got %+v ok=%v", r, ok)
	}
}
