package pagecache

import (
	"bytes"
	"testing"
)

func TestPutGet(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	page := bytes.Repeat([]byte{0x7}, PageSize)
	c.Put("/a", 1, page)

	got, ok := c.Get("/a", 1)
	if !ok {
		t.Fatalf("Get() miss, want hit")
	}
	if !bytes.Equal(got, page) {
		t.Fatalf("Get() returned different bytes")
	}

	if _, ok := c.Get("/a", 2); ok {
		t.Fatalf("Get() hit for an un-Put block")
	}
	if _, ok := c.Get("/b", 1); ok {
		t.Fatalf("Get() hit for a different path at the same block number")
	}
}

func TestEvictDropsOnlyMatchingPath(t *testing.T) {
	c, err := New(8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Put("/a", 0, []byte("a0"))
	c.Put("/a", 1, []byte("a1"))
	c.Put("/b", 0, []byte("b0"))

	c.Evict("/a")

	if _, ok := c.Get("/a", 0); ok {
		t.Fatalf("Get(/a,0) hit after Evict(/a)")
	}
	if _, ok := c.Get("/a", 1); ok {
		t.Fatalf("Get(/a,1) hit after Evict(/a)")
	}
	if _, ok := c.Get("/b", 0); !ok {
		t.Fatalf("Get(/b,0) miss after Evict(/a): unrelated path was dropped too")
	}
}
