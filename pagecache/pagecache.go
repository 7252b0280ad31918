// Package pagecache is the block-sized buffer cache spec.md §6 calls the
// "page cache" collaborator. It is a bounded, shared cache of
// (path, block number) -> page bytes, backed by hashicorp/golang-lru/v2,
// so many ImageLayer readers opened against files in the same directory
// share one eviction policy instead of each holding its own copy of every
// page it has ever touched.
package pagecache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shanyp/pageserver/format"
)

// DefaultPages bounds how many PageSize buffers the cache holds at once.
const DefaultPages = 4096

type pageKey struct {
	path string
	blk  uint32
}

// Cache is a shared, bounded cache of block-sized buffers.
type Cache struct {
	lru *lru.Cache[pageKey, []byte]
}

// New creates a page cache holding at most capacity pages. capacity <= 0
// falls back to DefaultPages.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultPages
	}
	l, err := lru.New[pageKey, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("pagecache: failed to build cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Get returns the cached page for (path, blk), if present. The returned
// slice is shared and must not be mutated by the caller.
func (c *Cache) Get(path string, blk uint32) ([]byte, bool) {
	return c.lru.Get(pageKey{path, blk})
}

// Put stores page under (path, blk). page must not be mutated afterward.
func (c *Cache) Put(path string, blk uint32, page []byte) {
	c.lru.Add(pageKey{path, blk}, page)
}

// Evict drops every cached page for path, e.g. after the file is deleted.
func (c *Cache) Evict(path string) {
	for _, k := range c.lru.Keys() {
		if k.path == path {
			c.lru.Remove(k)
		}
	}
}

// PageSize is re-exported for callers that only import pagecache.
const PageSize = format.PageSize
