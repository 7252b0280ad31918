// Package vfs is the filesystem abstraction spec.md §6 requires of the
// core: random-access read handles, sequential-plus-seek write handles,
// and unlink — with a small descriptor cache so many ImageLayer readers
// can share a bounded number of open file descriptors. It is adapted from
// the teacher's segmentmanager/disk.go, which owned one *os.File directly
// per manager; here the same "open once, reuse, reopen transparently on
// demand" idiom is generalized across many read-only handles via an LRU
// of *os.File, evicting (and physically closing) the coldest descriptor
// when the cache is full. The core never observes the difference: the
// next ReadAt after an eviction just reopens (spec.md §6, "the core
// tolerates transient reopen transparently").
package vfs

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDescriptors bounds how many read handles stay physically open at
// once across every layer sharing a Cache.
const DefaultDescriptors = 256

// Cache is a shared pool of open read-only file descriptors, keyed by
// path. It never opens a file eagerly — ReadAt/Size trigger the open.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.Cache[string, *os.File]
	openCount atomic.Uint64
}

// NewCache creates a descriptor cache holding at most capacity open
// handles at once. capacity <= 0 falls back to DefaultDescriptors.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultDescriptors
	}
	l, err := lru.NewWithEvict[string, *os.File](capacity, func(_ string, f *os.File) {
		_ = f.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("vfs: failed to build descriptor cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

// Open returns a logical handle to path. No syscall happens until the
// handle is first read from.
func (c *Cache) Open(path string) *ReadFile {
	return &ReadFile{cache: c, path: path}
}

// Evict physically closes path's descriptor, if one is currently cached,
// without forgetting the logical handle exists. Subsequent reads reopen.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(path)
}

// Unlink removes path from disk and drops any cached descriptor for it.
func (c *Cache) Unlink(path string) error {
	c.Evict(path)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("vfs: unlink %s: %w", path, err)
	}
	return nil
}

// OpenCount returns the number of times this Cache has issued a real
// os.OpenFile call across its lifetime — a cache hit does not count.
// Tests use this to assert that a given sequence of reads reopened a
// descriptor zero, one, or more times.
func (c *Cache) OpenCount() uint64 {
	return c.openCount.Load()
}

// ReadFile is a logical random-access read handle into a Cache.
type ReadFile struct {
	cache *Cache
	path  string
}

func (f *ReadFile) handle() (*os.File, error) {
	f.cache.mu.Lock()
	defer f.cache.mu.Unlock()

	if h, ok := f.cache.lru.Get(f.path); ok {
		return h, nil
	}

	h, err := os.OpenFile(f.path, os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("vfs: open %s: %w", f.path, err)
	}
	f.cache.openCount.Add(1)
	f.cache.lru.Add(f.path, h)
	return h, nil
}

// ReadAt reads len(p) bytes starting at off, reopening the underlying
// descriptor transparently if it was evicted since the last read.
func (f *ReadFile) ReadAt(p []byte, off int64) (int, error) {
	h, err := f.handle()
	if err != nil {
		return 0, err
	}
	n, err := h.ReadAt(p, off)
	if err != nil {
		return n, fmt.Errorf("vfs: read %s at %d: %w", f.path, off, err)
	}
	return n, nil
}

// Path returns the path this handle was opened against.
func (f *ReadFile) Path() string { return f.path }

// Size returns the current on-disk size of the file.
func (f *ReadFile) Size() (int64, error) {
	h, err := f.handle()
	if err != nil {
		return 0, err
	}
	fi, err := h.Stat()
	if err != nil {
		return 0, fmt.Errorf("vfs: stat %s: %w", f.path, err)
	}
	return fi.Size(), nil
}

// WriteFile is a sequential-plus-seek write handle used by a writer while
// building a new sealed file. It is never shared through a Cache: per
// spec.md §4.3, it is opened write-only and dropped once Finish returns.
type WriteFile struct {
	f *os.File
}

// Create creates (truncating any existing contents of) the file at path
// for sequential writing with seeks.
func Create(path string) (*WriteFile, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("vfs: create %s: %w", path, err)
	}
	return &WriteFile{f: f}, nil
}

func (w *WriteFile) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w *WriteFile) Seek(offset int64, whence int) (int64, error) {
	return w.f.Seek(offset, whence)
}

// Sync flushes and fsyncs the file, per spec.md §4.3 step 4.
func (w *WriteFile) Sync() error {
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("vfs: sync %s: %w", w.f.Name(), err)
	}
	return nil
}

func (w *WriteFile) Close() error { return w.f.Close() }
