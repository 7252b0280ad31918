// Package blockio implements the BlockReader of spec.md §4.1: reading
// fixed-size PAGE_SZ blocks from a file, sourced from a shared page
// cache when one is available.
package blockio

import (
	"fmt"

	"github.com/shanyp/pageserver/format"
	"github.com/shanyp/pageserver/pagecache"
	"github.com/shanyp/pageserver/vfs"
)

// BlockReader reads fixed-size blocks from a file by block number.
type BlockReader interface {
	ReadBlk(blkno uint32) ([]byte, error)
}

// FileBlockReader reads blocks from a vfs.ReadFile, consulting cache
// before issuing a ReadAt.
type FileBlockReader struct {
	file  *vfs.ReadFile
	cache *pagecache.Cache
}

// NewFileBlockReader wraps file for block-sized reads. cache may be nil,
// in which case every ReadBlk issues a fresh ReadAt.
func NewFileBlockReader(file *vfs.ReadFile, cache *pagecache.Cache) *FileBlockReader {
	return &FileBlockReader{file: file, cache: cache}
}

// ReadBlk returns the PAGE_SZ bytes of block blkno.
func (r *FileBlockReader) ReadBlk(blkno uint32) ([]byte, error) {
	path := r.file.Path()

	if r.cache != nil {
		if page, ok := r.cache.Get(path, blkno); ok {
			return page, nil
		}
	}

	page := make([]byte, format.PageSize)
	off := int64(blkno) * int64(format.PageSize)
	if _, err := r.file.ReadAt(page, off); err != nil {
		return nil, fmt.Errorf("blockio: read block %d: %w", blkno, err)
	}

	if r.cache != nil {
		r.cache.Put(path, blkno, page)
	}

	return page, nil
}
