// Package imagelayer implements the on-disk image layer file format and
// the writer/reader pair that build and serve it (spec.md §4.3, §4.4).
//
//	FILE LAYOUT
//	+--------------------------------------------------------------+
//	| block 0          : Summary, zero-padded to PAGE_SZ            |
//	+--------------------------------------------------------------+
//	| PAGE_SZ ..        : VALUES  (concatenated length-prefixed     |
//	|                      blobs, one per key, in insertion order)  |
//	+--------------------------------------------------------------+
//	| index_start_blk  : INDEX   (length-prefixed Key -> BlobRef    |
//	|  * PAGE_SZ          records)                                  |
//	+--------------------------------------------------------------+
//	| EOF                                                           |
//	+--------------------------------------------------------------+
//
// A layer is a complete snapshot: every key in key_range either has an
// entry in the index or does not exist at lsn (spec.md §3 invariant 6).
// There is no fallthrough to another layer for a key in range.
package imagelayer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shanyp/pageserver/blobio"
	"github.com/shanyp/pageserver/filename"
	"github.com/shanyp/pageserver/format"
	"github.com/shanyp/pageserver/ids"
	"github.com/shanyp/pageserver/imgerr"
	"github.com/shanyp/pageserver/index"
	"github.com/shanyp/pageserver/key"
	"github.com/shanyp/pageserver/lsn"
	"github.com/shanyp/pageserver/pagecache"
	"github.com/shanyp/pageserver/summary"
	"github.com/shanyp/pageserver/vfs"
)

// Writer builds a new sealed image layer file. Create one with NewWriter,
// push key-ascending images with PutImage, then call Finish exactly
// once. Finish consumes the Writer; it must not be used afterward.
type Writer struct {
	conf       *Config
	tenantID   ids.TenantID
	timelineID ids.TimelineID
	keyRange   key.Range
	lsn        lsn.Lsn

	path      string
	descCache *vfs.Cache
	pageCache *pagecache.Cache

	file  *vfs.WriteFile
	blobs *blobio.BlobWriter
	idx   *index.Index

	finished bool
}

// NewWriter creates (truncating any existing contents of) the file for
// (tenantID, timelineID, keyRange, l) and prepares it for streaming
// writes. descCache and pageCache, if non-nil, are handed to the Reader
// Finish eventually returns, so later loads share them.
func NewWriter(
	conf *Config,
	descCache *vfs.Cache,
	pageCache *pagecache.Cache,
	tenantID ids.TenantID,
	timelineID ids.TimelineID,
	keyRange key.Range,
	l lsn.Lsn,
) (*Writer, error) {
	fname := filename.Format(keyRange, l)
	dir := conf.TimelinePath(tenantID, timelineID)
	path := filepath.Join(dir, fname)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("imagelayer: create timeline dir: %w", err)
	}

	file, err := vfs.Create(path)
	if err != nil {
		return nil, err
	}

	blobs, err := blobio.NewBlobWriter(file, format.PageSize)
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return &Writer{
		conf:       conf,
		tenantID:   tenantID,
		timelineID: timelineID,
		keyRange:   keyRange,
		lsn:        l,
		path:       path,
		descCache:  descCache,
		pageCache:  pageCache,
		file:       file,
		blobs:      blobs,
		idx:        index.New(),
	}, nil
}

// PutImage writes the next value. Images must be pushed in key-ascending
// order by the caller; this writer does not sort.
func (w *Writer) PutImage(k key.Key, img []byte) error {
	if !w.keyRange.Contains(k) {
		return fmt.Errorf("imagelayer: put_image key %s outside key_range %s: %w", k, w.keyRange, imgerr.ErrOutOfRange)
	}

	off, err := w.blobs.WriteBlob(img)
	if err != nil {
		return fmt.Errorf("imagelayer: put_image: %w: %w", imgerr.ErrIO, err)
	}

	if existed := w.idx.Set(k, index.BlobRef{Offset: off, IsImage: true}); existed {
		panic(fmt.Sprintf("imagelayer: put_image called twice for key %s", k))
	}

	return nil
}

// Finish flushes the values, writes the index and summary, and returns a
// Reader for the sealed file in the "not loaded" state. The Writer's own
// file handle is write-only and is closed here; the Reader reopens a
// fresh read handle on first query (spec.md §4.3 step 5).
func (w *Writer) Finish() (*Reader, error) {
	if w.finished {
		return nil, fmt.Errorf("imagelayer: finish called twice")
	}
	w.finished = true

	if err := w.blobs.Flush(); err != nil {
		return nil, err
	}

	indexStartBlk := format.BlocksFor(w.blobs.Size())

	if _, err := w.file.Seek(int64(indexStartBlk)*format.PageSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("imagelayer: seek to index region: %w", err)
	}
	if _, err := w.file.Write(index.Encode(w.idx)); err != nil {
		return nil, fmt.Errorf("imagelayer: write index: %w", err)
	}

	sum := summary.Summary{
		Magic:         format.ImageFileMagic,
		FormatVersion: format.Version,
		TenantID:      w.tenantID,
		TimelineID:    w.timelineID,
		KeyRange:      w.keyRange,
		LSN:           w.lsn,
		IndexStartBlk: indexStartBlk,
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("imagelayer: seek to summary: %w", err)
	}
	if _, err := w.file.Write(summary.Encode(sum)); err != nil {
		return nil, fmt.Errorf("imagelayer: write summary: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		return nil, err
	}
	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("imagelayer: close sealed file: %w", err)
	}

	return newReader(fromConfig(w.conf), w.descCache, w.pageCache, w.tenantID, w.timelineID, w.keyRange, w.lsn), nil
}
