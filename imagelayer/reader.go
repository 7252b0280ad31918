package imagelayer

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/shanyp/pageserver/blobio"
	"github.com/shanyp/pageserver/blockio"
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

// Result is the outcome of a point lookup.
type Result int

const (
	// Missing means key does not exist at this layer's LSN. Final: a
	// caller never falls through to another layer for a key inside this
	// layer's range (spec.md §3 invariant 6).
	Missing Result = iota
	// Complete means the value was found and written to the caller's
	// Reconstruction.
	Complete
)

func (r Result) String() string {
	if r == Complete {
		return "Complete"
	}
	return "Missing"
}

// Reconstruction receives the result of a successful GetValue.
type Reconstruction struct {
	LSN   lsn.Lsn
	Value []byte
}

// Entry is one (key, lsn, value) triple yielded by Iter.
type Entry struct {
	Key   key.Key
	LSN   lsn.Lsn
	Value []byte
}

// Reader is the in-memory handle to a sealed image layer file: lazily
// loaded, safe for concurrent point lookups, and cooperatively unloaded
// under memory pressure (spec.md §4.4).
type Reader struct {
	path       pathSource
	tenantID   ids.TenantID
	timelineID ids.TimelineID
	keyRange   key.Range
	lsn        lsn.Lsn

	descCache *vfs.Cache
	pageCache *pagecache.Cache

	mu            sync.RWMutex
	loaded        bool
	idx           *index.Index
	indexStartBlk uint32
	file          *vfs.ReadFile
	blockReader   *blockio.FileBlockReader

	// presence is a Bloom filter over the most recently loaded index's
	// keys. Unlike idx, it survives Unload: at the 1% false-positive rate
	// it is built with it is about 120 KB for a hundred-thousand-key
	// layer, and it lets GetValue answer a confident
	// Missing for a key that wasn't present at last load without paying
	// for a reload (spec.md §9 design notes on the load/unload thrash
	// problem; SPEC_FULL.md §4.4).
	presence *bloom.BloomFilter
}

// NewReader opens a layer whose identity is already known (the normal
// case: an entry recovered from a timeline's layer map). The file is not
// read until the first query.
func NewReader(
	conf *Config,
	descCache *vfs.Cache,
	pageCache *pagecache.Cache,
	tenantID ids.TenantID,
	timelineID ids.TimelineID,
	keyRange key.Range,
	l lsn.Lsn,
) *Reader {
	return newReader(fromConfig(conf), descCache, pageCache, tenantID, timelineID, keyRange, l)
}

// NewReaderForPath opens a layer from a literal path, recovering its
// identity from the filename. Only used by the debug dump tool
// (spec.md §6).
func NewReaderForPath(path string, descCache *vfs.Cache, pageCache *pagecache.Cache) (*Reader, error) {
	keyRange, l, err := filename.Parse(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return newReader(fromPath(path), descCache, pageCache, ids.TenantID{}, ids.TimelineID{}, keyRange, l), nil
}

func newReader(
	src pathSource,
	descCache *vfs.Cache,
	pageCache *pagecache.Cache,
	tenantID ids.TenantID,
	timelineID ids.TimelineID,
	keyRange key.Range,
	l lsn.Lsn,
) *Reader {
	return &Reader{
		path:       src,
		tenantID:   tenantID,
		timelineID: timelineID,
		keyRange:   keyRange,
		lsn:        l,
		descCache:  descCache,
		pageCache:  pageCache,
	}
}

// TenantID returns the layer's tenant.
func (r *Reader) TenantID() ids.TenantID { return r.tenantID }

// TimelineID returns the layer's timeline.
func (r *Reader) TimelineID() ids.TimelineID { return r.timelineID }

// KeyRange returns the layer's declared key range.
func (r *Reader) KeyRange() key.Range { return r.keyRange }

// LSN returns the LSN this layer is an image of.
func (r *Reader) LSN() lsn.Lsn { return r.lsn }

// Filename returns the canonical <start>-<end>__<lsn> name (spec.md §4.5).
func (r *Reader) Filename() string {
	return filename.Format(r.keyRange, r.lsn)
}

// Path returns the file this layer is backed by.
func (r *Reader) Path() string {
	return r.path.resolve(r.tenantID, r.timelineID, r.Filename())
}

// GetValue resolves a point lookup. Preconditions (key inside key_range,
// lsn_range.End > this layer's LSN) are programmer errors and panic, per
// spec.md §4.4.
func (r *Reader) GetValue(k key.Key, lsnRange lsn.Range[lsn.Lsn], out *Reconstruction) (Result, error) {
	if !r.keyRange.Contains(k) {
		panic(fmt.Sprintf("imagelayer: get_value key %s outside key_range %s", k, r.keyRange))
	}
	if lsnRange.End <= r.lsn {
		panic(fmt.Sprintf("imagelayer: get_value lsn_range.end %d must exceed layer lsn %d", lsnRange.End, r.lsn))
	}

	r.mu.RLock()
	filter := r.presence
	r.mu.RUnlock()
	if filter != nil && !filter.Test(k[:]) {
		return Missing, nil
	}

	if err := r.ensureLoaded(); err != nil {
		return Missing, err
	}

	r.mu.RLock()
	ref, ok := r.idx.Get(k)
	br := r.blockReader
	r.mu.RUnlock()

	if !ok {
		return Missing, nil
	}

	data, err := blobio.NewBlobCursor(br).ReadBlob(ref.Offset)
	if err != nil {
		return Missing, fmt.Errorf("imagelayer: read blob for key %s: %w: %w", k, imgerr.ErrIO, err)
	}

	out.LSN = r.lsn
	out.Value = data
	return Complete, nil
}

// Iter returns a finite, non-restartable sequence over every
// (key, lsn, value) in the layer, ordered by blob offset — which, for a
// well-formed writer, is key-ascending insertion order (spec.md §4.4).
func (r *Reader) Iter() func(func(Entry, error) bool) {
	return func(yield func(Entry, error) bool) {
		if err := r.ensureLoaded(); err != nil {
			yield(Entry{}, err)
			return
		}

		r.mu.RLock()
		keys := r.idx.KeysByOffset()
		refs := make(map[key.Key]index.BlobRef, len(keys))
		for _, k := range keys {
			ref, _ := r.idx.Get(k)
			refs[k] = ref
		}
		br := r.blockReader
		l := r.lsn
		r.mu.RUnlock()

		cursor := blobio.NewBlobCursor(br)
		for _, k := range keys {
			data, err := cursor.ReadBlob(refs[k].Offset)
			if err != nil {
				yield(Entry{}, fmt.Errorf("imagelayer: iter: %w: %w", imgerr.ErrIO, err))
				return
			}
			if !yield(Entry{Key: k, LSN: l, Value: data}, nil) {
				return
			}
		}
	}
}

// Unload is a best-effort hint that evicts the in-memory index. It never
// blocks: a contended lock, or the probabilistic gate below, both make it
// a silent no-op (spec.md §4.4).
func (r *Reader) Unload() {
	// Loading and reloading the index is expensive enough in practice
	// that unloading on every call causes thrash; only accept roughly
	// one call in ten, mirroring the documented stopgap in the Rust
	// image layer's unload() for the same problem.
	if rand.Uint32() > ^uint32(0)/10 {
		return
	}

	if !r.mu.TryLock() {
		return
	}
	defer r.mu.Unlock()

	r.idx = nil
	r.loaded = false
	// r.file, r.blockReader, and r.presence are retained.
}

// Delete unlinks the backing file. Any subsequent load fails.
func (r *Reader) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.Path()

	var err error
	if r.descCache != nil {
		err = r.descCache.Unlink(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("imagelayer: delete %s: %w", path, err)
	}

	if r.pageCache != nil {
		r.pageCache.Evict(path)
	}

	r.loaded = false
	r.idx = nil
	r.file = nil
	r.blockReader = nil

	return nil
}

// Dump writes a human-readable diagnostic to w. When verbose, it forces
// a load and lists every key in blob-offset order (spec.md §4.4).
func (r *Reader) Dump(w io.Writer, verbose bool) error {
	fmt.Fprintf(w, "----- image layer for tenant %s timeline %s key %s at %s -----\n",
		r.tenantID, r.timelineID, r.keyRange, r.lsn)

	if !verbose {
		return nil
	}

	if err := r.ensureLoaded(); err != nil {
		return err
	}

	r.mu.RLock()
	keys := r.idx.KeysByOffset()
	type row struct {
		k   key.Key
		ref index.BlobRef
	}
	rows := make([]row, 0, len(keys))
	for _, k := range keys {
		ref, _ := r.idx.Get(k)
		rows = append(rows, row{k, ref})
	}
	r.mu.RUnlock()

	for _, rw := range rows {
		fmt.Fprintf(w, "key: %s offset %d\n", rw.k, rw.ref.Offset)
	}
	return nil
}

// ensureLoaded implements the load protocol of spec.md §4.4: a
// read-try / upgrade / re-check loop that never holds the write lock
// across the disk I/O any longer than strictly necessary, and that
// tolerates a concurrent Unload racing the load.
func (r *Reader) ensureLoaded() error {
	for {
		r.mu.RLock()
		if r.loaded {
			r.mu.RUnlock()
			return nil
		}
		r.mu.RUnlock()

		r.mu.Lock()
		if r.loaded {
			// Someone else loaded it while we didn't hold the lock.
			r.mu.Unlock()
			return nil
		}
		err := r.loadLocked()
		r.mu.Unlock()
		if err != nil {
			return classifyLoadErr(err)
		}

		// Another goroutine could Unload between here and the caller's
		// own RLock; that's fine, the caller re-enters this loop.
		return nil
	}
}

func (r *Reader) loadLocked() error {
	if r.file == nil {
		if r.descCache == nil {
			return fmt.Errorf("imagelayer: no descriptor cache configured")
		}
		r.file = r.descCache.Open(r.Path())
	}
	if r.blockReader == nil {
		r.blockReader = blockio.NewFileBlockReader(r.file, r.pageCache)
	}

	blk0, err := r.blockReader.ReadBlk(0)
	if err != nil {
		return err
	}

	actual, err := summary.Decode(blk0)
	if err != nil {
		return err
	}

	if r.path.isConfig() {
		expected := summary.Summary{
			Magic:         format.ImageFileMagic,
			FormatVersion: format.Version,
			TenantID:      r.tenantID,
			TimelineID:    r.timelineID,
			KeyRange:      r.keyRange,
			LSN:           r.lsn,
			IndexStartBlk: actual.IndexStartBlk,
		}
		if !summary.Equal(actual, expected, false) {
			return fmt.Errorf("imagelayer: on-disk summary does not match expected identity for %s: %w", r.Path(), imgerr.ErrFormat)
		}
	} else {
		expectedName := filename.Format(actual.KeyRange, actual.LSN)
		actualName := filepath.Base(r.path.path)
		if actualName != expectedName {
			fmt.Fprintf(os.Stderr, "warning: filename does not match what is expected from in-file summary: actual=%s expected=%s\n", actualName, expectedName)
		}
	}

	size, err := r.file.Size()
	if err != nil {
		return err
	}

	indexOff := int64(actual.IndexStartBlk) * format.PageSize
	if indexOff > size {
		return fmt.Errorf("imagelayer: index_start_blk %d begins past EOF (size %d): %w", actual.IndexStartBlk, size, imgerr.ErrFormat)
	}

	indexBuf := make([]byte, size-indexOff)
	if len(indexBuf) > 0 {
		if _, err := r.file.ReadAt(indexBuf, indexOff); err != nil {
			return err
		}
	}

	idx, err := index.Decode(indexBuf)
	if err != nil {
		return err
	}

	valuesLimit := uint64(actual.IndexStartBlk) * format.PageSize
	for _, k := range idx.Keys() {
		if !r.keyRange.Contains(k) {
			return fmt.Errorf("imagelayer: index key %s outside key_range %s: %w", k, r.keyRange, imgerr.ErrFormat)
		}
		ref, _ := idx.Get(k)
		if ref.Offset >= valuesLimit {
			return fmt.Errorf("imagelayer: blob offset %d for key %s falls outside the values region: %w", ref.Offset, k, imgerr.ErrFormat)
		}
	}

	r.idx = idx
	r.indexStartBlk = actual.IndexStartBlk
	r.loaded = true
	r.presence = buildPresenceFilter(idx)

	return nil
}

func buildPresenceFilter(idx *index.Index) *bloom.BloomFilter {
	n := uint(idx.Len())
	if n == 0 {
		n = 1
	}
	f := bloom.NewWithEstimates(n, 0.01)
	for _, k := range idx.Keys() {
		f.Add(k[:])
	}
	return f
}

func classifyLoadErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, imgerr.ErrFormat) {
		return err
	}
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w: %w", imgerr.ErrIO, imgerr.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", imgerr.ErrIO, err)
}
