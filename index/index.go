// Package index implements the key→BlobRef mapping of spec.md §3/§4.2:
// a length-prefixed sequence of (Key, BlobRef) records, decoded into an
// in-memory map and rejecting duplicate keys.
package index

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/shanyp/pageserver/imgerr"
	"github.com/shanyp/pageserver/key"
)

// imageFlag marks a BlobRef as pointing at an image (as opposed to a
// delta) value. Every entry in this file format sets it; it exists only
// as a cross-format discriminator (spec.md §3).
const imageFlag = uint64(1) << 63

// recordSize is the on-disk size of one (Key, BlobRef) record: the fixed
// key width plus one packed 8-byte offset+flag word.
const recordSize = key.Len + 8

// BlobRef references a value inside the file's values region.
type BlobRef struct {
	Offset  uint64
	IsImage bool
}

func (r BlobRef) pack() uint64 {
	v := r.Offset &^ imageFlag
	if r.IsImage {
		v |= imageFlag
	}
	return v
}

func unpackBlobRef(v uint64) BlobRef {
	return BlobRef{
		Offset:  v &^ imageFlag,
		IsImage: v&imageFlag != 0,
	}
}

// Index is the in-memory key→BlobRef mapping for one sealed layer.
type Index struct {
	entries map[key.Key]BlobRef
}

// New returns an empty Index.
func New() *Index {
	return &Index{entries: make(map[key.Key]BlobRef)}
}

// Set records key k's BlobRef. Reports whether k already had an entry.
func (idx *Index) Set(k key.Key, ref BlobRef) bool {
	_, existed := idx.entries[k]
	idx.entries[k] = ref
	return existed
}

// Get returns the BlobRef for k, if present.
func (idx *Index) Get(k key.Key) (BlobRef, bool) {
	ref, ok := idx.entries[k]
	return ref, ok
}

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Keys returns every key currently in the index, sorted bytewise
// ascending, to make iteration and encoding deterministic.
func (idx *Index) Keys() []key.Key {
	keys := make([]key.Key, 0, len(idx.entries))
	for k := range idx.entries {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// KeysByOffset returns every key in the index ordered by its blob
// offset — for a well-formed writer this is insertion order, which
// Iter and Dump use in preference to key order (spec.md §4.4).
func (idx *Index) KeysByOffset() []key.Key {
	keys := make([]key.Key, 0, len(idx.entries))
	for k := range idx.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return idx.entries[keys[i]].Offset < idx.entries[keys[j]].Offset
	})
	return keys
}

func sortKeys(keys []key.Key) {
	// Small enough (at most one layer's worth of keys) that insertion
	// sort over the already-allocated slice avoids pulling in sort.Slice
	// reflection for a type that already has a cheap Less.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && key.Less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// Encode serializes idx as a length-prefixed sequence of records, sorted
// by key for reproducibility (spec.md §4.2 — readers must not assume
// this, but writers should provide it).
func Encode(idx *Index) []byte {
	keys := idx.Keys()

	buf := make([]byte, 4+len(keys)*recordSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(keys)))

	o := 4
	for _, k := range keys {
		ref := idx.entries[k]
		copy(buf[o:], k[:])
		o += key.Len
		binary.BigEndian.PutUint64(buf[o:], ref.pack())
		o += 8
	}

	return buf
}

// Decode parses a length-prefixed record sequence into a new Index,
// rejecting duplicate keys as a FormatError.
func Decode(buf []byte) (*Index, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("index: short buffer: %w", imgerr.ErrFormat)
	}

	n := binary.BigEndian.Uint32(buf[0:4])
	want := 4 + int(n)*recordSize
	if len(buf) < want {
		return nil, fmt.Errorf("index: buffer too short for %d entries: %w", n, imgerr.ErrFormat)
	}

	idx := New()
	o := 4
	for i := uint32(0); i < n; i++ {
		var k key.Key
		copy(k[:], buf[o:o+key.Len])
		o += key.Len
		v := binary.BigEndian.Uint64(buf[o:])
		o += 8

		if _, existed := idx.entries[k]; existed {
			return nil, fmt.Errorf("index: duplicate key %s: %w", k, imgerr.ErrFormat)
		}
		idx.entries[k] = unpackBlobRef(v)
	}

	return idx, nil
}
