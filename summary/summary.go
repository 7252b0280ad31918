// Package summary implements the fixed-size header of spec.md §3/§4.2:
// the first PAGE_SZ bytes of every image layer file, identifying the
// tenant, timeline, key range, LSN, and the block at which the index
// region begins.
package summary

import (
	"encoding/binary"
	"fmt"

	"github.com/shanyp/pageserver/format"
	"github.com/shanyp/pageserver/ids"
	"github.com/shanyp/pageserver/imgerr"
	"github.com/shanyp/pageserver/key"
	"github.com/shanyp/pageserver/lsn"
)

// Size is the encoded length of a Summary, before zero-padding to
// format.PageSize.
const Size = 2 + 2 + ids.Len + ids.Len + key.Len + key.Len + 8 + 4

// Summary is the fixed layout written at block 0 of every image layer
// file (spec.md §3).
type Summary struct {
	Magic          uint16
	FormatVersion  uint16
	TenantID       ids.TenantID
	TimelineID     ids.TimelineID
	KeyRange       key.Range
	LSN            lsn.Lsn
	IndexStartBlk  uint32
}

// Encode writes s, big-endian, zero-padded to format.PageSize.
func Encode(s Summary) []byte {
	buf := make([]byte, format.PageSize)

	o := 0
	binary.BigEndian.PutUint16(buf[o:], s.Magic)
	o += 2
	binary.BigEndian.PutUint16(buf[o:], s.FormatVersion)
	o += 2
	copy(buf[o:], s.TenantID[:])
	o += ids.Len
	copy(buf[o:], s.TimelineID[:])
	o += ids.Len
	copy(buf[o:], s.KeyRange.Start[:])
	o += key.Len
	copy(buf[o:], s.KeyRange.End[:])
	o += key.Len
	binary.BigEndian.PutUint64(buf[o:], uint64(s.LSN))
	o += 8
	binary.BigEndian.PutUint32(buf[o:], s.IndexStartBlk)

	return buf
}

// Decode parses a Summary from the first block of a file, validating the
// magic and format version. buf must be at least Size bytes (typically
// the raw block 0 read).
func Decode(buf []byte) (Summary, error) {
	var s Summary

	if len(buf) < Size {
		return s, fmt.Errorf("summary: short buffer (%d bytes): %w", len(buf), imgerr.ErrFormat)
	}

	o := 0
	s.Magic = binary.BigEndian.Uint16(buf[o:])
	o += 2
	if s.Magic != format.ImageFileMagic {
		return s, fmt.Errorf("summary: bad magic %#x: %w", s.Magic, imgerr.ErrFormat)
	}

	s.FormatVersion = binary.BigEndian.Uint16(buf[o:])
	o += 2
	if s.FormatVersion != format.Version {
		return s, fmt.Errorf("summary: unsupported format_version %d: %w", s.FormatVersion, imgerr.ErrFormat)
	}

	copy(s.TenantID[:], buf[o:o+ids.Len])
	o += ids.Len
	copy(s.TimelineID[:], buf[o:o+ids.Len])
	o += ids.Len
	copy(s.KeyRange.Start[:], buf[o:o+key.Len])
	o += key.Len
	copy(s.KeyRange.End[:], buf[o:o+key.Len])
	o += key.Len
	s.LSN = lsn.Lsn(binary.BigEndian.Uint64(buf[o:]))
	o += 8
	s.IndexStartBlk = binary.BigEndian.Uint32(buf[o:])

	return s, nil
}

// Equal reports whether a and b describe the same identity, ignoring
// IndexStartBlk (which is only known once Finish computes it) when
// ignoreIndexStartBlk is true.
func Equal(a, b Summary, ignoreIndexStartBlk bool) bool {
	if ignoreIndexStartBlk {
		a.IndexStartBlk = 0
		b.IndexStartBlk = 0
	}
	return a == b
}
