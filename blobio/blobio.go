// Package blobio implements the variable-length blob codec of spec.md
// §4.1: BlobWriter appends length-prefixed blobs to a file and returns
// stable offsets; BlobCursor decodes a blob at a given offset, following
// it across block boundaries via a blockio.BlockReader.
//
// Tag encoding (format_version 1, spec.md §3 Open Questions): a 1-byte
// tag. High bit clear: the low 7 bits are the length (0-127), inline.
// High bit set: the tag and the 3 bytes that follow form a 4-byte
// big-endian integer whose top bit is the flag and whose low 31 bits are
// the length. This caps a single blob at 2^31-1 bytes, matching spec.md's
// "unambiguous extension up to 2^31 bytes".
package blobio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/shanyp/pageserver/blockio"
	"github.com/shanyp/pageserver/format"
)

const (
	smallTagMax  = 0x7f
	extendedFlag = uint32(0x80000000)
	maxBlobSize  = 0x7fffffff
)

// BlobWriter appends length-prefixed blobs to a seekable writer,
// returning the pre-write offset of each one. It buffers internally so a
// stream of small blobs does not cost one syscall apiece (spec.md §4.1).
type BlobWriter struct {
	w      io.Writer
	buf    *bufio.Writer
	offset uint64
}

// seeker is satisfied by vfs.WriteFile; kept narrow so tests can use a
// plain bytes.Buffer-backed fake.
type seeker interface {
	Seek(offset int64, whence int) (int64, error)
}

// NewBlobWriter wraps w for blob writing, seeking it to startOffset
// first if it supports seeking (the image layer writer seeds this at
// PAGE_SZ, leaving block 0 for the summary).
func NewBlobWriter(w io.Writer, startOffset uint64) (*BlobWriter, error) {
	if sk, ok := w.(seeker); ok {
		if _, err := sk.Seek(int64(startOffset), io.SeekStart); err != nil {
			return nil, fmt.Errorf("blobio: seek to start offset: %w", err)
		}
	}
	return &BlobWriter{
		w:      w,
		buf:    bufio.NewWriterSize(w, 64*1024),
		offset: startOffset,
	}, nil
}

// WriteBlob appends p and returns the offset at which it begins.
func (bw *BlobWriter) WriteBlob(p []byte) (uint64, error) {
	if len(p) > maxBlobSize {
		return 0, fmt.Errorf("blobio: blob of %d bytes exceeds max %d", len(p), maxBlobSize)
	}

	off := bw.offset
	n := uint32(len(p))

	if n <= smallTagMax {
		if err := bw.buf.WriteByte(byte(n)); err != nil {
			return 0, fmt.Errorf("blobio: write tag: %w", err)
		}
		bw.offset++
	} else {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], n|extendedFlag)
		if _, err := bw.buf.Write(hdr[:]); err != nil {
			return 0, fmt.Errorf("blobio: write extended tag: %w", err)
		}
		bw.offset += 4
	}

	if _, err := bw.buf.Write(p); err != nil {
		return 0, fmt.Errorf("blobio: write payload: %w", err)
	}
	bw.offset += uint64(n)

	return off, nil
}

// Size returns the current end-of-values offset.
func (bw *BlobWriter) Size() uint64 { return bw.offset }

// Flush drains the internal buffer to the underlying writer. Callers
// must Flush before seeking the underlying file elsewhere.
func (bw *BlobWriter) Flush() error {
	if err := bw.buf.Flush(); err != nil {
		return fmt.Errorf("blobio: flush: %w", err)
	}
	return nil
}

// BlobCursor decodes blobs at arbitrary file offsets via a BlockReader,
// transparently following a blob across a block boundary.
type BlobCursor struct {
	br blockio.BlockReader
}

// NewBlobCursor wraps br for blob reads.
func NewBlobCursor(br blockio.BlockReader) *BlobCursor {
	return &BlobCursor{br: br}
}

// ReadBlob decodes and returns the blob at off.
func (c *BlobCursor) ReadBlob(off uint64) ([]byte, error) {
	tagBuf, err := c.readRange(off, 1)
	if err != nil {
		return nil, fmt.Errorf("blobio: read tag at %d: %w", off, err)
	}
	tag := tagBuf[0]

	var length uint32
	var headerLen uint64

	if tag&0x80 == 0 {
		length = uint32(tag)
		headerLen = 1
	} else {
		rest, err := c.readRange(off+1, 3)
		if err != nil {
			return nil, fmt.Errorf("blobio: read extended tag at %d: %w", off, err)
		}
		var hdr [4]byte
		hdr[0], hdr[1], hdr[2], hdr[3] = tag, rest[0], rest[1], rest[2]
		length = binary.BigEndian.Uint32(hdr[:]) &^ uint32(extendedFlag)
		headerLen = 4
	}

	payload, err := c.readRange(off+headerLen, int(length))
	if err != nil {
		return nil, fmt.Errorf("blobio: read payload at %d: %w", off, err)
	}
	return payload, nil
}

// readRange reads length bytes starting at offset, crossing block
// boundaries as needed and copying out of the (possibly cached, shared)
// page buffers so the caller owns the result.
func (c *BlobCursor) readRange(offset uint64, length int) ([]byte, error) {
	out := make([]byte, length)
	pos := 0
	for pos < length {
		blk := uint32(offset / format.PageSize)
		inBlk := int(offset % format.PageSize)

		page, err := c.br.ReadBlk(blk)
		if err != nil {
			return nil, err
		}

		n := copy(out[pos:], page[inBlk:])
		if n == 0 {
			return nil, fmt.Errorf("blobio: short read at block %d", blk)
		}
		pos += n
		offset += uint64(n)
	}
	return out, nil
}
