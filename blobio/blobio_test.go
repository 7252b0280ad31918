package blobio

import (
	"bytes"
	"testing"

	"github.com/shanyp/pageserver/format"
)

// fakeBlockReader serves PageSize-sized blocks straight out of an
// in-memory buffer, padding the final partial block with zeros, the way
// a real file's last block would read past a short underlying write.
type fakeBlockReader struct {
	data []byte
}

func (f *fakeBlockReader) ReadBlk(blkno uint32) ([]byte, error) {
	block := make([]byte, format.PageSize)
	off := int(blkno) * format.PageSize
	if off < len(f.data) {
		copy(block, f.data[off:])
	}
	return block, nil
}

// seekBuffer adapts bytes.Buffer to satisfy the blobio seeker interface
// for tests, without pulling in a real file.
type seekBuffer struct {
	bytes.Buffer
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	return offset, nil
}

func TestWriteReadSmallBlob(t *testing.T) {
	var buf seekBuffer
	bw, err := NewBlobWriter(&buf, 0)
	if err != nil {
		t.Fatalf("NewBlobWriter: %v", err)
	}

	payload := []byte("hello image layer")
	off, err := bw.WriteBlob(payload)
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if off != 0 {
		t.Fatalf("first blob offset = %d, want 0", off)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	cursor := NewBlobCursor(&fakeBlockReader{data: buf.Bytes()})
	got, err := cursor.ReadBlob(off)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadBlob = %q, want %q", got, payload)
	}
}

func TestWriteReadLargeBlobExtendedTag(t *testing.T) {
	var buf seekBuffer
	bw, err := NewBlobWriter(&buf, 0)
	if err != nil {
		t.Fatalf("NewBlobWriter: %v", err)
	}

	payload := bytes.Repeat([]byte{0xab}, smallTagMax+1)
	off, err := bw.WriteBlob(payload)
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	cursor := NewBlobCursor(&fakeBlockReader{data: buf.Bytes()})
	got, err := cursor.ReadBlob(off)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadBlob length = %d, want %d", len(got), len(payload))
	}
}

func TestReadBlobAcrossBlockBoundary(t *testing.T) {
	var buf seekBuffer
	// Seed enough leading blobs that the next one straddles a PageSize
	// boundary, exercising BlobCursor.readRange's cross-block copy loop.
	bw, err := NewBlobWriter(&buf, 0)
	if err != nil {
		t.Fatalf("NewBlobWriter: %v", err)
	}

	filler := bytes.Repeat([]byte{0x01}, format.PageSize-10)
	if _, err := bw.WriteBlob(filler); err != nil {
		t.Fatalf("WriteBlob filler: %v", err)
	}

	straddling := bytes.Repeat([]byte{0x42}, 64)
	off, err := bw.WriteBlob(straddling)
	if err != nil {
		t.Fatalf("WriteBlob straddling: %v", err)
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if off < format.PageSize-10 {
		t.Fatalf("test setup failed to straddle a block boundary: off=%d", off)
	}

	cursor := NewBlobCursor(&fakeBlockReader{data: buf.Bytes()})
	got, err := cursor.ReadBlob(off)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !bytes.Equal(got, straddling) {
		t.Fatalf("ReadBlob across boundary mismatch: got %d bytes, want %d", len(got), len(straddling))
	}
}

func TestBlobWriterSize(t *testing.T) {
	var buf seekBuffer
	bw, err := NewBlobWriter(&buf, format.PageSize)
	if err != nil {
		t.Fatalf("NewBlobWriter: %v", err)
	}
	if bw.Size() != format.PageSize {
		t.Fatalf("initial Size() = %d, want %d", bw.Size(), format.PageSize)
	}
	if _, err := bw.WriteBlob([]byte("x")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if bw.Size() != format.PageSize+2 {
		t.Fatalf("Size() after one-byte blob = %d, want %d", bw.Size(), format.PageSize+2)
	}
}
