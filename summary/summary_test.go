package summary

import (
	"errors"
	"testing"

	"github.com/shanyp/pageserver/format"
	"github.com/shanyp/pageserver/ids"
	"github.com/shanyp/pageserver/imgerr"
	"github.com/shanyp/pageserver/key"
	"github.com/shanyp/pageserver/lsn"
)

func sample() Summary {
	var tenant ids.TenantID
	var timeline ids.TimelineID
	for i := range tenant {
		tenant[i] = byte(i)
		timeline[i] = byte(0xf0 + i)
	}
	return Summary{
		Magic:         format.ImageFileMagic,
		FormatVersion: format.Version,
		TenantID:      tenant,
		TimelineID:    timeline,
		KeyRange:      key.Range{Start: key.Min(), End: key.Max()},
		LSN:           lsn.Lsn(42),
		IndexStartBlk: 7,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sample()
	buf := Encode(s)
	if len(buf) != format.PageSize {
		t.Fatalf("encoded summary len = %d, want %d", len(buf), format.PageSize)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !Equal(got, s, false) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, s)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	buf := Encode(sample())
	buf[0] = 0xff
	buf[1] = 0xff
	if _, err := Decode(buf); !errors.Is(err, imgerr.ErrFormat) {
		t.Fatalf("want ErrFormat for bad magic, got %v", err)
	}
}

func TestDecodeBadVersion(t *testing.T) {
	buf := Encode(sample())
	buf[2] = 0xff
	buf[3] = 0xff
	if _, err := Decode(buf); !errors.Is(err, imgerr.ErrFormat) {
		t.Fatalf("want ErrFormat for bad version, got %v", err)
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, err := Decode(make([]byte, 4)); !errors.Is(err, imgerr.ErrFormat) {
		t.Fatalf("want ErrFormat for short buffer, got %v", err)
	}
}

func TestEqualIgnoresIndexStartBlk(t *testing.T) {
	a := sample()
	b := sample()
	b.IndexStartBlk = a.IndexStartBlk + 1
	if Equal(a, b, false) {
		t.Fatalf("want mismatch when IndexStartBlk differs and not ignored")
	}
	if !Equal(a, b, true) {
		t.Fatalf("want match when IndexStartBlk difference is ignored")
	}
}
