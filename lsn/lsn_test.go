package lsn

import "testing"

func TestParseRoundTrip(t *testing.T) {
	l := Lsn(0xdeadbeef)
	s := l.String()
	got, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != l {
		t.Fatalf("round trip mismatch: got %s want %s", got, l)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse("not-hex"); err == nil {
		t.Fatalf("want error for malformed lsn")
	}
}

func TestRangeContains(t *testing.T) {
	r := Range[Lsn]{Start: 10, End: 20}
	if r.Contains(9) {
		t.Fatalf("want 9 excluded")
	}
	if !r.Contains(10) {
		t.Fatalf("want start included")
	}
	if r.Contains(20) {
		t.Fatalf("want end excluded")
	}
}
