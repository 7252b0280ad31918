package key

import "testing"

func TestCompareOrdering(t *testing.T) {
	a := Key{0x00}
	b := Key{0x01}
	if Compare(a, b) >= 0 {
		t.Fatalf("want a < b")
	}
	if Compare(b, a) <= 0 {
		t.Fatalf("want b > a")
	}
	if Compare(a, a) != 0 {
		t.Fatalf("want a == a")
	}
}

func TestMinMax(t *testing.T) {
	if !Less(Min(), Max()) {
		t.Fatalf("want Min() < Max()")
	}
}

func TestParseRoundTrip(t *testing.T) {
	k := Max()
	s := k.String()
	got, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != k {
		t.Fatalf("round trip mismatch: got %s want %s", got, k)
	}
}

func TestParseBadLength(t *testing.T) {
	if _, err := Parse("abcd"); err == nil {
		t.Fatalf("want error for short hex string")
	}
}

func TestRangeContains(t *testing.T) {
	r := Range{Start: Key{0x10}, End: Key{0x20}}
	if !r.Contains(Key{0x10}) {
		t.Fatalf("want start included (half-open)")
	}
	if r.Contains(Key{0x20}) {
		t.Fatalf("want end excluded (half-open)")
	}
	if !r.Contains(Key{0x15}) {
		t.Fatalf("want midpoint included")
	}
}
