package ids

import "testing"

func TestTenantIDRoundTrip(t *testing.T) {
	var want TenantID
	for i := range want {
		want[i] = byte(i)
	}
	got, err := ParseTenantID(want.String())
	if err != nil {
		t.Fatalf("ParseTenantID: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %s want %s", got, want)
	}
}

func TestTimelineIDRoundTrip(t *testing.T) {
	var want TimelineID
	for i := range want {
		want[i] = byte(0xff - i)
	}
	got, err := ParseTimelineID(want.String())
	if err != nil {
		t.Fatalf("ParseTimelineID: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %s want %s", got, want)
	}
}

func TestParseBadLength(t *testing.T) {
	if _, err := ParseTenantID("00"); err == nil {
		t.Fatalf("want error for short hex string")
	}
}
