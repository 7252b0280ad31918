// Package key implements the opaque, fixed-width, totally ordered page
// identifier used throughout the image layer format (spec.md §3). All
// comparisons are bytewise big-endian; a Key is rendered as a fixed-width
// hex string everywhere it appears in a path or a diagnostic.
package key

import (
	"encoding/hex"
	"fmt"
)

// Len is the width of a Key in bytes. Fixed at 18 by this repository
// (see DESIGN.md); the bytes are opaque and this module gives them no
// internal field structure.
const Len = 18

// HexLen is the width of a Key's hex rendering.
const HexLen = Len * 2

// Key is a fixed-width, opaque, totally ordered identifier.
type Key [Len]byte

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, using bytewise big-endian order.
func Compare(a, b Key) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether a sorts before b.
func Less(a, b Key) bool { return Compare(a, b) < 0 }

// String renders k as fixed-width lowercase hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Parse decodes a fixed-width hex string into a Key.
func Parse(s string) (Key, error) {
	var k Key
	if len(s) != HexLen {
		return k, fmt.Errorf("key: want %d hex chars, got %d", HexLen, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("key: %w", err)
	}
	copy(k[:], b)
	return k, nil
}

// Min returns the all-zero Key, the smallest possible value.
func Min() Key { return Key{} }

// Max returns the all-0xff Key, the largest possible value.
func Max() Key {
	var k Key
	for i := range k {
		k[i] = 0xff
	}
	return k
}

// Range is a half-open key range [Start, End). An empty range has
// Start == End.
type Range struct {
	Start Key
	End   Key
}

// Contains reports whether k falls in [r.Start, r.End).
func (r Range) Contains(k Key) bool {
	return !Less(k, r.Start) && Less(k, r.End)
}

// String renders the range as it appears in a layer filename: the two
// keys joined with a hyphen.
func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}
