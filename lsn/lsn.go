// Package lsn implements the monotonically increasing logical timestamp
// used to version every image layer (spec.md §3), plus a small generic
// half-open range helper adapted from the teacher's memtable ordered-key
// constraint — Lsn is the one numeric, intrinsically ordered key type in
// this module, so the generic range fits it directly instead of needing
// a bespoke Less method the way key.Range does.
package lsn

import "fmt"

// Lsn is a 64-bit monotonically increasing logical timestamp.
type Lsn uint64

// String renders the Lsn as fixed-width lowercase hex, matching the
// filename codec's field width (spec.md §4.5).
func (l Lsn) String() string {
	return fmt.Sprintf("%016x", uint64(l))
}

// Parse decodes a fixed-width hex string into an Lsn.
func Parse(s string) (Lsn, error) {
	var v uint64
	n, err := fmt.Sscanf(s, "%016x", &v)
	if err != nil || n != 1 {
		return 0, fmt.Errorf("lsn: malformed hex %q", s)
	}
	return Lsn(v), nil
}

// ordered is the teacher's memtable key-constraint, reused verbatim here
// for the one other place this module needs a generic ordered range.
type ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Range is a half-open range [Start, End) over any ordered numeric type.
// Used for the caller-supplied lsn_range in GetValue: spec.md §4.4
// requires only that lsn_range.End > lsn, so a minimal generic range
// (rather than a full interval tree) is all the core needs.
type Range[T ordered] struct {
	Start T
	End   T
}

// Contains reports whether v falls in [r.Start, r.End).
func (r Range[T]) Contains(v T) bool {
	return v >= r.Start && v < r.End
}
