// Package ids implements the opaque 16-byte tenant and timeline
// identifiers that route an image layer to its directory (spec.md §3, §6).
package ids

import (
	"encoding/hex"
	"fmt"
)

// Len is the width of a TenantID/TimelineID in bytes.
const Len = 16

// HexLen is the width of its hex rendering.
const HexLen = Len * 2

// TenantID opaquely identifies a tenant.
type TenantID [Len]byte

// TimelineID opaquely identifies a timeline within a tenant.
type TimelineID [Len]byte

func (t TenantID) String() string   { return hex.EncodeToString(t[:]) }
func (t TimelineID) String() string { return hex.EncodeToString(t[:]) }

// ParseTenantID decodes a fixed-width hex string into a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	var id TenantID
	b, err := parseFixed(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// ParseTimelineID decodes a fixed-width hex string into a TimelineID.
func ParseTimelineID(s string) (TimelineID, error) {
	var id TimelineID
	b, err := parseFixed(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func parseFixed(s string) ([]byte, error) {
	if len(s) != HexLen {
		return nil, fmt.Errorf("ids: want %d hex chars, got %d", HexLen, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("ids: %w", err)
	}
	return b, nil
}
