// Package filename implements the mapping between a layer's on-disk
// filename and its (key-range, LSN) identity (spec.md §4.5): fixed
// zero-padded hex widths so the name sorts and parses without scanning
// past the literal "-" and "__" delimiters.
package filename

import (
	"fmt"
	"strings"

	"github.com/shanyp/pageserver/imgerr"
	"github.com/shanyp/pageserver/key"
	"github.com/shanyp/pageserver/lsn"
)

// Format renders the filename for (keyRange, l): <start>-<end>__<lsn>,
// all three fields fixed-width hex.
func Format(keyRange key.Range, l lsn.Lsn) string {
	return fmt.Sprintf("%s-%s__%s", keyRange.Start, keyRange.End, l)
}

// Parse recovers (key.Range, lsn.Lsn) from a filename produced by Format.
func Parse(name string) (key.Range, lsn.Lsn, error) {
	var r key.Range

	lsnParts := strings.SplitN(name, "__", 2)
	if len(lsnParts) != 2 {
		return r, 0, fmt.Errorf("filename: missing __lsn suffix in %q: %w", name, imgerr.ErrParse)
	}

	keyParts := strings.SplitN(lsnParts[0], "-", 2)
	if len(keyParts) != 2 {
		return r, 0, fmt.Errorf("filename: missing key range in %q: %w", name, imgerr.ErrParse)
	}

	start, err := key.Parse(keyParts[0])
	if err != nil {
		return r, 0, fmt.Errorf("filename: start key in %q: %w", name, err)
	}
	end, err := key.Parse(keyParts[1])
	if err != nil {
		return r, 0, fmt.Errorf("filename: end key in %q: %w", name, err)
	}

	l, err := lsn.Parse(lsnParts[1])
	if err != nil {
		return r, 0, fmt.Errorf("filename: lsn in %q: %w", name, err)
	}

	return key.Range{Start: start, End: end}, l, nil
}
