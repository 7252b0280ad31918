// Package imgerr defines the error taxonomy of spec.md §7. Every caller
// reaches these through errors.Is / errors.As rather than string matching,
// following the same fmt.Errorf("...: %w", err) idiom the rest of this
// module's teacher uses for its own sentinel errors.
package imgerr

import "errors"

var (
	// ErrIO marks an underlying filesystem failure. Retryable at the
	// caller's discretion; the layer stays unloaded.
	ErrIO = errors.New("image layer: io error")

	// ErrFormat marks a decoding failure: magic/version mismatch,
	// duplicate key in the index, or an out-of-range blob offset. Fatal
	// for the layer that produced it — the caller should quarantine the
	// file.
	ErrFormat = errors.New("image layer: format error")

	// ErrOutOfRange marks a key presented to a writer that falls outside
	// its declared key_range.
	ErrOutOfRange = errors.New("image layer: key out of range")

	// ErrParse marks a filename that does not match the filename codec.
	ErrParse = errors.New("image layer: malformed filename")

	// ErrNotFound marks an attempt to load a layer after delete. Surfaced
	// to callers wrapped in ErrIO, per spec.md §7.
	ErrNotFound = errors.New("image layer: file not found")
)
