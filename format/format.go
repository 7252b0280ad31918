// Package format holds the on-disk constants shared by every codec in this
// module: the page size the whole file is laid out in, and the magic/version
// pair that pins the binary layout. These never change independently of a
// coordinated migration (spec.md §6).
package format

const (
	// PageSize is the fixed block size of an image layer file.
	PageSize = 8192

	// ImageFileMagic identifies a file as an image layer, as opposed to any
	// other layer kind sharing the same tenant/timeline directory.
	ImageFileMagic uint16 = 0x5A49 // "ZI"

	// Version is the format_version written into every Summary. Bump it,
	// and the blob length-prefix layout it pins, only with a coordinated
	// migration across readers and writers.
	Version uint16 = 1
)

// BlocksFor returns the number of PageSize blocks needed to hold n bytes,
// rounding up.
func BlocksFor(n uint64) uint32 {
	return uint32((n + PageSize - 1) / PageSize)
}
