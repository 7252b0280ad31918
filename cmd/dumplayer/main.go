// Command dumplayer is the external debug consumer of spec.md §6: it opens
// a sealed image layer file by path alone, recovering its identity from the
// filename, and prints its summary plus (with -v) every key in blob-offset
// order.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/shanyp/pageserver/imagelayer"
	"github.com/shanyp/pageserver/pagecache"
	"github.com/shanyp/pageserver/vfs"
)

func main() {
	verbose := flag.Bool("v", false, "dump every key in the index, in blob-offset order")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dumplayer [-v] <path-to-layer-file>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "dumplayer: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, verbose bool) error {
	descCache, err := vfs.NewCache(1)
	if err != nil {
		return err
	}
	pageCache, err := pagecache.New(pagecache.DefaultPages)
	if err != nil {
		return err
	}

	reader, err := imagelayer.NewReaderForPath(path, descCache, pageCache)
	if err != nil {
		return err
	}

	return reader.Dump(os.Stdout, verbose)
}
