/*
Copyright (C) 2026  BlockFS Contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Command blockfs-rebase rewrites a .blockfs index file's recorded shard
// paths to point at the files alongside it, for use after the index file
// and its shards have been moved as a group by some means other than
// blockfs.Move.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/launix-de/blockfs"
)

func main() {
	blockSize := flag.Int("block-size", 4096*16, "bytes copied per read/write cycle while rewriting the directory table")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] index-file\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	err := blockfs.Rebase(flag.Arg(0), blockfs.RebaseOptions{CopyChunkSize: *blockSize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "blockfs-rebase: %v\n", err)
		os.Exit(1)
	}
}
