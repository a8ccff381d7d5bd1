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
package blockfs

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// RebaseOptions tunes Rebase's directory-table copy.
type RebaseOptions struct {
	// CopyChunkSize is how many bytes of the directory table are copied
	// per read/write cycle while rewriting the index file.
	CopyChunkSize int
}

// DefaultRebaseOptions returns the RebaseOptions Rebase uses when none is
// given explicitly.
func DefaultRebaseOptions() RebaseOptions {
	return RebaseOptions{CopyChunkSize: 4096 * 16}
}

// Rebase rewrites indexPath's header so that BlockFilenames point at the
// shard files alongside indexPath, then atomically replaces indexPath
// with the rewritten file. It is for the case where an index file and
// its shards were moved or copied to a new directory as a group (e.g. by
// an external tool, or by hand) without going through Move: the stored
// BlockFilenames still carry the old location. Rebase is grounded on
// original_source/blockfs/rebase.py's directory-table copy loop.
func Rebase(indexPath string, opts RebaseOptions) error {
	if opts.CopyChunkSize <= 0 {
		opts = DefaultRebaseOptions()
	}

	d, err := Open(indexPath)
	if err != nil {
		return err
	}
	oldIndexBase := d.indexBase
	vol := d.vol
	d.indexFile.Close()

	dir := filepath.Dir(indexPath)
	for i, name := range vol.BlockFilenames {
		vol.BlockFilenames[i] = filepath.Join(dir, filepath.Base(name))
	}

	src, err := os.Open(indexPath)
	if err != nil {
		return &IoError{"open index", indexPath, err}
	}
	defer src.Close()
	srcInfo, err := src.Stat()
	if err != nil {
		return &IoError{"stat index", indexPath, err}
	}

	dest, err := renameio.TempFile("", indexPath)
	if err != nil {
		return &IoError{"create temp file", indexPath, err}
	}
	defer dest.Cleanup()

	if _, err := writeHeader(dest, &vol); err != nil {
		return &IoError{"write header", indexPath, err}
	}
	if _, err := src.Seek(oldIndexBase, io.SeekStart); err != nil {
		return &IoError{"seek index", indexPath, err}
	}

	buf := make([]byte, opts.CopyChunkSize)
	remaining := srcInfo.Size() - oldIndexBase
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := src.Read(buf[:n])
		if read > 0 {
			if _, werr := dest.Write(buf[:read]); werr != nil {
				return &IoError{"write directory table", indexPath, werr}
			}
			remaining -= int64(read)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return &IoError{"read directory table", indexPath, err}
		}
	}

	if err := dest.CloseAtomicallyReplace(); err != nil {
		return &IoError{"replace index", indexPath, err}
	}
	return nil
}
