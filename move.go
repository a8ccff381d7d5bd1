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
)

// Move relocates indexPath and its shard files into destDir, which will
// be created if it does not exist (its parent must already exist). The
// index file and shards keep their basenames. Grounded on
// original_source/blockfs/mv.py: a fresh index file is written at the
// destination with BlockFilenames rewritten, the directory table is
// copied across, then the shard files are moved and the source index
// file removed.
func Move(indexPath, destDir string) error {
	return moveOrCopy(indexPath, destDir, true)
}

// Copy is Move without removing the source: both the index file and its
// shards exist, independently, at the source and destination afterward.
func Copy(indexPath, destDir string) error {
	return moveOrCopy(indexPath, destDir, false)
}

func moveOrCopy(indexPath, destDir string, move bool) error {
	d, err := Open(indexPath)
	if err != nil {
		return err
	}
	oldBase := d.indexBase
	vol := d.vol
	d.indexFile.Close()

	if _, err := os.Stat(destDir); os.IsNotExist(err) {
		if err := os.Mkdir(destDir, 0755); err != nil {
			return &IoError{"mkdir", destDir, err}
		}
	}

	destBlockFilenames := make([]string, len(vol.BlockFilenames))
	for i, name := range vol.BlockFilenames {
		destBlockFilenames[i] = filepath.Join(destDir, filepath.Base(d.shardPath(name)))
	}
	destIndexPath := filepath.Join(destDir, filepath.Base(indexPath))

	destVol := vol
	destVol.BlockFilenames = destBlockFilenames

	destFile, err := os.OpenFile(destIndexPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return &FormatError{destIndexPath, "destination index file already exists"}
		}
		return &IoError{"create index", destIndexPath, err}
	}
	defer destFile.Close()
	newBase, err := writeHeader(destFile, &destVol)
	if err != nil {
		return &IoError{"write header", destIndexPath, err}
	}

	srcFile, err := os.Open(indexPath)
	if err != nil {
		return &IoError{"open index", indexPath, err}
	}
	defer srcFile.Close()
	if _, err := srcFile.Seek(oldBase, io.SeekStart); err != nil {
		return &IoError{"seek index", indexPath, err}
	}
	if _, err := destFile.Seek(newBase, io.SeekStart); err != nil {
		return &IoError{"seek index", destIndexPath, err}
	}
	if _, err := io.Copy(destFile, srcFile); err != nil {
		return &IoError{"copy directory table", destIndexPath, err}
	}

	for i, srcShard := range vol.BlockFilenames {
		srcShardPath := d.shardPath(srcShard)
		dstShardPath := destBlockFilenames[i]
		if err := moveOrCopyFile(srcShardPath, dstShardPath, move); err != nil {
			return err
		}
	}

	if move {
		if err := os.Remove(indexPath); err != nil {
			return &IoError{"remove", indexPath, err}
		}
	}
	return nil
}

func moveOrCopyFile(src, dst string, move bool) error {
	if move {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		// os.Rename fails across filesystem boundaries; fall back to
		// copy-then-remove.
		if err := copyFile(src, dst); err != nil {
			return err
		}
		return os.Remove(src)
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &IoError{"open", src, err}
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &IoError{"create", dst, err}
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return &IoError{"copy", dst, err}
	}
	return nil
}
