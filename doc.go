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

// Package blockfs is a block store for dense three-dimensional volumes of
// numeric voxels. A volume is partitioned into fixed-size blocks, each
// compressed independently and appended to one of several shard files so
// that many producers and consumers can do I/O in parallel. A small index
// file records the location and size of every block in a packed directory
// table.
//
// The typical life of a store is:
//
//	vol := blockfs.VolumeDescriptor{ /* extents, block shape, dtype, ... */ }
//	dir, err := blockfs.Create(indexPath, vol)
//	dir.StartWorkers(blockfs.DefaultOptions())
//	dir.WriteBlock(data, x, y, z)
//	dir.Close()
//	...
//	dir, err = blockfs.Open(indexPath)
//	block, err := dir.ReadBlock(x, y, z)
package blockfs
