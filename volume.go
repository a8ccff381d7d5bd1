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
	"math/bits"
)

// CurrentVersion is the format version written by Create.
const CurrentVersion = "1.0.0"

// VolumeDescriptor is immutable after Create/Open returns: every field
// here is fixed for the lifetime of the store (spec invariant 1).
type VolumeDescriptor struct {
	X, Y, Z int64 // extents in voxels

	DType DType // voxel type, little-endian on disk

	XBlockSize, YBlockSize, ZBlockSize int64 // block shape

	// NOffsetBits/NSizeBits are the bit widths of the two packed fields
	// in a directory entry. Zero means "derive from the extents and
	// block shape when Create is called".
	NOffsetBits, NSizeBits int

	// XStride/YStride/ZStride are the directory-offset stride per axis,
	// in entries. Zero means "use the canonical x-minor, z-major
	// row-major default".
	XStride, YStride, ZStride int64

	BlockFilenames []string // shard file paths, in shard-index order

	Compression    string // codec name, e.g. "zstd", "lz4"
	CompressionLvl int    // 0-9

	Version string // format version string; set by Create

	Metadata map[string]any // application metadata, preserved verbatim
}

func ceilDiv(a, b int64) int64 {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// NumShards returns the number of shard files.
func (v *VolumeDescriptor) NumShards() int {
	return len(v.BlockFilenames)
}

// GridExtents returns the number of blocks along each axis,
// ceil(X/bx), ceil(Y/by), ceil(Z/bz).
func (v *VolumeDescriptor) GridExtents() (gx, gy, gz int64) {
	return ceilDiv(v.X, v.XBlockSize), ceilDiv(v.Y, v.YBlockSize), ceilDiv(v.Z, v.ZBlockSize)
}

// NBlocks returns the total number of entries in the directory table.
func (v *VolumeDescriptor) NBlocks() int64 {
	gx, gy, gz := v.GridExtents()
	return gx * gy * gz
}

// EntrySize returns ceil((NOffsetBits+NSizeBits)/8), the byte width of
// one packed directory entry.
func (v *VolumeDescriptor) EntrySize() int {
	return (v.NOffsetBits + v.NSizeBits + 7) / 8
}

// deriveLayout fills in strides and bit widths left at their zero value,
// following the canonical defaults from spec.md §3: sx=1, sy=ceil(X/bx),
// sz=sy*ceil(Y/by); bit widths sized to the worst-case last-block offset
// and worst-case compressed size (raw + 16-byte codec header).
//
// Open question (b) in spec.md §9: deriving bit widths from log2 of the
// worst case underflows to 0 bits for tiny volumes; both widths are
// clamped to a minimum of 8 bits.
func (v *VolumeDescriptor) deriveLayout() {
	gx, gy, gz := v.GridExtents()
	if v.XStride == 0 {
		v.XStride = 1
	}
	if v.YStride == 0 {
		v.YStride = gx
	}
	if v.ZStride == 0 {
		v.ZStride = v.YStride * gy
	}
	_ = gz

	sz, _ := v.DType.Size()
	maxBlockBytes := v.XBlockSize*v.YBlockSize*v.ZBlockSize*int64(sz) + 16
	if v.NOffsetBits == 0 {
		// Worst case: every block lands in the same shard at its largest
		// compressed size, so the last one starts at byte
		// (NBlocks-1)*maxBlockBytes of that shard file.
		lastOffset := (v.NBlocks() - 1) * maxBlockBytes
		v.NOffsetBits = bitWidth(uint64(lastOffset))
	}
	if v.NSizeBits == 0 {
		v.NSizeBits = bitWidth(uint64(maxBlockBytes))
	}
	if v.NOffsetBits < 8 {
		v.NOffsetBits = 8
	}
	if v.NSizeBits < 8 {
		v.NSizeBits = 8
	}
}

// bitWidth returns floor(log2(n))+1 for n>0, matching the worst-case
// width derivation in spec.md §3 ("no = floor(log2(max_offset)) + 1").
func bitWidth(n uint64) int {
	if n == 0 {
		return 1
	}
	return bits.Len64(n)
}

// offsetOf computes the linear directory offset for block-grid indices
// (i,j,k), D(i,j,k) = sx*i + sy*j + sz*k.
func (v *VolumeDescriptor) offsetOf(i, j, k int64) int64 {
	return v.XStride*i + v.YStride*j + v.ZStride*k
}

// BlockOffset computes the directory offset for the block containing
// voxel coordinate (x,y,z). x, y and z must be block-aligned; use
// checkAligned to validate before calling.
func (v *VolumeDescriptor) BlockOffset(x, y, z int64) int64 {
	i := x / v.XBlockSize
	j := y / v.YBlockSize
	k := z / v.ZBlockSize
	return v.offsetOf(i, j, k)
}

// GetBlockSize returns the boundary-aware shape of the block at
// (x,y,z), in (z,y,x) order (slowest to fastest), matching the
// in-memory layout convention.
func (v *VolumeDescriptor) GetBlockSize(x, y, z int64) (bz, by, bx int64) {
	bz = min64(v.ZBlockSize, v.Z-z)
	by = min64(v.YBlockSize, v.Y-y)
	bx = min64(v.XBlockSize, v.X-x)
	return
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// checkAligned validates that (x,y,z) lies within the volume and is
// aligned to the block shape, as write_block and read_block require.
func (v *VolumeDescriptor) checkAligned(x, y, z int64) error {
	if x < 0 || y < 0 || z < 0 || x >= v.X || y >= v.Y || z >= v.Z {
		return &BoundsError{x, y, z, "coordinate outside volume extents"}
	}
	if x%v.XBlockSize != 0 || y%v.YBlockSize != 0 || z%v.ZBlockSize != 0 {
		return &BoundsError{x, y, z, "coordinate is not block-aligned"}
	}
	return nil
}
