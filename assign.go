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

import "fmt"

// Region is a half-open voxel range [X0,X1) x [Y0,Y1) x [Z0,Z1). Each
// bound must be block-aligned, except that X1/Y1/Z1 may equal the
// volume's extent on that axis to reach a boundary block.
type Region struct {
	X0, Y0, Z0 int64
	X1, Y1, Z1 int64
}

// Assign decomposes data, a densely packed (z,y,x)-order buffer covering
// region, into one WriteBlock call per block. It is a convenience over
// calling WriteBlock in a loop by hand; data must hold exactly
// (X1-X0)*(Y1-Y0)*(Z1-Z0)*DType.Size() bytes.
func (d *Directory) Assign(region Region, data []byte) error {
	sz, _ := d.vol.DType.Size()
	regionX := region.X1 - region.X0
	regionY := region.Y1 - region.Y0
	regionZ := region.Z1 - region.Z0
	if regionX <= 0 || regionY <= 0 || regionZ <= 0 {
		return &BoundsError{region.X0, region.Y0, region.Z0, "region is empty or inverted"}
	}
	want := regionX * regionY * regionZ * int64(sz)
	if int64(len(data)) != want {
		return fmt.Errorf("blockfs: Assign data has %d bytes, expected %d for region", len(data), want)
	}
	if err := d.checkRegionAligned(region); err != nil {
		return err
	}

	for z := region.Z0; z < region.Z1; z += d.vol.ZBlockSize {
		for y := region.Y0; y < region.Y1; y += d.vol.YBlockSize {
			for x := region.X0; x < region.X1; x += d.vol.XBlockSize {
				bz, by, bx := d.vol.GetBlockSize(x, y, z)
				// Clip to the region's own bounds too, in case the
				// region's upper edge is not itself a volume boundary.
				bz = min64(bz, region.Z1-z)
				by = min64(by, region.Y1-y)
				bx = min64(bx, region.X1-x)

				block := make([]byte, bz*by*bx*int64(sz))
				copyBlockFromRegion(block, data, region, x, y, z, bx, by, bz, int64(sz))
				if err := d.WriteBlock(block, x, y, z); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Directory) checkRegionAligned(r Region) error {
	align := func(v, block int64) error {
		if v%block != 0 {
			return &BoundsError{v, v, v, "region bound is not block-aligned"}
		}
		return nil
	}
	if err := align(r.X0, d.vol.XBlockSize); err != nil {
		return err
	}
	if err := align(r.Y0, d.vol.YBlockSize); err != nil {
		return err
	}
	if err := align(r.Z0, d.vol.ZBlockSize); err != nil {
		return err
	}
	if r.X1 != d.vol.X && r.X1%d.vol.XBlockSize != 0 {
		return &BoundsError{r.X1, r.Y1, r.Z1, "region upper X bound is not block-aligned"}
	}
	if r.Y1 != d.vol.Y && r.Y1%d.vol.YBlockSize != 0 {
		return &BoundsError{r.X1, r.Y1, r.Z1, "region upper Y bound is not block-aligned"}
	}
	if r.Z1 != d.vol.Z && r.Z1%d.vol.ZBlockSize != 0 {
		return &BoundsError{r.X1, r.Y1, r.Z1, "region upper Z bound is not block-aligned"}
	}
	return nil
}

// copyBlockFromRegion copies the (bz,by,bx)-shaped block starting at
// (x,y,z) out of data, a densely packed (z,y,x)-order buffer covering
// region. x is the fastest axis in both buffers, so each scanline is a
// contiguous run of bx*elemSize bytes.
func copyBlockFromRegion(block, data []byte, region Region, x, y, z, bx, by, bz, elemSize int64) {
	regionX := region.X1 - region.X0
	regionY := region.Y1 - region.Y0
	rowBytes := bx * elemSize

	for dz := int64(0); dz < bz; dz++ {
		for dy := int64(0); dy < by; dy++ {
			srcRow := ((z - region.Z0 + dz) * regionY + (y - region.Y0 + dy)) * regionX * elemSize
			srcCol := (x - region.X0) * elemSize
			srcStart := srcRow + srcCol
			dstStart := (dz*by + dy) * rowBytes

			copy(block[dstStart:dstStart+rowBytes], data[srcStart:srcStart+rowBytes])
		}
	}
}
