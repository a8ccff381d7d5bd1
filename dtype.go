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

// DType is a canonical voxel type name, stored little-endian on disk.
type DType string

const (
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Float32 DType = "float32"
	Float64 DType = "float64"
)

// Size returns the size in bytes of one voxel of this type.
func (d DType) Size() (int, error) {
	switch d {
	case Uint8, Int8:
		return 1, nil
	case Uint16, Int16:
		return 2, nil
	case Uint32, Int32, Float32:
		return 4, nil
	case Uint64, Int64, Float64:
		return 8, nil
	default:
		return 0, fmt.Errorf("blockfs: unknown DType %q", string(d))
	}
}

// Valid reports whether d is one of the ten canonical voxel types.
func (d DType) Valid() bool {
	_, err := d.Size()
	return err == nil
}
