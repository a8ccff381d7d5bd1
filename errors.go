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
	"fmt"

	"github.com/google/uuid"
)

// FormatError reports a malformed or incompatible on-disk index file:
// header mismatch, a missing metadata key, an unknown Version, or JSON
// that failed to parse.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("blockfs: format error in %s: %s", e.Path, e.Reason)
}

// BoundsError reports a write or read at a coordinate that is not
// block-aligned, or a block whose shape does not match GetBlockSize.
type BoundsError struct {
	X, Y, Z int64
	Reason  string
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("blockfs: bounds error at (%d,%d,%d): %s", e.X, e.Y, e.Z, e.Reason)
}

// IoError wraps a filesystem-level failure encountered while creating,
// opening, reading or writing a store file.
type IoError struct {
	Op   string
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("blockfs: io error during %s on %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// CodecError reports a compression or decompression failure. On read,
// this is treated as data corruption.
type CodecError struct {
	Codec string
	Op    string
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("blockfs: codec error (%s/%s): %v", e.Codec, e.Op, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// WorkerFailure reports that a shard writer or the index writer
// terminated abnormally. It poisons the store: subsequent writes routed
// to the affected shard fail deterministically until the store is
// recreated. StoreID identifies which Directory reported it, so that a
// process juggling several open stores can tell their failures apart in
// a shared log stream. Stack holds a recovered panic's trace (via
// runtime/debug.Stack), matching the teacher's scanError
// (storage/scan.go); it is empty for failures that surfaced as a
// returned error rather than a panic.
type WorkerFailure struct {
	StoreID uuid.UUID
	Shard   int // -1 for the index writer
	Err     error
	Stack   string
}

func (e *WorkerFailure) Error() string {
	var msg string
	if e.Shard < 0 {
		msg = fmt.Sprintf("blockfs: store %s: index writer failed: %v", e.StoreID, e.Err)
	} else {
		msg = fmt.Sprintf("blockfs: store %s: shard writer %d failed: %v", e.StoreID, e.Shard, e.Err)
	}
	if e.Stack != "" {
		msg += "\n" + e.Stack
	}
	return msg
}

func (e *WorkerFailure) Unwrap() error { return e.Err }
