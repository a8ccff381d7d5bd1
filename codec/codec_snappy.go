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
package codec

import "github.com/golang/snappy"

// snappyCodec uses the block-format github.com/golang/snappy binding,
// the canonical Go snappy implementation referenced across the corpus
// (rclone, perkeep and several other retrieved manifests require it).
// Snappy has no notion of a compression level.
type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Compress(level int, raw []byte) ([]byte, error) {
	return snappy.Encode(nil, raw), nil
}

func (snappyCodec) Decompress(compressed []byte) ([]byte, error) {
	return snappy.Decode(nil, compressed)
}

func init() {
	Register(snappyCodec{})
}
