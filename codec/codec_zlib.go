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

import (
	"bytes"
	"compress/zlib"
	"io"
)

// zlibCodec uses the standard library's zlib implementation. There is no
// third-party zlib binding anywhere in the retrieved corpus that improves
// on compress/zlib for this codec name; see DESIGN.md for the stdlib
// justification.
type zlibCodec struct{}

func (zlibCodec) Name() string { return "zlib" }

func (zlibCodec) Compress(level int, raw []byte) ([]byte, error) {
	if level < 0 {
		level = zlib.DefaultCompression
	}
	if level > 9 {
		level = 9
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (zlibCodec) Decompress(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func init() {
	Register(zlibCodec{})
}
