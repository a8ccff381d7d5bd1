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

// Package codec is the pluggable compression collaborator spec.md §1
// assumes is available: a byte-in/byte-out codec selected by name and
// level. Each supported name registers itself from its own file's
// init(), mirroring the per-codec registration files of the corpus this
// module was grounded on (compressor-by-name dispatch, one file per
// codec, registering itself at package init time).
package codec

import "fmt"

// Codec compresses and decompresses whole block payloads. Implementations
// must be safe for concurrent use by independent Compress/Decompress
// calls (shard writers call Compress concurrently with each other).
type Codec interface {
	Name() string
	Compress(level int, raw []byte) ([]byte, error)
	Decompress(compressed []byte) ([]byte, error)
}

var registry = map[string]Codec{}

// Register adds a codec under its name. Called from each codec file's
// init(); this is the "registration point for additional codecs" named
// in spec.md §9.
func Register(c Codec) {
	registry[c.Name()] = c
}

// Get looks up a codec by its canonical name (e.g. "zstd", "lz4",
// "zlib", "snappy", "lz4hc", "xz"). "blosclz" is not registered, so Get
// returns an error for it like for any other unknown name.
func Get(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("blockfs/codec: unknown compression codec %q", name)
	}
	return c, nil
}

// Names returns the canonical names of every registered codec, for
// diagnostics and tests.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
