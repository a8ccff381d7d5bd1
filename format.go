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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// magicHeader is the 8-byte ASCII header written at offset 0 of every
// index file, per spec.md §6.
var magicHeader = [8]byte{'B', 'l', 'o', 'c', 'k', 'F', 'S', 0}

// knownMetadataKeys are the required JSON keys spec.md §6 defines; every
// other key in the metadata object is preserved verbatim as application
// metadata.
var knownMetadataKeys = map[string]bool{
	"XBlockSize": true, "YBlockSize": true, "ZBlockSize": true,
	"XExtent": true, "YExtent": true, "ZExtent": true,
	"NOffsetBits": true, "NSizeBits": true,
	"XStride": true, "YStride": true, "ZStride": true,
	"DType": true, "BlockFilenames": true,
	"Compression": true, "CompressionLvl": true, "Version": true,
}

// buildMetadata assembles the JSON metadata object for v: the required
// keys from spec.md §6 plus any application metadata, verbatim.
func buildMetadata(v *VolumeDescriptor) map[string]any {
	md := make(map[string]any, len(v.Metadata)+len(knownMetadataKeys))
	for k, val := range v.Metadata {
		md[k] = val
	}
	md["XBlockSize"] = v.XBlockSize
	md["YBlockSize"] = v.YBlockSize
	md["ZBlockSize"] = v.ZBlockSize
	md["XExtent"] = v.X
	md["YExtent"] = v.Y
	md["ZExtent"] = v.Z
	md["NOffsetBits"] = v.NOffsetBits
	md["NSizeBits"] = v.NSizeBits
	md["XStride"] = v.XStride
	md["YStride"] = v.YStride
	md["ZStride"] = v.ZStride
	md["DType"] = string(v.DType)
	md["BlockFilenames"] = v.BlockFilenames
	md["Compression"] = v.Compression
	md["CompressionLvl"] = v.CompressionLvl
	md["Version"] = v.Version
	return md
}

// writeHeader serializes the header, metadata length/offset pair and
// JSON metadata object to w, in the byte-exact layout of spec.md §6. It
// returns the index_base value that was written.
func writeHeader(w io.Writer, v *VolumeDescriptor) (int64, error) {
	jsonBytes, err := json.Marshal(buildMetadata(v))
	if err != nil {
		return 0, fmt.Errorf("blockfs: encoding metadata: %w", err)
	}
	indexBase := int64(8 + 8 + len(jsonBytes))

	if _, err := w.Write(magicHeader[:]); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(jsonBytes))); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(indexBase)); err != nil {
		return 0, err
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return 0, err
	}
	return indexBase, nil
}

// readHeader parses the header and metadata from r (positioned at the
// start of the file) into a VolumeDescriptor, returning the index_base
// offset of the directory table. It returns a *FormatError if the header
// is absent, truncated, or a required metadata key is missing.
func readHeader(path string, r io.Reader) (*VolumeDescriptor, int64, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, &FormatError{path, "truncated header"}
	}
	if !bytes.Equal(magic[:], magicHeader[:]) {
		return nil, 0, &FormatError{path, "missing BlockFS magic header"}
	}

	var mdLen, indexBase uint32
	if err := binary.Read(r, binary.LittleEndian, &mdLen); err != nil {
		return nil, 0, &FormatError{path, "truncated metadata length"}
	}
	if err := binary.Read(r, binary.LittleEndian, &indexBase); err != nil {
		return nil, 0, &FormatError{path, "truncated index base"}
	}

	jsonBytes := make([]byte, mdLen)
	if _, err := io.ReadFull(r, jsonBytes); err != nil {
		return nil, 0, &FormatError{path, "truncated metadata JSON"}
	}
	if int64(8+8+mdLen) != int64(indexBase) {
		return nil, 0, &FormatError{path, "index_base does not match header+metadata length"}
	}

	var md map[string]any
	if err := json.Unmarshal(jsonBytes, &md); err != nil {
		return nil, 0, &FormatError{path, fmt.Sprintf("malformed metadata JSON: %v", err)}
	}

	v := &VolumeDescriptor{Metadata: map[string]any{}}
	for k, val := range md {
		if !knownMetadataKeys[k] {
			v.Metadata[k] = val
			continue
		}
	}

	var err error
	v.XBlockSize, err = reqInt(md, "XBlockSize")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.YBlockSize, err = reqInt(md, "YBlockSize")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.ZBlockSize, err = reqInt(md, "ZBlockSize")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.X, err = reqInt(md, "XExtent")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.Y, err = reqInt(md, "YExtent")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.Z, err = reqInt(md, "ZExtent")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	noffsetBits, err := reqInt(md, "NOffsetBits")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.NOffsetBits = int(noffsetBits)
	nsizeBits, err := reqInt(md, "NSizeBits")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.NSizeBits = int(nsizeBits)
	v.XStride, err = reqInt(md, "XStride")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.YStride, err = reqInt(md, "YStride")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.ZStride, err = reqInt(md, "ZStride")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}

	dtype, err := reqString(md, "DType")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.DType = DType(dtype)
	if !v.DType.Valid() {
		return nil, 0, &FormatError{path, fmt.Sprintf("unknown DType %q", dtype)}
	}

	filenames, err := reqStringSlice(md, "BlockFilenames")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.BlockFilenames = filenames

	v.Compression, err = reqString(md, "Compression")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	lvl, err := reqInt(md, "CompressionLvl")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	v.CompressionLvl = int(lvl)

	v.Version, err = reqString(md, "Version")
	if err != nil {
		return nil, 0, &FormatError{path, err.Error()}
	}
	if v.Version != CurrentVersion {
		return nil, 0, &FormatError{path, fmt.Sprintf("unsupported format version %q", v.Version)}
	}

	return v, int64(indexBase), nil
}

func reqInt(md map[string]any, key string) (int64, error) {
	val, ok := md[key]
	if !ok {
		return 0, fmt.Errorf("missing required metadata key %q", key)
	}
	switch n := val.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("metadata key %q is not a number", key)
	}
}

func reqString(md map[string]any, key string) (string, error) {
	val, ok := md[key]
	if !ok {
		return "", fmt.Errorf("missing required metadata key %q", key)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("metadata key %q is not a string", key)
	}
	return s, nil
}

func reqStringSlice(md map[string]any, key string) ([]string, error) {
	val, ok := md[key]
	if !ok {
		return nil, fmt.Errorf("missing required metadata key %q", key)
	}
	list, ok := val.([]any)
	if !ok {
		return nil, fmt.Errorf("metadata key %q is not a list", key)
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("metadata key %q element %d is not a string", key, i)
		}
		out[i] = s
	}
	return out, nil
}
