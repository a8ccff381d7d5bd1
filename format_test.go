package blockfs

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// TestCreateOnlyHeaderLayout checks the raw on-disk header bytes: the
// magic, the metadata length, and index_base.
func TestCreateOnlyHeaderLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.blockfs")
	vol := VolumeDescriptor{
		X: 1024, Y: 1024, Z: 1024,
		XBlockSize: 64, YBlockSize: 64, ZBlockSize: 64,
		DType:          Uint16,
		BlockFilenames: []string{filepath.Join(dir, "shard.0")},
		Compression:    "zstd",
	}
	d, err := Create(path, vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) < 16 {
		t.Fatalf("header truncated: only %d bytes", len(raw))
	}
	if string(raw[:8]) != "BlockFS\x00" {
		t.Fatalf("expected magic \"BlockFS\\x00\", got %q", raw[:8])
	}

	mdLen := binary.LittleEndian.Uint32(raw[8:12])
	indexBase := binary.LittleEndian.Uint32(raw[12:16])
	if int64(8+8+mdLen) != int64(indexBase) {
		t.Errorf("index_base %d does not match 16+metadata length %d", indexBase, mdLen)
	}
	if int64(indexBase) != d.indexBase {
		t.Errorf("file's index_base %d does not match Directory.indexBase %d", indexBase, d.indexBase)
	}
	if int64(len(raw)) != int64(indexBase) {
		t.Errorf("expected a freshly created index file to end exactly at index_base (empty directory table), got %d bytes vs index_base %d", len(raw), indexBase)
	}
}

func TestReadHeaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.blockfs")
	vol := VolumeDescriptor{
		X: 100, Y: 200, Z: 300,
		XBlockSize: 10, YBlockSize: 20, ZBlockSize: 30,
		DType:          Float32,
		BlockFilenames: []string{filepath.Join(dir, "shard.0"), filepath.Join(dir, "shard.1")},
		Compression:    "lz4",
		CompressionLvl: 4,
		Metadata:       map[string]any{"pixel_size_um": 0.25},
	}
	d, err := Create(path, vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d.Close()

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d2.Close()

	if d2.vol.X != 100 || d2.vol.Y != 200 || d2.vol.Z != 300 {
		t.Errorf("extents did not round trip: got (%d,%d,%d)", d2.vol.X, d2.vol.Y, d2.vol.Z)
	}
	if d2.vol.DType != Float32 {
		t.Errorf("DType did not round trip: got %q", d2.vol.DType)
	}
	if d2.vol.Compression != "lz4" || d2.vol.CompressionLvl != 4 {
		t.Errorf("compression settings did not round trip: got %q level %d", d2.vol.Compression, d2.vol.CompressionLvl)
	}
	if got, ok := d2.vol.Metadata["pixel_size_um"]; !ok || got.(float64) != 0.25 {
		t.Errorf("application metadata did not round trip: got %v", d2.vol.Metadata)
	}
}
