package blockfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func makeVoxels(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i) + seed
	}
	return buf
}

func testVolumeDescriptor(blockFilenames []string) VolumeDescriptor {
	return VolumeDescriptor{
		X: 20, Y: 20, Z: 20,
		XBlockSize: 10, YBlockSize: 10, ZBlockSize: 10,
		DType:          Uint8,
		BlockFilenames: blockFilenames,
		Compression:    "zstd",
		CompressionLvl: 3,
	}
}

func shardNames(dir string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = filepath.Join(dir, "shard."+string(rune('0'+i)))
	}
	return names
}

// TestCreateOnly checks that Create alone, with no writes, leaves a
// store that reads back every block as zero-filled.
func TestCreateOnly(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	block, err := d.ReadBlock(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if len(block.Data) != 1000 {
		t.Fatalf("expected 1000 bytes (10x10x10), got %d", len(block.Data))
	}
	for _, b := range block.Data {
		if b != 0 {
			t.Fatalf("expected all-zero block before any write, found byte %d", b)
		}
	}
}

// TestWriteThenReadSameBlock checks the single write/single read round
// trip.
func TestWriteThenReadSameBlock(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	payload := makeVoxels(1000, 7)
	if err := d.WriteBlock(payload, 0, 0, 0); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := Open(filepath.Join(dir, "vol.blockfs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d2.Close()

	block, err := d2.ReadBlock(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(block.Data, payload) {
		t.Fatalf("round trip mismatch")
	}
}

// TestWriteTwoBlocksDifferentShards checks that two blocks routed to
// different shards both land correctly.
func TestWriteTwoBlocksDifferentShards(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a := makeVoxels(1000, 1)
	b := makeVoxels(1000, 2)
	if err := d.WriteBlock(a, 0, 0, 0); err != nil {
		t.Fatalf("WriteBlock a: %v", err)
	}
	if err := d.WriteBlock(b, 10, 0, 0); err != nil {
		t.Fatalf("WriteBlock b: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := Open(filepath.Join(dir, "vol.blockfs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d2.Close()

	got, err := d2.ReadBlock(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock a: %v", err)
	}
	if !bytes.Equal(got.Data, a) {
		t.Fatalf("block a mismatch")
	}
	got, err = d2.ReadBlock(10, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock b: %v", err)
	}
	if !bytes.Equal(got.Data, b) {
		t.Fatalf("block b mismatch")
	}
}

// TestWriteTwoBlocksSameShard checks that, with a single shard file,
// both blocks round trip and the shard file's length is exactly the sum
// of their two compressed payloads.
func TestWriteTwoBlocksSameShard(t *testing.T) {
	dir := t.TempDir()
	vol := VolumeDescriptor{
		X: 256, Y: 256, Z: 256,
		XBlockSize: 64, YBlockSize: 64, ZBlockSize: 64,
		DType:          Uint16,
		BlockFilenames: shardNames(dir, 1),
		Compression:    "zstd",
	}
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	a := makeVoxels(64*64*64*2, 1)
	b := makeVoxels(64*64*64*2, 2)
	if err := d.WriteBlock(a, 64, 128, 192); err != nil {
		t.Fatalf("WriteBlock a: %v", err)
	}
	if err := d.WriteBlock(b, 0, 0, 0); err != nil {
		t.Fatalf("WriteBlock b: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := Open(filepath.Join(dir, "vol.blockfs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d2.Close()

	gotA, err := d2.ReadBlock(64, 128, 192)
	if err != nil {
		t.Fatalf("ReadBlock a: %v", err)
	}
	if !bytes.Equal(gotA.Data, a) {
		t.Error("block a mismatch")
	}
	gotB, err := d2.ReadBlock(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock b: %v", err)
	}
	if !bytes.Equal(gotB.Data, b) {
		t.Error("block b mismatch")
	}

	shardData, err := os.ReadFile(shardNames(dir, 1)[0])
	if err != nil {
		t.Fatalf("ReadFile shard: %v", err)
	}
	compA, err := d2.comp.Compress(d2.vol.CompressionLvl, a)
	if err != nil {
		t.Fatalf("Compress a: %v", err)
	}
	compB, err := d2.comp.Compress(d2.vol.CompressionLvl, b)
	if err != nil {
		t.Fatalf("Compress b: %v", err)
	}
	if len(shardData) != len(compA)+len(compB) {
		t.Fatalf("expected shard file to hold exactly the two compressed payloads (%d+%d=%d bytes), got %d",
			len(compA), len(compB), len(compA)+len(compB), len(shardData))
	}
}

// TestReadBoundaryBlockShape checks that a block on the far edge of a
// ragged volume reports a clipped shape and round trips correctly.
func TestReadBoundaryBlockShape(t *testing.T) {
	dir := t.TempDir()
	vol := VolumeDescriptor{
		X: 25, Y: 25, Z: 25,
		XBlockSize: 10, YBlockSize: 10, ZBlockSize: 10,
		DType:          Uint8,
		BlockFilenames: shardNames(dir, 2),
		Compression:    "zstd",
	}
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	bz, by, bx := d.GetBlockSize(20, 20, 20)
	if bz != 5 || by != 5 || bx != 5 {
		t.Fatalf("expected boundary shape (5,5,5), got (%d,%d,%d)", bz, by, bx)
	}
	payload := makeVoxels(int(bz*by*bx), 9)
	if err := d.WriteBlock(payload, 20, 20, 20); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := Open(filepath.Join(dir, "vol.blockfs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d2.Close()
	block, err := d2.ReadBlock(20, 20, 20)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if block.Shape != [3]int64{5, 5, 5} {
		t.Fatalf("expected shape (5,5,5), got %v", block.Shape)
	}
	if !bytes.Equal(block.Data, payload) {
		t.Fatalf("boundary block round trip mismatch")
	}
}

// TestWriteBlockRejectsMisalignedCoordinate checks that a write at a
// non-block-aligned coordinate is rejected before it reaches a worker.
func TestWriteBlockRejectsMisalignedCoordinate(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	err = d.WriteBlock(makeVoxels(1000, 0), 3, 0, 0)
	if err == nil {
		t.Fatal("expected error for misaligned write coordinate")
	}
	if _, ok := err.(*BoundsError); !ok {
		t.Fatalf("expected *BoundsError, got %T: %v", err, err)
	}
}

// TestWriteBlockRejectsWrongSize checks that a payload of the wrong
// length is rejected.
func TestWriteBlockRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	err = d.WriteBlock(makeVoxels(999, 0), 0, 0, 0)
	if err == nil {
		t.Fatal("expected error for wrong-sized block payload")
	}
}

// TestCreateFailsIfIndexExists checks the already-exists guard.
func TestCreateFailsIfIndexExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.blockfs")
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(path, vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d.Close()

	_, err = Create(path, vol)
	if err == nil {
		t.Fatal("expected error creating over an existing index file")
	}
}

// TestCloseIsIdempotent checks that a second Close is a no-op.
func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.WriteBlock(makeVoxels(1000, 1), 0, 0, 0); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

// TestOpenRejectsBadMagic checks that a file without the BlockFS magic
// header is rejected as a FormatError.
func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-blockfs")
	if err := os.WriteFile(path, []byte("not a blockfs index file......."), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected error opening a non-BlockFS file")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected *FormatError, got %T: %v", err, err)
	}
}
