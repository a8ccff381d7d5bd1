package blockfs

import (
	"bytes"
	"path/filepath"
	"testing"
)

// TestAssignDecomposesIntoBlocks checks that Assign over a
// two-block-wide region writes both blocks correctly.
func TestAssignDecomposesIntoBlocks(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	// region spans two blocks along X: [0,20) x [0,10) x [0,10)
	region := Region{X0: 0, Y0: 0, Z0: 0, X1: 20, Y1: 10, Z1: 10}
	data := makeVoxels(20*10*10, 3)
	if err := d.Assign(region, data); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	d2, err := Open(filepath.Join(dir, "vol.blockfs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d2.Close()

	left, err := d2.ReadBlock(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock left: %v", err)
	}
	right, err := d2.ReadBlock(10, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock right: %v", err)
	}

	// rebuild expected per-block bytes the same way copyBlockFromRegion
	// should have sliced them, and compare.
	wantLeft := make([]byte, 0, 1000)
	wantRight := make([]byte, 0, 1000)
	for z := 0; z < 10; z++ {
		for y := 0; y < 10; y++ {
			rowStart := (z*10+y)*20 + 0
			wantLeft = append(wantLeft, data[rowStart:rowStart+10]...)
			wantRight = append(wantRight, data[rowStart+10:rowStart+20]...)
		}
	}
	if !bytes.Equal(left.Data, wantLeft) {
		t.Error("left block mismatch")
	}
	if !bytes.Equal(right.Data, wantRight) {
		t.Error("right block mismatch")
	}
}

func TestAssignRejectsMisalignedRegion(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	region := Region{X0: 3, Y0: 0, Z0: 0, X1: 10, Y1: 10, Z1: 10}
	err = d.Assign(region, makeVoxels(7*10*10, 0))
	if err == nil {
		t.Fatal("expected error for non-block-aligned region origin")
	}
}

func TestAssignRejectsWrongDataLength(t *testing.T) {
	dir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(dir, 2))
	d, err := Create(filepath.Join(dir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer d.Close()

	region := Region{X0: 0, Y0: 0, Z0: 0, X1: 10, Y1: 10, Z1: 10}
	err = d.Assign(region, makeVoxels(10, 0))
	if err == nil {
		t.Fatal("expected error for undersized data buffer")
	}
}
