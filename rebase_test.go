package blockfs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestRebaseUpdatesBlockFilenames simulates an external tool copying an
// index file and its shards into a new directory, leaving the old
// BlockFilenames in place, then checks that Rebase repoints them and
// preserves every written block.
func TestRebaseUpdatesBlockFilenames(t *testing.T) {
	origDir := t.TempDir()
	vol := testVolumeDescriptor(shardNames(origDir, 2))
	d, err := Create(filepath.Join(origDir, "vol.blockfs"), vol)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := makeVoxels(1000, 4)
	if err := d.WriteBlock(payload, 0, 0, 0); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	newDir := t.TempDir()
	entries, err := os.ReadDir(origDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(origDir, e.Name()))
		if err != nil {
			t.Fatalf("ReadFile %s: %v", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(newDir, e.Name()), data, 0644); err != nil {
			t.Fatalf("WriteFile %s: %v", e.Name(), err)
		}
	}

	newIndexPath := filepath.Join(newDir, "vol.blockfs")
	if err := Rebase(newIndexPath, DefaultRebaseOptions()); err != nil {
		t.Fatalf("Rebase: %v", err)
	}

	d2, err := Open(newIndexPath)
	if err != nil {
		t.Fatalf("Open after rebase: %v", err)
	}
	defer d2.Close()
	for _, name := range d2.vol.BlockFilenames {
		resolved := d2.shardPath(name)
		if filepath.Dir(resolved) != newDir {
			t.Errorf("expected shard path %q to resolve under %q", resolved, newDir)
		}
	}

	block, err := d2.ReadBlock(0, 0, 0)
	if err != nil {
		t.Fatalf("ReadBlock after rebase: %v", err)
	}
	if !bytes.Equal(block.Data, payload) {
		t.Error("block contents changed across rebase")
	}
}
