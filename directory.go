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
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/launix-de/blockfs/codec"
)

// Block is a dense 3-D buffer read from or written to the store. Shape
// is reported (z,y,x), slowest to fastest, matching the in-memory
// layout convention of spec.md §4.4. Data holds DType.Size()*Shape[0]*
// Shape[1]*Shape[2] bytes of little-endian voxel values, row-major with
// x fastest — BlockFS moves raw bytes, leaving numeric (un)marshaling to
// the caller, the same boundary idiomatic Go draws elsewhere in this
// codebase's binary I/O (e.g. the teacher's unsafe.Slice-based
// StorageInt serialization).
type Block struct {
	Shape [3]int64
	DType DType
	Data  []byte
}

// Directory is the store handle (C4): it owns the volume descriptor,
// address arithmetic, shard routing, the lifecycle of its shard writers
// and index writer, and the read path. Spec.md §5 requires no global
// mutable state, so every field needed to operate a store lives on this
// value; multiple independent Directories may coexist in one process.
type Directory struct {
	vol        VolumeDescriptor
	path       string
	dir        string // directory the index file lives in, for relative shard paths
	indexBase  int64
	entryCodec *entryCodec
	comp       codec.Codec
	id         uuid.UUID // stamped onto every WorkerFailure this store's workers report

	indexFile *os.File // read-only handle kept open for ReadBlock

	mu           sync.Mutex
	shardWriters []*shardWriter
	pubChan      chan publication
	indexW       *indexWriter
	failures     chan *WorkerFailure
	started      bool
	closed       bool

	poisonMu      sync.Mutex
	shardPoison   map[int]error
	indexerPoison error
}

// Create writes the initial index file for vol: the header, JSON
// metadata, and a zero-length directory table (spec.md §4.4). It does
// not create the shard files or preallocate directory entry space; the
// index file grows as the indexer writes entries, and shard files are
// created lazily by their writer on first use.
func Create(path string, vol VolumeDescriptor) (*Directory, error) {
	if err := validateNewVolume(&vol); err != nil {
		return nil, err
	}
	if len(vol.BlockFilenames) == 0 {
		vol.BlockFilenames = defaultShardNames(path, runtime.NumCPU())
	}
	vol.Version = CurrentVersion
	vol.deriveLayout()

	comp, err := codec.Get(vol.Compression)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, &FormatError{path, "index file already exists"}
		}
		return nil, &IoError{"create index", path, err}
	}
	indexBase, err := writeHeader(f, &vol)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, &IoError{"write header", path, err}
	}
	f.Close()

	rf, err := os.Open(path)
	if err != nil {
		return nil, &IoError{"open index for reading", path, err}
	}

	return &Directory{
		vol:         vol,
		path:        path,
		dir:         filepath.Dir(path),
		indexBase:   indexBase,
		entryCodec:  newEntryCodec(&vol),
		comp:        comp,
		id:          uuid.New(),
		indexFile:   rf,
		shardPoison: map[int]error{},
	}, nil
}

// Open reads and validates the header of an existing index file and
// returns a handle bound to it. Unknown JSON metadata fields are
// preserved verbatim in vol.Metadata.
func Open(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IoError{"open index", path, err}
	}
	vol, indexBase, err := readHeader(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	comp, err := codec.Get(vol.Compression)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Directory{
		vol:         *vol,
		path:        path,
		dir:         filepath.Dir(path),
		indexBase:   indexBase,
		entryCodec:  newEntryCodec(vol),
		comp:        comp,
		id:          uuid.New(),
		indexFile:   f,
		shardPoison: map[int]error{},
	}, nil
}

func validateNewVolume(vol *VolumeDescriptor) error {
	if !vol.DType.Valid() {
		return &FormatError{"", fmt.Sprintf("unknown DType %q", vol.DType)}
	}
	if vol.X <= 0 || vol.Y <= 0 || vol.Z <= 0 {
		return &FormatError{"", "volume extents must be positive"}
	}
	if vol.XBlockSize <= 0 || vol.YBlockSize <= 0 || vol.ZBlockSize <= 0 {
		return &FormatError{"", "block shape must be positive"}
	}
	if vol.Compression == "" {
		return &FormatError{"", "Compression is required"}
	}
	return nil
}

func defaultShardNames(indexPath string, n int) []string {
	if n < 1 {
		n = 1
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s.%d", indexPath, i)
	}
	return names
}

// shardPath resolves a shard filename against the index file's
// directory when it is relative, per spec.md §9 open question (a).
func (d *Directory) shardPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.dir, name)
}

// StartWorkers starts the NumShards shard writers and the index writer,
// if not already started. It is idempotent. opts.QueueDepth caps each
// shard writer's inbound backlog.
func (d *Directory) StartWorkers(opts Options) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}
	if opts.QueueDepth <= 0 {
		opts = DefaultOptions()
	}

	n := d.vol.NumShards()
	d.pubChan = make(chan publication, opts.QueueDepth*n+1)
	d.failures = make(chan *WorkerFailure, n+1)
	d.shardWriters = make([]*shardWriter, n)

	for i, name := range d.vol.BlockFilenames {
		sw := newShardWriter(i, d.shardPath(name), d.comp, d.vol.CompressionLvl, opts.QueueDepth, d.id)
		if err := sw.start(d.pubChan, d.failures); err != nil {
			return err
		}
		d.shardWriters[i] = sw
	}

	d.indexW = newIndexWriter(d.path, d.indexBase, d.entryCodec, d.pubChan, d.id)
	if err := d.indexW.start(d.failures); err != nil {
		return err
	}

	go d.monitorFailures()

	d.started = true
	return nil
}

// monitorFailures records every WorkerFailure reported by a shard
// writer or the index writer so that subsequent operations on the
// affected shard fail deterministically (spec.md §7: "worker failures
// poison the store").
func (d *Directory) monitorFailures() {
	for wf := range d.failures {
		d.poisonMu.Lock()
		if wf.Shard < 0 {
			if d.indexerPoison == nil {
				d.indexerPoison = wf
			}
		} else {
			if _, ok := d.shardPoison[wf.Shard]; !ok {
				d.shardPoison[wf.Shard] = wf
			}
		}
		d.poisonMu.Unlock()
	}
}

func (d *Directory) shardFailure(idx int) error {
	d.poisonMu.Lock()
	defer d.poisonMu.Unlock()
	if d.indexerPoison != nil {
		return d.indexerPoison
	}
	return d.shardPoison[idx]
}

// GetBlockSize returns the boundary-aware shape of the block at
// (x,y,z), in (z,y,x) order.
func (d *Directory) GetBlockSize(x, y, z int64) (bz, by, bx int64) {
	return d.vol.GetBlockSize(x, y, z)
}

func (d *Directory) blockByteLen(x, y, z int64) int64 {
	bz, by, bx := d.vol.GetBlockSize(x, y, z)
	sz, _ := d.vol.DType.Size()
	return bz * by * bx * int64(sz)
}

func (d *Directory) shardIndex(dirOffset int64) int {
	n := int64(d.vol.NumShards())
	return int(((dirOffset % n) + n) % n)
}

// WriteBlock enqueues block for compression and append to its shard.
// (x,y,z) must be block-aligned and block must have exactly
// GetBlockSize(x,y,z) bytes of DType-sized voxels. It returns before the
// write has reached disk; the write is only durable once the index
// writer has published the entry (observable via ReadBlock, guaranteed
// after Close).
func (d *Directory) WriteBlock(block []byte, x, y, z int64) error {
	if err := d.vol.checkAligned(x, y, z); err != nil {
		return err
	}
	want := d.blockByteLen(x, y, z)
	if int64(len(block)) != want {
		return &BoundsError{x, y, z, fmt.Sprintf("block has %d bytes, expected %d", len(block), want)}
	}

	d.mu.Lock()
	closed := d.closed
	started := d.started
	d.mu.Unlock()
	if closed {
		return &IoError{"write_block", d.path, fmt.Errorf("store is closed")}
	}
	if !started {
		if err := d.StartWorkers(DefaultOptions()); err != nil {
			return err
		}
	}

	dirOffset := d.vol.BlockOffset(x, y, z)
	idx := d.shardIndex(dirOffset)
	if err := d.shardFailure(idx); err != nil {
		return err
	}

	payload := make([]byte, len(block))
	copy(payload, block)
	d.shardWriters[idx].enqueue(&writeRequest{payload: payload, dirOffset: dirOffset})
	return nil
}

// ReadBlock reads the block at (x,y,z), decompressing it into a Block of
// the boundary-aware expected shape. A coordinate never written, or
// whose directory entry lies past the current end of the index file,
// yields an all-zero block rather than an error.
func (d *Directory) ReadBlock(x, y, z int64) (*Block, error) {
	if err := d.vol.checkAligned(x, y, z); err != nil {
		return nil, err
	}
	bz, by, bx := d.vol.GetBlockSize(x, y, z)
	want := d.blockByteLen(x, y, z)
	zeroBlock := func() *Block {
		return &Block{Shape: [3]int64{bz, by, bx}, DType: d.vol.DType, Data: make([]byte, want)}
	}

	dirOffset := d.vol.BlockOffset(x, y, z)
	idx := d.shardIndex(dirOffset)
	entrySize := int64(d.entryCodec.entrySize)
	pos := d.indexBase + dirOffset*entrySize

	info, err := d.indexFile.Stat()
	if err != nil {
		return nil, &IoError{"stat index", d.path, err}
	}
	if pos+entrySize > info.Size() {
		return zeroBlock(), nil
	}

	buf := make([]byte, entrySize)
	if _, err := d.indexFile.ReadAt(buf, pos); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return zeroBlock(), nil
		}
		return nil, &IoError{"read directory entry", d.path, err}
	}
	fileOffset, size := d.entryCodec.decode(buf)
	if size == 0 {
		return zeroBlock(), nil
	}

	shardPath := d.shardPath(d.vol.BlockFilenames[idx])
	sf, err := os.Open(shardPath)
	if err != nil {
		return nil, &IoError{"open shard", shardPath, err}
	}
	defer sf.Close()

	compressed := make([]byte, size)
	if _, err := sf.ReadAt(compressed, int64(fileOffset)); err != nil {
		return nil, &IoError{"read shard", shardPath, err}
	}

	raw, err := d.comp.Decompress(compressed)
	if err != nil {
		return nil, &CodecError{d.comp.Name(), "decompress", err}
	}
	if int64(len(raw)) != want {
		return nil, &CodecError{d.comp.Name(), "decompress", fmt.Errorf("decompressed %d bytes, expected %d", len(raw), want)}
	}

	return &Block{Shape: [3]int64{bz, by, bx}, DType: d.vol.DType, Data: raw}, nil
}

// Close drains and joins every shard writer, then the index writer, and
// closes the handle's index file. Idempotent. A closed handle stays
// closed: WriteBlock returns an error and ReadBlock fails on the closed
// index file, even if StartWorkers is called again.
func (d *Directory) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	started := d.started
	shardWriters := d.shardWriters
	pubChan := d.pubChan
	indexW := d.indexW
	failures := d.failures
	d.mu.Unlock()

	if started {
		for _, sw := range shardWriters {
			sw.shutdown()
		}
		close(pubChan)
		indexW.wait()
		close(failures)
	}

	if d.indexFile != nil {
		d.indexFile.Close()
	}

	d.poisonMu.Lock()
	defer d.poisonMu.Unlock()
	if d.indexerPoison != nil {
		return d.indexerPoison
	}
	for _, err := range d.shardPoison {
		return err
	}
	return nil
}

// Volume returns a copy of the store's volume descriptor.
func (d *Directory) Volume() VolumeDescriptor {
	return d.vol
}
