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
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/jtolds/gls"

	"github.com/launix-de/blockfs/codec"
)

// writeRequest is one enqueued block payload awaiting compression and
// append to a shard file.
type writeRequest struct {
	payload   []byte
	dirOffset int64
}

// publication is emitted by a shard writer once a payload has been
// compressed and appended, for the index writer to record.
type publication struct {
	dirOffset  int64
	fileOffset int64
	byteCount  int64
}

// shardWriter is the single writer for one shard file (C2). It is the
// sole writer to its file for the lifetime of the store's workers, so no
// external locking against other writers is needed (spec.md §4.2).
type shardWriter struct {
	index   int
	path    string
	codec   codec.Codec
	level   int
	storeID uuid.UUID

	in       chan *writeRequest
	out      chan<- publication
	failures chan<- *WorkerFailure

	wg sync.WaitGroup
}

func newShardWriter(index int, path string, c codec.Codec, level, queueDepth int, storeID uuid.UUID) *shardWriter {
	return &shardWriter{
		index:   index,
		path:    path,
		codec:   c,
		level:   level,
		storeID: storeID,
		in:      make(chan *writeRequest, queueDepth),
	}
}

// start opens the shard file and spawns its worker goroutine. Spawned
// with gls.Go, matching the teacher's worker-spawn idiom
// (storage/compute.go, storage/partition.go) so a panic inside the
// worker still carries goroutine-local trace context.
func (s *shardWriter) start(out chan<- publication, failures chan<- *WorkerFailure) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return &IoError{"open shard", s.path, err}
	}
	position, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return &IoError{"seek shard", s.path, err}
	}

	s.out = out
	s.failures = failures
	s.wg.Add(1)
	gls.Go(func() {
		defer s.wg.Done()
		s.run(f, position)
	})
	return nil
}

// run is the shard writer's algorithm from spec.md §4.2: receive a
// payload, compress it, append it, publish (dirOffset, fileOffset,
// byteCount). A nil request is the shutdown sentinel.
//
// Each request runs under its own recover, the teacher's scanError
// pattern (storage/scan.go): a panic poisons this shard exactly like a
// compress or write error would, instead of taking down the whole
// process, and the loop keeps draining the queue.
func (s *shardWriter) run(f *os.File, position int64) {
	defer f.Close()
	poisoned := false
	for req := range s.in {
		if req == nil {
			return
		}
		if poisoned {
			continue // drain remaining queued work without writing
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					s.fail(fmt.Errorf("panic: %v", r), string(debug.Stack()))
					poisoned = true
				}
			}()

			compressed, err := s.codec.Compress(s.level, req.payload)
			if err != nil {
				s.fail(&CodecError{s.codec.Name(), "compress", err}, "")
				poisoned = true
				return
			}
			byteCount := int64(len(compressed))
			fileOffset := position

			if _, err := f.Write(compressed); err != nil {
				s.fail(&IoError{"write shard", s.path, err}, "")
				poisoned = true
				return
			}
			position += byteCount

			s.out <- publication{req.dirOffset, fileOffset, byteCount}
		}()
	}
}

func (s *shardWriter) fail(err error, stack string) {
	s.failures <- &WorkerFailure{StoreID: s.storeID, Shard: s.index, Err: err, Stack: stack}
}

// enqueue submits a block for compression and append. It blocks when
// the shard's inbound queue is at capacity (spec.md §5 suspension
// point).
func (s *shardWriter) enqueue(req *writeRequest) {
	s.in <- req
}

// shutdown sends the stop sentinel and waits for the worker to exit.
func (s *shardWriter) shutdown() {
	s.in <- nil
	s.wg.Wait()
}
