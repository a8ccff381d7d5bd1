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
	"os"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/jtolds/gls"
)

// indexWriter is the single consumer of publication records from every
// shard writer (C3): a many-producer/one-consumer channel, per spec.md
// §4.4's worker ownership note. Consolidating index-file ownership in
// one actor avoids concurrent seeks on a shared descriptor and lets
// shard writers return to their next block immediately (spec.md §4.3).
//
// There is no explicit shutdown sentinel: the owning Directory closes
// the shared inbound channel once every shard writer has been joined,
// and run exits when the channel drains, mirroring the close(jobs)
// idiom the teacher uses to stop a worker pool (storage/partition.go).
type indexWriter struct {
	path      string
	indexBase int64
	codec     *entryCodec
	storeID   uuid.UUID

	in       <-chan publication
	failures chan<- *WorkerFailure

	wg sync.WaitGroup
}

func newIndexWriter(path string, indexBase int64, c *entryCodec, in <-chan publication, storeID uuid.UUID) *indexWriter {
	return &indexWriter{
		path:      path,
		indexBase: indexBase,
		codec:     c,
		storeID:   storeID,
		in:        in,
	}
}

func (w *indexWriter) start(failures chan<- *WorkerFailure) error {
	f, err := os.OpenFile(w.path, os.O_RDWR, 0644)
	if err != nil {
		return &IoError{"open index", w.path, err}
	}

	w.failures = failures
	w.wg.Add(1)
	gls.Go(func() {
		defer w.wg.Done()
		w.run(f)
	})
	return nil
}

// run implements spec.md §4.3: for each publication, compute
// index_base + dirOffset*entrySize and pwrite the packed entry there.
//
// Each publication runs under its own recover, the teacher's scanError
// pattern (storage/scan.go): entryCodec.encode panics if a shard
// produced an offset or size that overflows the derived bit widths, and
// that must poison the store rather than crash the process.
func (w *indexWriter) run(f *os.File) {
	defer f.Close()
	buf := make([]byte, w.codec.entrySize)
	for pub := range w.in {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.failures <- &WorkerFailure{StoreID: w.storeID, Shard: -1, Err: fmt.Errorf("panic: %v", r), Stack: string(debug.Stack())}
				}
			}()

			pos := w.indexBase + pub.dirOffset*int64(w.codec.entrySize)
			w.codec.encode(buf, uint64(pub.fileOffset), uint64(pub.byteCount))
			if _, err := f.WriteAt(buf, pos); err != nil {
				w.failures <- &WorkerFailure{StoreID: w.storeID, Shard: -1, Err: &IoError{"write index entry", w.path, err}}
			}
		}()
	}
}

// wait blocks until run has exited (the shared inbound channel was
// closed and drained).
func (w *indexWriter) wait() {
	w.wg.Wait()
}
