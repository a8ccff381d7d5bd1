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

// Options groups the tunables of StartWorkers. This plays the role the
// teacher's SettingsT struct (storage/settings.go) plays for the SQL
// engine: a single struct of named fields with documented defaults,
// rather than a pile of positional arguments. Unlike SettingsT this is
// per-store, not process-global — spec.md §5 requires no global mutable
// state so that independent stores can coexist in one process.
type Options struct {
	// QueueDepth caps each shard writer's inbound backlog. The memory
	// ceiling for queued-but-unwritten blocks is approximately
	// bx*by*bz*sizeof(T)*NumShards*QueueDepth.
	QueueDepth int
}

// DefaultOptions returns the Options StartWorkers uses when none is
// given explicitly.
func DefaultOptions() Options {
	return Options{QueueDepth: 10}
}
