/*
Copyright (C) 2026  Carl-Philip Hänsch

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

package sweep

import "sync/atomic"

// Metrics receives the three counters spec.md §4.4.10 names. Transport
// (exporting these to whatever collects them) is out of scope for this
// package — see the sweepmetrics package for one concrete sampler/exporter.
type Metrics interface {
	// EnqueuedWrites is incremented by n at enqueue time, per strategy.
	EnqueuedWrites(strategy Strategy, n int)
	// EntriesRead is the raw count of queue entries a read touched,
	// before latest-per-cell reduction, per strategy.
	EntriesRead(strategy Strategy, n int)
	// AbortedWritesDeleted counts user-table versions deleted because
	// their write was aborted or newly-aborted-in-band, per strategy.
	AbortedWritesDeleted(strategy Strategy, n int)
}

// counters is a pair of atomic counters, one per Strategy, following the
// teacher's habit (scm/metrics.go) of single atomics on the hot path with
// no mutex.
type counters [2]int64

func (c *counters) add(s Strategy, n int) {
	atomic.AddInt64(&c[s], int64(n))
}

func (c *counters) load(s Strategy) int64 {
	return atomic.LoadInt64(&c[s])
}

// AtomicMetrics is the default in-process Metrics implementation: three
// pairs of monotonic atomic counters, safe under concurrent increment from
// many enqueues/reads across shards.
type AtomicMetrics struct {
	enqueued        counters
	entriesRead     counters
	abortedDeleted  counters
}

func NewAtomicMetrics() *AtomicMetrics {
	return &AtomicMetrics{}
}

func (m *AtomicMetrics) EnqueuedWrites(strategy Strategy, n int) { m.enqueued.add(strategy, n) }
func (m *AtomicMetrics) EntriesRead(strategy Strategy, n int)    { m.entriesRead.add(strategy, n) }
func (m *AtomicMetrics) AbortedWritesDeleted(strategy Strategy, n int) {
	m.abortedDeleted.add(strategy, n)
}

// Snapshot is a point-in-time read of all counters, independent of
// AtomicMetrics' internal representation — used by sweepmetrics to build a
// dashboard feed without holding a reference to the live counters.
type Snapshot struct {
	EnqueuedWrites        [2]int64
	EntriesRead           [2]int64
	AbortedWritesDeleted  [2]int64
}

func (m *AtomicMetrics) Snapshot() Snapshot {
	return Snapshot{
		EnqueuedWrites:       [2]int64{m.enqueued.load(Conservative), m.enqueued.load(Thorough)},
		EntriesRead:          [2]int64{m.entriesRead.load(Conservative), m.entriesRead.load(Thorough)},
		AbortedWritesDeleted: [2]int64{m.abortedDeleted.load(Conservative), m.abortedDeleted.load(Thorough)},
	}
}

// noopMetrics discards every counter; used when a caller passes a nil
// Metrics to NewQueue.
type noopMetrics struct{}

func (noopMetrics) EnqueuedWrites(Strategy, int)       {}
func (noopMetrics) EntriesRead(Strategy, int)          {}
func (noopMetrics) AbortedWritesDeleted(Strategy, int) {}
