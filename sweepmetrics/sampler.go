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

package sweepmetrics

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/launix-de/sweepcells/sweep"
)

// Sample is one published point: the raw cumulative counters plus their
// per-second rate over the last rateBuckets seconds, per strategy.
type Sample struct {
	At time.Time `json:"at"`

	EnqueuedWrites       [2]int64 `json:"enqueued_writes"`
	EntriesRead          [2]int64 `json:"entries_read"`
	AbortedWritesDeleted [2]int64 `json:"aborted_writes_deleted"`

	EnqueuedWritesPerSec       [2]float64 `json:"enqueued_writes_per_sec"`
	EntriesReadPerSec          [2]float64 `json:"entries_read_per_sec"`
	AbortedWritesDeletedPerSec [2]float64 `json:"aborted_writes_deleted_per_sec"`
}

// rateBuckets is the width of the rolling rate window, one-second samples —
// the same 10-bucket RPS window scm/metrics.go keeps.
const rateBuckets = 10

// rateTracker holds the circular buffer of per-tick deltas for one
// Strategy-pair counter, mirroring scm/metrics.go's rpsBuf/rpsIdx handling.
type rateTracker struct {
	prev [2]int64
	buf  [2][rateBuckets]float64
	idx  int
}

func (t *rateTracker) tick(cur [2]int64) (rate [2]float64) {
	for s := 0; s < 2; s++ {
		delta := cur[s] - t.prev[s]
		t.prev[s] = cur[s]
		t.buf[s][t.idx%rateBuckets] = float64(delta)
	}
	t.idx++
	count := rateBuckets
	if t.idx < rateBuckets {
		count = t.idx
	}
	for s := 0; s < 2; s++ {
		sum := float64(0)
		for i := 0; i < count; i++ {
			sum += t.buf[s][i]
		}
		rate[s] = sum / float64(count)
	}
	return rate
}

// Sampler runs one background goroutine that samples a sweep.AtomicMetrics
// once a second and publishes the result via an atomically-swapped pointer,
// the same hot-path-free pattern currentSnapshot/loadSnapshot uses in
// scm/metrics.go.
type Sampler struct {
	source  *sweep.AtomicMetrics
	current unsafe.Pointer // *Sample

	subscribe chan chan Sample
	stop      chan struct{}
}

// NewSampler starts sampling source immediately; call Stop to end it.
func NewSampler(source *sweep.AtomicMetrics) *Sampler {
	s := &Sampler{
		source:    source,
		subscribe: make(chan chan Sample),
		stop:      make(chan struct{}),
	}
	zero := Sample{}
	atomic.StorePointer(&s.current, unsafe.Pointer(&zero))
	go s.run()
	return s
}

// Latest returns the most recently published Sample. Safe for concurrent
// use without any lock, same as scm/metrics.go's loadSnapshot.
func (s *Sampler) Latest() Sample {
	return *(*Sample)(atomic.LoadPointer(&s.current))
}

// Subscribe returns a channel that receives every future Sample as it is
// published, used by the websocket feed to push live updates. Buffered by
// 1 so a slow reader only ever misses intermediate ticks, never blocks the
// sampler.
func (s *Sampler) Subscribe() <-chan Sample {
	ch := make(chan Sample, 1)
	s.subscribe <- ch
	return ch
}

// Stop ends the sampling goroutine.
func (s *Sampler) Stop() {
	close(s.stop)
}

func (s *Sampler) run() {
	var enqTracker, readTracker, abortTracker rateTracker
	var subscribers []chan Sample

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case ch := <-s.subscribe:
			subscribers = append(subscribers, ch)
		case <-ticker.C:
			snap := s.source.Snapshot()
			sample := Sample{
				At:                         time.Now(),
				EnqueuedWrites:             snap.EnqueuedWrites,
				EntriesRead:                snap.EntriesRead,
				AbortedWritesDeleted:       snap.AbortedWritesDeleted,
				EnqueuedWritesPerSec:       enqTracker.tick(snap.EnqueuedWrites),
				EntriesReadPerSec:          readTracker.tick(snap.EntriesRead),
				AbortedWritesDeletedPerSec: abortTracker.tick(snap.AbortedWritesDeleted),
			}
			atomic.StorePointer(&s.current, unsafe.Pointer(&sample))

			live := subscribers[:0]
			for _, ch := range subscribers {
				select {
				case ch <- sample:
				default:
				}
				live = append(live, ch)
			}
			subscribers = live
		}
	}
}
