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

// Package sweep implements SweepableCells, the cell table of a targeted
// sweep queue for a multi-version transactional key-value store.
//
// A background sweeper reclaims overwritten or aborted versions by
// consulting this queue instead of scanning user tables: every
// transactional write enqueues a small record keyed by shard, fine time
// partition and timestamp, and the sweeper later pulls batches scoped to
// one shard and a narrow timestamp window.
//
// Concurrency envelope
//
// Work is partitioned by (shard, strategy). At most one sweep consumer per
// domain runs concurrently — this package assumes that, it does not
// enforce it. Enqueues may run concurrently from arbitrary writers and
// domains. An enqueue that completes-before a read starts is visible to
// that read (read-your-writes on the underlying kv.Store). Enqueues
// concurrent with a read may or may not be observed, but any observed
// entry obeys the row/column layout invariants in codec.go. The
// transaction-table abort performed during a read (see read.go) is a
// compare-and-set; exactly one caller wins a race, and the others
// re-resolve against the winner's outcome rather than retrying the abort
// itself. No lock is held across a kv.Store call. Metric counters are
// monotonic and safe under concurrent increment.
//
// A cancelled read simply discards its in-memory accumulator; any
// user-cell deletes or transaction aborts it already issued stay durable
// and are semantically harmless, since a later retry would redo them.
package sweep
