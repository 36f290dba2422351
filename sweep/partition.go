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

import "hash/fnv"

// Partitioner maps a write to its shard and time partitions. Pure: no
// side effects, deterministic over (tableRef, cell, numShards).
type Partitioner struct {
	cfg Config
}

func NewPartitioner(cfg Config) Partitioner {
	return Partitioner{cfg: cfg}
}

// Shard computes shard(writeInfo) = stableHash(tableRef, cell) mod
// numShards, where numShards is the caller-supplied, currently configured
// shard count. Already-enqueued rows are never relocated when numShards
// later changes — the caller is responsible for reading numShards once
// per enqueue call (see enqueue.go) so a concurrent resize cannot split a
// single call across two shard counts.
func (p Partitioner) Shard(w WriteInfo, numShards uint32) uint32 {
	h := fnv.New64a()
	h.Write([]byte(w.TableRef))
	h.Write([]byte{0})
	h.Write(w.Cell.Row)
	h.Write([]byte{0})
	h.Write(w.Cell.Column)
	return uint32(h.Sum64() % uint64(numShards))
}

// FinePartition returns the fine partition a write's start timestamp
// falls into.
func (p Partitioner) FinePartition(w WriteInfo) Timestamp {
	return p.cfg.TsPartitionFine(w.StartTimestamp)
}

// CoarsePartition returns the coarse partition a write's start timestamp
// falls into — used only to prune scans at a higher level than this
// package implements (the iteration orchestrator, out of scope per
// spec.md §1).
func (p Partitioner) CoarsePartition(w WriteInfo) Timestamp {
	return p.cfg.TsPartitionCoarse(w.StartTimestamp)
}

// Classify computes the full (shard, finePartition, coarsePartition)
// tuple for one write against the given shard count.
func (p Partitioner) Classify(w WriteInfo, numShards uint32) (shard uint32, fine, coarse Timestamp) {
	return p.Shard(w, numShards), p.FinePartition(w), p.CoarsePartition(w)
}
