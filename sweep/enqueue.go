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

import (
	"context"
	"fmt"

	"github.com/launix-de/sweepcells/kv"
)

// enqueueGroup is every write from one transaction landing in the same
// (shard, strategy, fine partition) — the unit enqueue.go decides
// generic-vs-dedicated for.
type enqueueGroup struct {
	key   ShardAndStrategy
	fine  Timestamp
	start Timestamp
	rows  []WriteInfo
}

// Enqueue writes every entry in writes to its reference row or dedicated
// chain, per spec.md §4.3. The returned set names every (shard, strategy)
// touched, so a caller can know which iteration domains now have new work
// without re-deriving it from writes itself.
func (q *Queue) Enqueue(ctx context.Context, writes []WriteInfo) (map[ShardAndStrategy]struct{}, error) {
	if len(writes) == 0 {
		return map[ShardAndStrategy]struct{}{}, nil
	}

	groups := make(map[string]*enqueueGroup)
	var order []string
	for _, w := range writes {
		shard := q.part.Shard(w, q.numShards)
		fine := q.part.FinePartition(w)
		sas := ShardAndStrategy{Shard: shard, Strategy: w.Strategy}
		gk := fmt.Sprintf("%d/%d/%d/%d", shard, w.Strategy, fine, w.StartTimestamp)
		g, ok := groups[gk]
		if !ok {
			g = &enqueueGroup{key: sas, fine: fine, start: w.StartTimestamp}
			groups[gk] = g
			order = append(order, gk)
		}
		g.rows = append(g.rows, w)
	}

	touched := make(map[ShardAndStrategy]struct{}, len(groups))
	for _, gk := range order {
		g := groups[gk]
		if err := q.enqueueGroup(ctx, g); err != nil {
			return nil, err
		}
		touched[g.key] = struct{}{}
		q.metrics.EnqueuedWrites(g.key.Strategy, len(g.rows))
	}
	return touched, nil
}

func (q *Queue) enqueueGroup(ctx context.Context, g *enqueueGroup) error {
	meta := RowMetadata{
		Conservative: g.key.Strategy == Conservative,
		Shard:        g.key.Shard,
	}

	if len(g.rows) <= q.cfg.MaxCellsGeneric {
		return q.writeReferenceRow(ctx, g, meta, nil)
	}
	return q.writeDedicatedChain(ctx, g, meta)
}

// writeReferenceRow writes a reference row's columns: either the group's
// own writes (generic path) or, when pointer != nil, a single pointer
// column marking a dedicated chain (dedicated path).
func (q *Queue) writeReferenceRow(ctx context.Context, g *enqueueGroup, meta RowMetadata, pointer []byte) error {
	rowKey := EncodeRowKey(g.fine, meta)
	offset := uint64(g.start - q.cfg.FinePartitionStart(g.fine))

	cells := make(map[kv.CellRef][]byte, len(g.rows)+1)
	if pointer != nil {
		col := EncodeColumnKey(offset, pointerWriteIndex)
		cells[kv.CellRef{Row: string(rowKey), Column: string(col)}] = pointer
	} else {
		for i, w := range g.rows {
			col := EncodeColumnKey(offset, uint32(i))
			cells[kv.CellRef{Row: string(rowKey), Column: string(col)}] = EncodeWriteValue(w.TableRef, w.Cell, w.IsTombstone)
		}
	}
	return q.store.Put(ctx, q.table, cells, g.start)
}

// writeDedicatedChain allocates ceil(n/MaxCellsDedicated) dedicated rows
// anchored at the transaction's start timestamp, then writes a single
// pointer entry in the reference row naming the chain's length (see
// DESIGN.md's "Pointer cardinality" note for why this repository writes
// one pointer per transaction rather than one per chain row).
func (q *Queue) writeDedicatedChain(ctx context.Context, g *enqueueGroup, meta RowMetadata) error {
	dedMeta := meta
	dedMeta.Dedicated = true

	chainLen := (len(g.rows) + q.cfg.MaxCellsDedicated - 1) / q.cfg.MaxCellsDedicated
	for rowNum := 0; rowNum < chainLen; rowNum++ {
		dedMeta.DedicatedRowNumber = uint64(rowNum)
		rowKey := EncodeRowKey(g.start, dedMeta)

		lo := rowNum * q.cfg.MaxCellsDedicated
		hi := lo + q.cfg.MaxCellsDedicated
		if hi > len(g.rows) {
			hi = len(g.rows)
		}

		cells := make(map[kv.CellRef][]byte, hi-lo)
		for i := lo; i < hi; i++ {
			w := g.rows[i]
			col := EncodeColumnKey(0, uint32(i-lo))
			cells[kv.CellRef{Row: string(rowKey), Column: string(col)}] = EncodeWriteValue(w.TableRef, w.Cell, w.IsTombstone)
		}
		if err := q.store.Put(ctx, q.table, cells, g.start); err != nil {
			return err
		}
	}

	pointer := EncodePointerValue(0, uint32(chainLen))
	return q.writeReferenceRow(ctx, g, meta, pointer)
}
