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

// DeleteNonDedicatedRow deletes the reference row for (shardAndStrategy,
// finePartition). Idempotent: deleting an already-empty range is a no-op.
//
// The caller is assumed to have already persisted shard progress past
// this partition's end (spec.md §4.5) — this package does not check that.
func (q *Queue) DeleteNonDedicatedRow(ctx context.Context, sas ShardAndStrategy, finePartition Timestamp) error {
	meta := RowMetadata{Conservative: sas.Strategy == Conservative, Shard: sas.Shard}
	rowKey := EncodeRowKey(finePartition, meta)
	if err := q.store.DeleteRange(ctx, q.table, kv.RangeRequest{StartInclusive: rowKey, EndExclusive: nextRowKey(rowKey)}); err != nil {
		return fmt.Errorf("%w: %v", ErrKvsTransient, err)
	}
	return nil
}

// SnapshotRows reads every row cleanup would delete for (shardAndStrategy,
// finePartition) — the reference row plus every dedicated chain it points
// at — without deleting anything. Callers that want an audit trail (see
// the archive package) call this before DeleteDedicatedRows/
// DeleteNonDedicatedRow.
func (q *Queue) SnapshotRows(ctx context.Context, sas ShardAndStrategy, finePartition Timestamp) ([]kv.Row, error) {
	meta := RowMetadata{Conservative: sas.Strategy == Conservative, Shard: sas.Shard}
	refRowKey := EncodeRowKey(finePartition, meta)
	refCols, err := q.readRow(ctx, refRowKey)
	if err != nil {
		return nil, err
	}
	rows := []kv.Row{{Key: refRowKey, Columns: refCols}}

	dedMeta := meta
	dedMeta.Dedicated = true
	for _, col := range refCols {
		_, writeIndex, err := DecodeColumnKey(col.Column)
		if err != nil {
			return nil, err
		}
		if writeIndex != pointerWriteIndex {
			continue
		}
		anchorTs, err := q.anchorFromPointerColumn(finePartition, col.Column)
		if err != nil {
			return nil, err
		}
		_, numDed, err := DecodePointerValue(col.Value)
		if err != nil {
			return nil, err
		}
		for n := uint64(0); n < uint64(numDed); n++ {
			rowKey := EncodeRowKey(anchorTs, rowMetaWithDedicatedRowNumber(dedMeta, n))
			cols, err := q.readRow(ctx, rowKey)
			if err != nil {
				return nil, err
			}
			rows = append(rows, kv.Row{Key: rowKey, Columns: cols})
		}
	}
	return rows, nil
}

// DeleteDedicatedRows enumerates every dedicated chain the reference row
// for (shardAndStrategy, finePartition) points at and deletes each chain's
// full row range. If the reference row has already been deleted (a prior
// cleanup pass ran DeleteNonDedicatedRow first), there is nothing left to
// enumerate and this is a no-op — callers should invoke this before
// DeleteNonDedicatedRow, not after.
func (q *Queue) DeleteDedicatedRows(ctx context.Context, sas ShardAndStrategy, finePartition Timestamp) error {
	meta := RowMetadata{Conservative: sas.Strategy == Conservative, Shard: sas.Shard}
	refRow, err := q.readRow(ctx, EncodeRowKey(finePartition, meta))
	if err != nil {
		return err
	}

	dedMeta := meta
	dedMeta.Dedicated = true

	for _, col := range refRow {
		_, writeIndex, err := DecodeColumnKey(col.Column)
		if err != nil {
			return err
		}
		if writeIndex != pointerWriteIndex {
			continue
		}
		anchorTs, err := q.anchorFromPointerColumn(finePartition, col.Column)
		if err != nil {
			return err
		}
		_, numDed, err := DecodePointerValue(col.Value)
		if err != nil {
			return err
		}
		if numDed == 0 {
			continue
		}
		first := EncodeRowKey(anchorTs, rowMetaWithDedicatedRowNumber(dedMeta, 0))
		last := EncodeRowKey(anchorTs, rowMetaWithDedicatedRowNumber(dedMeta, uint64(numDed-1)))
		if err := q.store.DeleteRange(ctx, q.table, kv.RangeRequest{StartInclusive: first, EndExclusive: nextRowKey(last)}); err != nil {
			return fmt.Errorf("%w: %v", ErrKvsTransient, err)
		}
	}
	return nil
}

func rowMetaWithDedicatedRowNumber(meta RowMetadata, n uint64) RowMetadata {
	meta.DedicatedRowNumber = n
	return meta
}

func (q *Queue) anchorFromPointerColumn(finePartition Timestamp, column []byte) (Timestamp, error) {
	offset, _, err := DecodeColumnKey(column)
	if err != nil {
		return 0, err
	}
	return q.cfg.FinePartitionStart(finePartition) + Timestamp(offset), nil
}
