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
	"testing"

	"github.com/launix-de/sweepcells/kv"
	"github.com/launix-de/sweepcells/kv/memkv"
)

func newTestQueue(t *testing.T) (*Queue, *memkv.Store, *memkv.TransactionTable) {
	t.Helper()
	store := memkv.New()
	txns := memkv.NewTransactionTable()
	cfg := DefaultConfig()
	q, err := NewQueue(store, txns, cfg, nil)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q, store, txns
}

func cellFor(n int) Cell {
	return Cell{
		Row:    []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)},
		Column: []byte("col"),
	}
}

// A write routes to exactly the one strategy its table is configured
// under, never to both: enqueuing one Conservative and one Thorough write
// for the same shard/cell must produce one column in each strategy's
// reference row, not two.
func TestEnqueueRoutesToExactlyOneStrategy(t *testing.T) {
	q, store, _ := newTestQueue(t)
	ctx := context.Background()

	wc := WriteInfo{TableRef: "tblC", Cell: cellFor(1), StartTimestamp: 1000, Strategy: Conservative}
	wt := WriteInfo{TableRef: "tblC", Cell: cellFor(1), StartTimestamp: 1000, Strategy: Thorough}
	touched, err := q.Enqueue(ctx, []WriteInfo{wc, wt})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(touched) != 2 {
		t.Fatalf("expected both strategies' domains touched, got %d", len(touched))
	}

	for _, strategy := range []Strategy{Conservative, Thorough} {
		shard := NewPartitioner(q.cfg).Shard(wc, q.numShards)
		meta := RowMetadata{Conservative: strategy == Conservative, Shard: shard}
		rowKey := EncodeRowKey(0, meta)
		cur, err := store.GetRange(ctx, q.table, kv.RangeRequest{StartInclusive: rowKey, EndExclusive: nextRowKey(rowKey)})
		if err != nil {
			t.Fatalf("GetRange: %v", err)
		}
		row, ok, err := cur.Next(ctx)
		cur.Close()
		if err != nil || !ok {
			t.Fatalf("expected reference row for strategy %v, ok=%v err=%v", strategy, ok, err)
		}
		if len(row.Columns) != 1 {
			t.Fatalf("expected exactly 1 column in the %v reference row (no fan-out to the other strategy), got %d", strategy, len(row.Columns))
		}
	}
}

func TestEnqueueDedicatedChainCardinality(t *testing.T) {
	q, store, _ := newTestQueue(t)
	ctx := context.Background()

	n := 2*q.cfg.MaxCellsDedicated + 1
	writes := make([]WriteInfo, n)
	for i := 0; i < n; i++ {
		writes[i] = WriteInfo{TableRef: "tblC", Cell: cellFor(i), StartTimestamp: 1001}
	}
	if _, err := q.Enqueue(ctx, writes); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	shard := NewPartitioner(q.cfg).Shard(writes[0], q.numShards)
	meta := RowMetadata{Conservative: true, Shard: shard}
	refRow, err := q.readRow(ctx, EncodeRowKey(q.cfg.TsPartitionFine(1001), meta))
	if err != nil {
		t.Fatalf("readRow: %v", err)
	}
	if len(refRow) != 1 {
		t.Fatalf("expected exactly one pointer entry in the reference row, got %d", len(refRow))
	}
	_, writeIndex, err := DecodeColumnKey(refRow[0].Column)
	if err != nil || writeIndex != pointerWriteIndex {
		t.Fatalf("expected a pointer column, got writeIndex=%d err=%v", writeIndex, err)
	}
	_, numDed, err := DecodePointerValue(refRow[0].Value)
	if err != nil {
		t.Fatalf("DecodePointerValue: %v", err)
	}
	if numDed != 3 {
		t.Fatalf("expected 3 dedicated rows for 2*MAX_DED+1 cells, got %d", numDed)
	}
}
