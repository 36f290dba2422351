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
)

// S6: dedicated chain cleanup.
func TestDeleteDedicatedRowsChainCleanup(t *testing.T) {
	q, _, _ := newTestQueue(t)
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
	sas := ShardAndStrategy{Shard: shard, Strategy: Conservative}
	fine := q.cfg.TsPartitionFine(1001)

	before, err := q.SnapshotRows(ctx, sas, fine)
	if err != nil {
		t.Fatalf("SnapshotRows: %v", err)
	}
	// 1 reference row (the pointer) + 3 dedicated chain rows.
	if len(before) != 4 {
		t.Fatalf("expected 4 rows before cleanup, got %d", len(before))
	}

	if err := q.DeleteDedicatedRows(ctx, sas, fine); err != nil {
		t.Fatalf("DeleteDedicatedRows: %v", err)
	}

	meta := RowMetadata{Conservative: true, Shard: shard, Dedicated: true}
	for rowNum := uint64(0); rowNum < 3; rowNum++ {
		meta.DedicatedRowNumber = rowNum
		rowKey := EncodeRowKey(1001, meta)
		cols, err := q.readRow(ctx, rowKey)
		if err != nil {
			t.Fatalf("readRow(dedicatedRowNumber=%d): %v", rowNum, err)
		}
		if cols != nil {
			t.Fatalf("expected dedicated row %d to be deleted, still has %d columns", rowNum, len(cols))
		}
	}

	// Idempotent: calling it again must not error, even with the
	// dedicated rows already gone.
	if err := q.DeleteDedicatedRows(ctx, sas, fine); err != nil {
		t.Fatalf("DeleteDedicatedRows (second call): %v", err)
	}
}

// Invariant 7: cleanup is idempotent end to end.
func TestCleanupIdempotent(t *testing.T) {
	q, _, _ := newTestQueue(t)
	ctx := context.Background()

	w := WriteInfo{TableRef: "tblC", Cell: cellFor(1), StartTimestamp: 1000}
	if _, err := q.Enqueue(ctx, []WriteInfo{w}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	shard := NewPartitioner(q.cfg).Shard(w, q.numShards)
	sas := ShardAndStrategy{Shard: shard, Strategy: Conservative}
	fine := q.cfg.TsPartitionFine(1000)

	runCleanup := func() {
		if err := q.DeleteDedicatedRows(ctx, sas, fine); err != nil {
			t.Fatalf("DeleteDedicatedRows: %v", err)
		}
		if err := q.DeleteNonDedicatedRow(ctx, sas, fine); err != nil {
			t.Fatalf("DeleteNonDedicatedRow: %v", err)
		}
	}

	runCleanup()
	afterFirst, err := q.SnapshotRows(ctx, sas, fine)
	if err != nil {
		t.Fatalf("SnapshotRows after first cleanup: %v", err)
	}
	if len(afterFirst) != 1 || afterFirst[0].Columns != nil {
		t.Fatalf("expected an empty reference row after cleanup, got %+v", afterFirst)
	}

	runCleanup()
	afterSecond, err := q.SnapshotRows(ctx, sas, fine)
	if err != nil {
		t.Fatalf("SnapshotRows after second cleanup: %v", err)
	}
	if len(afterSecond) != len(afterFirst) {
		t.Fatalf("cleanup is not idempotent: state differs after a second run")
	}
}
