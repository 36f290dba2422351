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
)

// S1: single entry.
func TestGetBatchSingleEntry(t *testing.T) {
	q, _, txns := newTestQueue(t)
	ctx := context.Background()

	w := WriteInfo{TableRef: "tblC", Cell: cellFor(1), StartTimestamp: 1000}
	if _, err := q.Enqueue(ctx, []WriteInfo{w}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	txns.Commit(1000, 1050)

	shard := NewPartitioner(q.cfg).Shard(w, q.numShards)
	sas := ShardAndStrategy{Shard: shard, Strategy: Conservative}
	batch, err := q.GetBatchForPartition(ctx, sas, 0, 999, 1200, 1200)
	if err != nil {
		t.Fatalf("GetBatchForPartition: %v", err)
	}
	if len(batch.Writes) != 1 || !batch.Writes[0].Cell.Equal(w.Cell) || batch.Writes[0].StartTimestamp != 1000 {
		t.Fatalf("expected exactly the enqueued write, got %+v", batch.Writes)
	}
	if batch.LastSweptTimestamp != 1199 {
		t.Fatalf("lastSweptTimestamp = %d, want 1199", batch.LastSweptTimestamp)
	}
}

// S2: wrong shard.
func TestGetBatchWrongShard(t *testing.T) {
	q, _, txns := newTestQueue(t)
	ctx := context.Background()

	w := WriteInfo{TableRef: "tblC", Cell: cellFor(1), StartTimestamp: 1000}
	if _, err := q.Enqueue(ctx, []WriteInfo{w}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	txns.Commit(1000, 1050)

	shard := NewPartitioner(q.cfg).Shard(w, q.numShards)
	sas := ShardAndStrategy{Shard: shard + 1, Strategy: Conservative}
	batch, err := q.GetBatchForPartition(ctx, sas, 0, 999, 1200, 1200)
	if err != nil {
		t.Fatalf("GetBatchForPartition: %v", err)
	}
	if len(batch.Writes) != 0 {
		t.Fatalf("expected no writes from the wrong shard, got %+v", batch.Writes)
	}
	if batch.LastSweptTimestamp != 1199 {
		t.Fatalf("lastSweptTimestamp = %d, want 1199", batch.LastSweptTimestamp)
	}
}

// S3: aborted.
func TestGetBatchAborted(t *testing.T) {
	store := newMemStoreForTest(t)
	q, _, txns, metrics := newMetricsQueue(t, store)
	ctx := context.Background()

	cell := cellFor(1)
	w1000 := WriteInfo{TableRef: "tblC", Cell: cell, StartTimestamp: 1000}
	w1001 := WriteInfo{TableRef: "tblC", Cell: cell, StartTimestamp: 1001}
	if _, err := q.Enqueue(ctx, []WriteInfo{w1000, w1001}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	txns.Commit(1000, 1050)
	if _, err := txns.TryAbort(ctx, 1001); err != nil {
		t.Fatalf("TryAbort: %v", err)
	}

	userRef := kv.CellRef{Row: string(cell.Row), Column: string(cell.Column)}
	if err := store.Put(ctx, "tblC", map[kv.CellRef][]byte{userRef: []byte("v1001")}, 1001); err != nil {
		t.Fatalf("seed user table: %v", err)
	}

	shard := NewPartitioner(q.cfg).Shard(w1000, q.numShards)
	sas := ShardAndStrategy{Shard: shard, Strategy: Conservative}
	batch, err := q.GetBatchForPartition(ctx, sas, 0, 999, 1200, 1200)
	if err != nil {
		t.Fatalf("GetBatchForPartition: %v", err)
	}
	if len(batch.Writes) != 1 || batch.Writes[0].StartTimestamp != 1000 {
		t.Fatalf("expected only the committed write at 1000, got %+v", batch.Writes)
	}

	got, err := store.Get(ctx, "tblC", map[kv.CellRef]kv.Timestamp{userRef: 2000})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := got[userRef]; ok {
		t.Fatal("expected cellA@1001 to have been deleted from the user table")
	}

	if metrics.Snapshot().AbortedWritesDeleted[Conservative] != 1 {
		t.Fatalf("expected abortedWritesDeleted=1, got %d", metrics.Snapshot().AbortedWritesDeleted[Conservative])
	}
}

// S4: uncommitted -> aborted in band.
func TestGetBatchUncommittedBecomesAborted(t *testing.T) {
	store := newMemStoreForTest(t)
	q, _, txns, _ := newMetricsQueue(t, store)
	ctx := context.Background()

	cell := cellFor(1)
	w1000 := WriteInfo{TableRef: "tblC", Cell: cell, StartTimestamp: 1000}
	w1001 := WriteInfo{TableRef: "tblC", Cell: cell, StartTimestamp: 1001}
	if _, err := q.Enqueue(ctx, []WriteInfo{w1000, w1001}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	txns.Commit(1000, 1050)
	// 1001 is left uncommitted on purpose.

	userRef := kv.CellRef{Row: string(cell.Row), Column: string(cell.Column)}
	if err := store.Put(ctx, "tblC", map[kv.CellRef][]byte{userRef: []byte("v1001")}, 1001); err != nil {
		t.Fatalf("seed user table: %v", err)
	}

	shard := NewPartitioner(q.cfg).Shard(w1000, q.numShards)
	sas := ShardAndStrategy{Shard: shard, Strategy: Conservative}
	batch, err := q.GetBatchForPartition(ctx, sas, 0, 999, 1200, 1200)
	if err != nil {
		t.Fatalf("GetBatchForPartition: %v", err)
	}
	if len(batch.Writes) != 1 || batch.Writes[0].StartTimestamp != 1000 {
		t.Fatalf("expected only the committed write at 1000, got %+v", batch.Writes)
	}

	res, err := txns.Resolve(ctx, 1001)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.State != kv.Aborted {
		t.Fatalf("expected 1001 to now be aborted in the transaction table, got %v", res.State)
	}

	got, err := store.Get(ctx, "tblC", map[kv.CellRef]kv.Timestamp{userRef: 2000})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := got[userRef]; ok {
		t.Fatal("expected cellA@1001 to have been deleted from the user table")
	}
}

// S5: cutoff.
func TestGetBatchCutoff(t *testing.T) {
	q, _, txns := newTestQueue(t)
	q.numShards = 1
	ctx := context.Background()

	cellsPerTxn := 1 + q.cfg.SweepBatchSize/5 // 201
	var writes []WriteInfo
	for startTs := 0; startTs < 10; startTs++ {
		for i := 0; i < cellsPerTxn; i++ {
			writes = append(writes, WriteInfo{
				TableRef:       "tblC",
				Cell:           cellFor(startTs*10000 + i),
				StartTimestamp: Timestamp(startTs),
			})
		}
	}
	if _, err := q.Enqueue(ctx, writes); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	for startTs := 0; startTs < 10; startTs++ {
		txns.Commit(Timestamp(startTs), Timestamp(startTs)+1)
	}

	sas := ShardAndStrategy{Shard: 0, Strategy: Conservative}
	batch, err := q.GetBatchForPartition(ctx, sas, 0, -1, 1200, 1200)
	if err != nil {
		t.Fatalf("GetBatchForPartition: %v", err)
	}
	wantWrites := q.cfg.SweepBatchSize + 5
	if len(batch.Writes) != wantWrites {
		t.Fatalf("len(Writes) = %d, want %d", len(batch.Writes), wantWrites)
	}
	if batch.LastSweptTimestamp != 4 {
		t.Fatalf("lastSweptTimestamp = %d, want 4", batch.LastSweptTimestamp)
	}
}

// S7: latest-per-cell.
func TestGetBatchLatestPerCell(t *testing.T) {
	q, _, txns := newTestQueue(t)
	ctx := context.Background()

	cell := cellFor(1)
	for _, ts := range []Timestamp{998, 1002, 997, 1001} {
		w := WriteInfo{TableRef: "tblC", Cell: cell, StartTimestamp: ts}
		if _, err := q.Enqueue(ctx, []WriteInfo{w}); err != nil {
			t.Fatalf("Enqueue(%d): %v", ts, err)
		}
		txns.Commit(ts, ts+1)
	}

	shard := NewPartitioner(q.cfg).Shard(WriteInfo{TableRef: "tblC", Cell: cell}, q.numShards)
	sas := ShardAndStrategy{Shard: shard, Strategy: Conservative}

	batch, err := q.GetBatchForPartition(ctx, sas, q.cfg.TsPartitionFine(999), 997, 1000, 1000)
	if err != nil {
		t.Fatalf("GetBatchForPartition (997,1000]: %v", err)
	}
	if len(batch.Writes) != 1 || batch.Writes[0].StartTimestamp != 998 {
		t.Fatalf("expected only ts=998 to survive in (997,1000], got %+v", batch.Writes)
	}

	batch, err = q.GetBatchForPartition(ctx, sas, q.cfg.TsPartitionFine(999), 997, 1200, 1200)
	if err != nil {
		t.Fatalf("GetBatchForPartition (997,1200]: %v", err)
	}
	if len(batch.Writes) != 1 || batch.Writes[0].StartTimestamp != 1002 {
		t.Fatalf("expected only ts=1002 to survive in (997,1200], got %+v", batch.Writes)
	}
}
