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
	"sort"

	"github.com/launix-de/sweepcells/kv"
)

// candidate is one queue entry after decoding, before commit-state
// resolution.
type candidate struct {
	startTs     Timestamp
	tableRef    string
	cell        Cell
	isTombstone bool
}

// pointerRef is a decoded pointer entry awaiting chain expansion.
type pointerRef struct {
	startTs          Timestamp
	numDedicatedRows uint32
}

// GetBatchForPartition implements spec.md §4.4: stream one partition's
// candidate entries for one (shard, strategy), resolve each distinct
// transaction's commit state (aborting uncommitted ones in band), delete
// the user-table versions of anything dead, reduce to latest-per-cell,
// apply the batch-size cutoff, and report how far the scan got.
func (q *Queue) GetBatchForPartition(ctx context.Context, sas ShardAndStrategy, finePartition Timestamp, minExclusive, maxExclusive, sweepTs Timestamp) (SweepBatch, error) {
	if err := q.validateWindow(finePartition, minExclusive, maxExclusive, sweepTs); err != nil {
		return SweepBatch{}, err
	}

	meta := RowMetadata{Conservative: sas.Strategy == Conservative, Shard: sas.Shard}
	refRow, err := q.readRow(ctx, EncodeRowKey(finePartition, meta))
	if err != nil {
		return SweepBatch{}, err
	}

	finePartitionStart := q.cfg.FinePartitionStart(finePartition)
	groups := make(map[Timestamp][]candidate)
	pointers := make(map[Timestamp]pointerRef)

	for _, col := range refRow {
		offset, writeIndex, err := DecodeColumnKey(col.Column)
		if err != nil {
			return SweepBatch{}, err
		}
		startTs := finePartitionStart + Timestamp(offset)
		if !(minExclusive < startTs && startTs < maxExclusive) {
			continue
		}
		if writeIndex == pointerWriteIndex {
			_, numDed, err := DecodePointerValue(col.Value)
			if err != nil {
				return SweepBatch{}, err
			}
			pointers[startTs] = pointerRef{startTs: startTs, numDedicatedRows: numDed}
			continue
		}
		tableRef, cell, isTombstone, err := DecodeWriteValue(col.Value)
		if err != nil {
			return SweepBatch{}, err
		}
		groups[startTs] = append(groups[startTs], candidate{startTs: startTs, tableRef: tableRef, cell: cell, isTombstone: isTombstone})
	}

	// Dedicated chains are not expanded here: a transaction's cells live
	// either inline in this row or behind its pointer, never both (§3), so
	// every startTs below is named by exactly one of groups/pointers.
	// Expansion happens lazily in the cutoff loop below, in ascending
	// startTs order, so a chain past the batch-size cutoff is never read.
	startTss := make([]Timestamp, 0, len(groups)+len(pointers))
	for ts := range groups {
		startTss = append(startTss, ts)
	}
	for ts := range pointers {
		if _, ok := groups[ts]; !ok {
			startTss = append(startTss, ts)
		}
	}
	sort.Slice(startTss, func(i, j int) bool { return startTss[i] < startTss[j] })

	resolved, err := q.resolveAll(ctx, startTss)
	if err != nil {
		return SweepBatch{}, err
	}

	var (
		entriesRead    int
		cutoffTriggered bool
		progressTs     Timestamp
		live           []candidate
		deletions      = make(map[string]map[kv.CellRef][]Timestamp)
		deletedCount   int
	)

	for _, ts := range startTss {
		group := groups[ts]
		if p, ok := pointers[ts]; ok {
			cells, err := q.readDedicatedChain(ctx, meta, p)
			if err != nil {
				return SweepBatch{}, err
			}
			group = cells
		}
		entriesRead += len(group)

		res := resolved[ts]
		switch res.State {
		case kv.Aborted:
			for _, c := range group {
				addDeletion(deletions, c)
				deletedCount++
			}
		case kv.Committed:
			if res.CommitTimestamp < maxExclusive {
				live = append(live, group...)
			}
			// else: commitTs >= maxExclusive, not yet visible; skipped, not deleted.
		default:
			// Uncommitted does not reach here: resolveAll sends every
			// startTs that Resolve reports as Uncommitted through TryAbort,
			// so every entry is either Committed or Aborted by this point.
			return SweepBatch{}, fmt.Errorf("sweep: unresolved start timestamp %d after in-band abort", ts)
		}

		if entriesRead > q.cfg.SweepBatchSize {
			cutoffTriggered = true
			progressTs = ts
			break
		}
	}

	q.metrics.EntriesRead(sas.Strategy, entriesRead)

	if deletedCount > 0 {
		for table, versions := range deletions {
			if err := q.store.Delete(ctx, table, versions); err != nil {
				return SweepBatch{}, fmt.Errorf("%w: %v", ErrKvsTransient, err)
			}
		}
		q.metrics.AbortedWritesDeleted(sas.Strategy, deletedCount)
	}

	writes := reduceLatestPerCell(live)

	partitionEnd := (finePartition+1)*q.cfg.FinePartitionSize - 1
	var lastSwept Timestamp
	if cutoffTriggered {
		lastSwept = progressTs
	} else {
		lastSwept = maxExclusive - 1
		if partitionEnd < lastSwept {
			lastSwept = partitionEnd
		}
	}

	return SweepBatch{Writes: writes, LastSweptTimestamp: lastSwept}, nil
}

func (q *Queue) validateWindow(finePartition, minExclusive, maxExclusive, sweepTs Timestamp) error {
	if minExclusive >= maxExclusive {
		return fmt.Errorf("%w: minExclusive %d must be < maxExclusive %d", ErrInvalidArgument, minExclusive, maxExclusive)
	}
	if maxExclusive > sweepTs {
		return fmt.Errorf("%w: maxExclusive %d exceeds sweepTs %d", ErrInvalidArgument, maxExclusive, sweepTs)
	}
	lo := q.cfg.TsPartitionFine(minExclusive + 1)
	hi := q.cfg.TsPartitionFine(maxExclusive - 1)
	if !(lo <= finePartition && finePartition <= hi) {
		return fmt.Errorf("%w: finePartition %d outside [%d,%d] implied by window (%d,%d]", ErrInvalidArgument, finePartition, lo, hi, minExclusive, maxExclusive)
	}
	return nil
}

// readRow fetches the single row at rowKey, returning its columns in
// ascending order, or nil if the row does not exist.
func (q *Queue) readRow(ctx context.Context, rowKey []byte) ([]kv.ColumnValue, error) {
	cur, err := q.store.GetRange(ctx, q.table, kv.RangeRequest{StartInclusive: rowKey, EndExclusive: nextRowKey(rowKey)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKvsTransient, err)
	}
	defer cur.Close()

	row, ok, err := cur.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKvsTransient, err)
	}
	if !ok {
		return nil, nil
	}
	return row.Columns, nil
}

func (q *Queue) readDedicatedChain(ctx context.Context, meta RowMetadata, p pointerRef) ([]candidate, error) {
	dedMeta := meta
	dedMeta.Dedicated = true

	var out []candidate
	for rowNum := uint32(0); rowNum < p.numDedicatedRows; rowNum++ {
		dedMeta.DedicatedRowNumber = uint64(rowNum)
		cols, err := q.readRow(ctx, EncodeRowKey(p.startTs, dedMeta))
		if err != nil {
			return nil, err
		}
		if cols == nil {
			return nil, fmt.Errorf("%w: dedicated row %d for startTs %d (shard %d)", ErrPointerDangling, rowNum, p.startTs, meta.Shard)
		}
		for _, col := range cols {
			tableRef, cell, isTombstone, err := DecodeWriteValue(col.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, candidate{startTs: p.startTs, tableRef: tableRef, cell: cell, isTombstone: isTombstone})
		}
	}
	return out, nil
}

// resolveAll resolves every distinct start timestamp, aborting in band any
// transaction the transaction table has no record of.
func (q *Queue) resolveAll(ctx context.Context, startTss []Timestamp) (map[Timestamp]kv.Resolution, error) {
	out := make(map[Timestamp]kv.Resolution, len(startTss))
	for _, ts := range startTss {
		res, err := q.txns.Resolve(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKvsTransient, err)
		}
		if res.State == kv.Uncommitted {
			res, err = q.txns.TryAbort(ctx, ts)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrKvsTransient, err)
			}
		}
		out[ts] = res
	}
	return out, nil
}

func addDeletion(deletions map[string]map[kv.CellRef][]Timestamp, c candidate) {
	byTable, ok := deletions[c.tableRef]
	if !ok {
		byTable = make(map[kv.CellRef][]Timestamp)
		deletions[c.tableRef] = byTable
	}
	ref := kv.CellRef{Row: string(c.cell.Row), Column: string(c.cell.Column)}
	byTable[ref] = append(byTable[ref], c.startTs)
}

// reduceLatestPerCell keeps, for each distinct (tableRef, cell), only the
// surviving entry with the greatest startTs.
func reduceLatestPerCell(live []candidate) []WriteInfo {
	latest := make(map[string]candidate, len(live))
	for _, c := range live {
		k := c.tableRef + "\x00" + c.cell.key()
		if cur, ok := latest[k]; !ok || c.startTs > cur.startTs {
			latest[k] = c
		}
	}
	out := make([]WriteInfo, 0, len(latest))
	for _, c := range latest {
		out = append(out, WriteInfo{TableRef: c.tableRef, Cell: c.cell, StartTimestamp: c.startTs, IsTombstone: c.isTombstone})
	}
	return out
}
