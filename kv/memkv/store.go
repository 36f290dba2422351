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

// Package memkv is an in-process kv.Store, built for sweep's own tests and
// for a standalone sweepd run with no external database configured. Rows
// are held in a github.com/google/btree ordered tree, the same structure
// storage/index.go uses for its delta layer in the teacher repository, so
// range scans stay in row-key order without a full sort on every read.
package memkv

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/launix-de/sweepcells/kv"
)

type version struct {
	ts    kv.Timestamp
	value []byte
}

type rowEntry struct {
	key   []byte
	cells map[string][]version // column (as string) -> versions sorted ascending by ts
}

func rowLess(a, b *rowEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

type table struct {
	mu   sync.RWMutex
	rows *btree.BTreeG[*rowEntry]
}

func newTable() *table {
	return &table{rows: btree.NewG[*rowEntry](32, rowLess)}
}

// Store is the in-process reference kv.Store.
type Store struct {
	mu     sync.Mutex
	tables map[string]*table
}

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

func (s *Store) table(name string) *table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		t = newTable()
		s.tables[name] = t
	}
	return t
}

func (s *Store) Get(ctx context.Context, tableName string, reads map[kv.CellRef]kv.Timestamp) (map[kv.CellRef]kv.TimestampedValue, error) {
	t := s.table(tableName)
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[kv.CellRef]kv.TimestampedValue, len(reads))
	for ref, asOf := range reads {
		row, ok := t.rows.Get(&rowEntry{key: []byte(ref.Row)})
		if !ok {
			continue
		}
		versions, ok := row.cells[ref.Column]
		if !ok {
			continue
		}
		if v, ok := latestAtOrBefore(versions, asOf); ok {
			out[ref] = kv.TimestampedValue{Value: v.value, Timestamp: v.ts}
		}
	}
	return out, nil
}

func latestAtOrBefore(versions []version, asOf kv.Timestamp) (version, bool) {
	// versions is sorted ascending by ts; find the rightmost entry with ts <= asOf.
	i := sort.Search(len(versions), func(i int) bool { return versions[i].ts > asOf })
	if i == 0 {
		return version{}, false
	}
	return versions[i-1], true
}

func (s *Store) Put(ctx context.Context, tableName string, writes map[kv.CellRef][]byte, ts kv.Timestamp) error {
	t := s.table(tableName)
	t.mu.Lock()
	defer t.mu.Unlock()

	for ref, value := range writes {
		row := t.getOrCreateRowLocked([]byte(ref.Row))
		col := ref.Column
		versions := row.cells[col]
		i := sort.Search(len(versions), func(i int) bool { return versions[i].ts >= ts })
		if i < len(versions) && versions[i].ts == ts {
			versions[i].value = value
		} else {
			versions = append(versions, version{})
			copy(versions[i+1:], versions[i:])
			versions[i] = version{ts: ts, value: value}
		}
		row.cells[col] = versions
	}
	return nil
}

func (t *table) getOrCreateRowLocked(rowKey []byte) *rowEntry {
	if row, ok := t.rows.Get(&rowEntry{key: rowKey}); ok {
		return row
	}
	row := &rowEntry{key: append([]byte(nil), rowKey...), cells: make(map[string][]version)}
	t.rows.ReplaceOrInsert(row)
	return row
}

func (s *Store) Delete(ctx context.Context, tableName string, versionsToDelete map[kv.CellRef][]kv.Timestamp) error {
	t := s.table(tableName)
	t.mu.Lock()
	defer t.mu.Unlock()

	for ref, tss := range versionsToDelete {
		row, ok := t.rows.Get(&rowEntry{key: []byte(ref.Row)})
		if !ok {
			continue
		}
		col := ref.Column
		kill := make(map[kv.Timestamp]bool, len(tss))
		for _, ts := range tss {
			kill[ts] = true
		}
		remaining := make([]version, 0, len(row.cells[col]))
		for _, v := range row.cells[col] {
			if !kill[v.ts] {
				remaining = append(remaining, v)
			}
		}
		if len(remaining) == 0 {
			delete(row.cells, col)
		} else {
			row.cells[col] = remaining
		}
		if len(row.cells) == 0 {
			t.rows.Delete(row)
		}
	}
	return nil
}

func (s *Store) DeleteRange(ctx context.Context, tableName string, req kv.RangeRequest) error {
	t := s.table(tableName)
	t.mu.Lock()
	defer t.mu.Unlock()

	var toDelete []*rowEntry
	t.rows.AscendRange(&rowEntry{key: req.StartInclusive}, rangeEnd(req), func(row *rowEntry) bool {
		toDelete = append(toDelete, row)
		return true
	})
	for _, row := range toDelete {
		t.rows.Delete(row)
	}
	return nil
}

func rangeEnd(req kv.RangeRequest) *rowEntry {
	if req.EndExclusive == nil {
		return &rowEntry{key: bytes.Repeat([]byte{0xff}, 20)}
	}
	return &rowEntry{key: req.EndExclusive}
}

func (s *Store) GetRange(ctx context.Context, tableName string, req kv.RangeRequest) (kv.Cursor, error) {
	t := s.table(tableName)
	t.mu.RLock()
	var rows []kv.Row
	t.rows.AscendRange(&rowEntry{key: req.StartInclusive}, rangeEnd(req), func(re *rowEntry) bool {
		cols := make([]kv.ColumnValue, 0, len(re.cells))
		for col, versions := range re.cells {
			if len(versions) == 0 {
				continue
			}
			latest := versions[len(versions)-1]
			cols = append(cols, kv.ColumnValue{Column: []byte(col), Value: latest.value})
		}
		sort.Slice(cols, func(i, j int) bool { return bytes.Compare(cols[i].Column, cols[j].Column) < 0 })
		rows = append(rows, kv.Row{Key: append([]byte(nil), re.key...), Columns: cols})
		return true
	})
	t.mu.RUnlock()
	return &sliceCursor{rows: rows}, nil
}

type sliceCursor struct {
	rows []kv.Row
	pos  int
}

func (c *sliceCursor) Next(ctx context.Context) (kv.Row, bool, error) {
	if c.pos >= len(c.rows) {
		return kv.Row{}, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *sliceCursor) Close() error { return nil }

// CheckAndSet treats the target cell as a single mutable register (no
// version history) — the in-memory store's columns used for conditional
// writes (shard-progress cursors) are never also read through Get/Put, so
// there is no multi-version history to reconcile against.
func (s *Store) CheckAndSet(ctx context.Context, req kv.CheckAndSetRequest) error {
	t := s.table(req.Table)
	t.mu.Lock()
	defer t.mu.Unlock()

	row := t.getOrCreateRowLocked([]byte(req.Cell.Row))
	col := req.Cell.Column
	versions := row.cells[col]

	var current []byte
	if len(versions) > 0 {
		current = versions[len(versions)-1].value
	}
	if !bytes.Equal(current, req.OldValue) {
		return fmt.Errorf("%w: cell %x/%x", kv.ErrConflict, req.Cell.Row, req.Cell.Column)
	}
	row.cells[col] = []version{{ts: 0, value: req.NewValue}}
	return nil
}
