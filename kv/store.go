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

package kv

import (
	"context"
	"errors"
)

// ErrNotFound names a cell with no version at or below a requested
// timestamp. Store.Get does not return it: such a cell is left out of
// Get's result map instead.
var ErrNotFound = errors.New("kv: cell not found")

// ErrConflict is returned by CheckAndSet when OldValue did not match the
// cell's current value.
var ErrConflict = errors.New("kv: check-and-set conflict")

// Store is the transactional key-value interface package sweep is built
// against: every sweep-queue row read/write and every user-table cell
// delete goes through it. It is intentionally table-and-cell generic —
// sweep is one caller among many a real KVS would serve, and a production
// implementation is free to shard, replicate or cache however it likes
// behind this interface (spec.md §1 Non-goals: the KVS engine itself is
// out of scope here).
type Store interface {
	// Get reads one version per requested cell: the latest write at or
	// before the paired read timestamp. A cell with no qualifying version
	// is simply absent from the result map — callers that need to
	// distinguish "absent" from "not yet read" do so themselves.
	Get(ctx context.Context, table string, reads map[CellRef]Timestamp) (map[CellRef]TimestampedValue, error)

	// GetRange streams rows in key order over [req.StartInclusive,
	// req.EndExclusive). The returned Cursor must be closed by the caller.
	GetRange(ctx context.Context, table string, req RangeRequest) (Cursor, error)

	// Put writes each cell at the given timestamp, unconditionally.
	Put(ctx context.Context, table string, writes map[CellRef][]byte, ts Timestamp) error

	// Delete removes specific (cell, timestamp) versions — not a
	// tombstone write, an actual removal, matching spec.md §4.4.7's use
	// for retiring aborted or newly-aborted user-table versions.
	Delete(ctx context.Context, table string, versions map[CellRef][]Timestamp) error

	// DeleteRange removes every version of every cell whose row falls in
	// [req.StartInclusive, req.EndExclusive) — used to retire whole sweep
	// queue rows once a shard has advanced past them.
	DeleteRange(ctx context.Context, table string, req RangeRequest) error

	// CheckAndSet performs one single-cell compare-and-set. Returns
	// ErrConflict (wrapped) if OldValue did not match.
	CheckAndSet(ctx context.Context, req CheckAndSetRequest) error
}

// Cursor iterates rows returned by Store.GetRange.
type Cursor interface {
	// Next advances to the next row. Returns false (with nil error) once
	// exhausted.
	Next(ctx context.Context) (Row, bool, error)
	Close() error
}
