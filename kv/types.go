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

// Timestamp mirrors sweep.Timestamp without importing package sweep (which
// imports kv, not the other way around).
type Timestamp = int64

// ColumnValue is one column of a row, as returned by a range scan.
type ColumnValue struct {
	Column []byte
	Value  []byte
}

// Row is one row of a range-scan result, columns sorted ascending by
// Column so a caller can resume a scan from the last column it saw.
type Row struct {
	Key     []byte
	Columns []ColumnValue
}

// RangeRequest describes a half-open [StartInclusive, EndExclusive) row-key
// range. A nil EndExclusive means unbounded above.
type RangeRequest struct {
	StartInclusive []byte
	EndExclusive   []byte
	// BatchSizeHint lets the caller cap how many rows a single GetRange
	// call may return before it must be resumed with a new StartInclusive;
	// 0 means no particular preference. kv/memkv and kv/pgkv ignore it and
	// always return the whole range.
	BatchSizeHint int
}

// TimestampedValue is one cell's value as it stood at or before a
// requested read timestamp.
type TimestampedValue struct {
	Value     []byte
	Timestamp Timestamp
}

// CellRef addresses one (row, column) pair within a table. Row and Column
// are strings rather than []byte specifically so CellRef stays comparable
// and usable as a map key (a []byte field would make the whole struct an
// illegal map key type) — the same reason sweep.Cell.key() encodes to a
// string instead of comparing byte slices directly.
type CellRef struct {
	Row    string
	Column string
}

// CheckAndSetRequest is a single-cell compare-and-set: write NewValue iff
// the cell's current value equals OldValue (nil OldValue means "cell must
// be absent").
type CheckAndSetRequest struct {
	Table    string
	Cell     CellRef
	OldValue []byte
	NewValue []byte
}
