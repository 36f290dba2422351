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
	"bytes"
	"testing"
)

func TestRowMetadataRoundTrip(t *testing.T) {
	cases := []RowMetadata{
		{},
		{Conservative: true},
		{Dedicated: true},
		{Conservative: true, Dedicated: true, Shard: 1<<24 - 1, DedicatedRowNumber: 1<<40 - 1},
		{Shard: 42, DedicatedRowNumber: 100_001},
	}
	for _, meta := range cases {
		b := meta.persistToBytes()
		if len(b) != metadataLen {
			t.Fatalf("persistToBytes: got %d bytes, want %d", len(b), metadataLen)
		}
		got, err := hydrateFromBytes(b)
		if err != nil {
			t.Fatalf("hydrateFromBytes: %v", err)
		}
		if got != meta {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, meta)
		}
	}
}

func TestHydrateFromBytesRejectsReservedFlags(t *testing.T) {
	b := make([]byte, metadataLen)
	b[0] = 1 << 7
	if _, err := hydrateFromBytes(b); err == nil {
		t.Fatal("expected error for reserved flag bits")
	}
}

func TestRowKeyOrdering(t *testing.T) {
	// Two's-complement negative timestamps must sort below non-negative
	// ones after the sign-flip encoding, so InitialTimestamp (-1) always
	// sorts first.
	meta := RowMetadata{}
	neg := EncodeRowKey(-1, meta)
	zero := EncodeRowKey(0, meta)
	pos := EncodeRowKey(1000, meta)
	if bytes.Compare(neg, zero) >= 0 {
		t.Fatalf("expected EncodeRowKey(-1) < EncodeRowKey(0)")
	}
	if bytes.Compare(zero, pos) >= 0 {
		t.Fatalf("expected EncodeRowKey(0) < EncodeRowKey(1000)")
	}
}

func TestRowKeyRoundTrip(t *testing.T) {
	meta := RowMetadata{Conservative: true, Dedicated: true, Shard: 7, DedicatedRowNumber: 9}
	key := EncodeRowKey(12345, meta)
	ts, got, err := DecodeRowKey(key)
	if err != nil {
		t.Fatalf("DecodeRowKey: %v", err)
	}
	if ts != 12345 || got != meta {
		t.Fatalf("round trip mismatch: ts=%d meta=%+v", ts, got)
	}
}

func TestNextRowKey(t *testing.T) {
	key := []byte{0x01, 0x02, 0xff}
	next := nextRowKey(key)
	if bytes.Compare(next, key) <= 0 {
		t.Fatalf("nextRowKey must be strictly greater than key")
	}
	// every extension of key must sort below next
	ext := append(append([]byte{}, key...), 0x00, 0x01)
	if bytes.Compare(ext, next) >= 0 {
		t.Fatalf("nextRowKey must exceed every extension of key")
	}
}

func TestColumnKeyRoundTrip(t *testing.T) {
	col := EncodeColumnKey(12345, 17)
	offset, writeIndex, err := DecodeColumnKey(col)
	if err != nil {
		t.Fatalf("DecodeColumnKey: %v", err)
	}
	if offset != 12345 || writeIndex != 17 {
		t.Fatalf("round trip mismatch: offset=%d writeIndex=%d", offset, writeIndex)
	}
}

func TestWriteValueRoundTrip(t *testing.T) {
	cell := Cell{Row: []byte("row-a"), Column: []byte("col-b")}
	for _, tomb := range []bool{false, true} {
		b := EncodeWriteValue("tbl", cell, tomb)
		table, gotCell, gotTomb, err := DecodeWriteValue(b)
		if err != nil {
			t.Fatalf("DecodeWriteValue: %v", err)
		}
		if table != "tbl" || !gotCell.Equal(cell) || gotTomb != tomb {
			t.Fatalf("round trip mismatch: table=%s cell=%+v tomb=%v", table, gotCell, gotTomb)
		}
	}
}

func TestPointerValueRoundTrip(t *testing.T) {
	b := EncodePointerValue(0, 3)
	if !IsPointerValue(b) {
		t.Fatal("expected IsPointerValue to report true")
	}
	rowNum, numRows, err := DecodePointerValue(b)
	if err != nil {
		t.Fatalf("DecodePointerValue: %v", err)
	}
	if rowNum != 0 || numRows != 3 {
		t.Fatalf("round trip mismatch: rowNum=%d numRows=%d", rowNum, numRows)
	}
}

func TestDecodeWriteValueRejectsPointerBytes(t *testing.T) {
	b := EncodePointerValue(0, 1)
	if _, _, _, err := DecodeWriteValue(b); err == nil {
		t.Fatal("expected error decoding a pointer value as a write value")
	}
}
