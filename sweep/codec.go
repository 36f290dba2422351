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
	"encoding/binary"
	"fmt"
)

// RowMetadata is the fixed-width part of a sweep-queue row key that
// follows the 8-byte fine-partition-or-anchor-timestamp prefix.
//
// Layout (9 bytes, all big-endian so lexicographic byte order matches
// numeric order within each field):
//
//	byte 0:    flags — bit0 = conservative, bit1 = dedicated, bits 2-7 reserved (0)
//	bytes 1-3: shard, u24
//	bytes 4-8: dedicatedRowNumber, u40
//
// Widths were picked to comfortably exceed Config.MaxShards (bounded to
// 2^24 by this layout, see types.go) and to let a single transaction's
// dedicated chain run past a trillion rows before dedicatedRowNumber
// overflows — both figures the incumbent serializer this format descends
// from never documented precisely (spec.md §9 open question (a)); u24/u40
// is this repository's resolution, recorded in DESIGN.md.
type RowMetadata struct {
	Conservative       bool
	Dedicated          bool
	Shard              uint32 // must fit in 24 bits
	DedicatedRowNumber uint64 // must fit in 40 bits
}

const (
	metadataLen = 9
	rowKeyLen   = 8 + metadataLen

	flagConservative byte = 1 << 0
	flagDedicated    byte = 1 << 1

	shardMask   = 1<<24 - 1
	dedRowMask  = 1<<40 - 1
)

// persistToBytes is the pure encode side of the metadata codec.
func (m RowMetadata) persistToBytes() []byte {
	b := make([]byte, metadataLen)
	var flags byte
	if m.Conservative {
		flags |= flagConservative
	}
	if m.Dedicated {
		flags |= flagDedicated
	}
	b[0] = flags
	b[1] = byte(m.Shard >> 16)
	b[2] = byte(m.Shard >> 8)
	b[3] = byte(m.Shard)
	putUint40(b[4:9], m.DedicatedRowNumber)
	return b
}

// hydrateFromBytes is the pure decode side of the metadata codec.
func hydrateFromBytes(b []byte) (RowMetadata, error) {
	if len(b) != metadataLen {
		return RowMetadata{}, fmt.Errorf("%w: metadata is %d bytes, want %d", ErrCorruptRow, len(b), metadataLen)
	}
	flags := b[0]
	if flags&^(flagConservative|flagDedicated) != 0 {
		return RowMetadata{}, fmt.Errorf("%w: reserved metadata flag bits set: %08b", ErrCorruptRow, flags)
	}
	shard := uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ded := getUint40(b[4:9])
	return RowMetadata{
		Conservative:       flags&flagConservative != 0,
		Dedicated:          flags&flagDedicated != 0,
		Shard:              shard,
		DedicatedRowNumber: ded,
	}, nil
}

func putUint40(b []byte, v uint64) {
	_ = b[4]
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
}

func getUint40(b []byte) uint64 {
	_ = b[4]
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4])
}

// encodeTimestampPrefix order-preserving-encodes a signed timestamp into 8
// big-endian bytes: the sign bit is flipped so that two's-complement
// negative values sort before non-negative ones byte-lexicographically,
// matching how Config.InitialTimestamp (negative, by design — see
// types.go) must sort below every real, non-negative timestamp.
func encodeTimestampPrefix(ts Timestamp) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(ts)^(1<<63))
	return b
}

func decodeTimestampPrefix(b []byte) (Timestamp, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: timestamp prefix is %d bytes, want 8", ErrCorruptRow, len(b))
	}
	return Timestamp(binary.BigEndian.Uint64(b) ^ (1 << 63)), nil
}

// EncodeRowKey builds the opaque row key for either a reference row
// (anchorOrFinePartition = the fine partition number, metadata.Dedicated
// = false, metadata.DedicatedRowNumber = 0) or one row of a dedicated
// chain (anchorOrFinePartition = the anchoring transaction's start
// timestamp, metadata.Dedicated = true).
func EncodeRowKey(anchorOrFinePartition Timestamp, metadata RowMetadata) []byte {
	key := make([]byte, 0, rowKeyLen)
	key = append(key, encodeTimestampPrefix(anchorOrFinePartition)...)
	key = append(key, metadata.persistToBytes()...)
	return key
}

// DecodeRowKey is the inverse of EncodeRowKey; decode(encode(x)) == x.
func DecodeRowKey(key []byte) (Timestamp, RowMetadata, error) {
	if len(key) != rowKeyLen {
		return 0, RowMetadata{}, fmt.Errorf("%w: row key is %d bytes, want %d", ErrCorruptRow, len(key), rowKeyLen)
	}
	ts, err := decodeTimestampPrefix(key[:8])
	if err != nil {
		return 0, RowMetadata{}, err
	}
	meta, err := hydrateFromBytes(key[8:])
	if err != nil {
		return 0, RowMetadata{}, err
	}
	return ts, meta, nil
}

// nextRowKey returns the lexicographically smallest byte string strictly
// greater than every extension of key — used as the exclusive upper bound
// of a [key, nextRowKey(key)) range-delete/range-scan.
func nextRowKey(key []byte) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	// all 0xff: no finite successor: caller must treat this as unbounded
	return append(out, 0xff)
}

// columnKeyLen is (timestampOffsetWithinPartition u40, writeIndex u24).
const columnKeyLen = 5 + 3

// pointerWriteIndex is the reserved writeIndex sentinel marking a pointer
// entry rather than a cell write. It is the maximum representable u24, so
// it can never collide with a real writeIndex as long as a single
// transaction enqueues fewer than 2^24-1 non-dedicated cells — true by
// construction, since non-dedicated transactions are capped at
// Config.MaxCellsGeneric, which is always far smaller (see types.go).
const pointerWriteIndex uint32 = 1<<24 - 1

// EncodeColumnKey builds a non-dedicated cell's column key.
func EncodeColumnKey(timestampOffset uint64, writeIndex uint32) []byte {
	b := make([]byte, columnKeyLen)
	putUint40(b[0:5], timestampOffset)
	b[5] = byte(writeIndex >> 16)
	b[6] = byte(writeIndex >> 8)
	b[7] = byte(writeIndex)
	return b
}

// DecodeColumnKey is the inverse of EncodeColumnKey.
func DecodeColumnKey(b []byte) (timestampOffset uint64, writeIndex uint32, err error) {
	if len(b) != columnKeyLen {
		return 0, 0, fmt.Errorf("%w: column key is %d bytes, want %d", ErrCorruptRow, len(b), columnKeyLen)
	}
	timestampOffset = getUint40(b[0:5])
	writeIndex = uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7])
	return timestampOffset, writeIndex, nil
}

// Value encoding: a one-byte discriminator followed by a type-specific
// payload. Both payloads are pure length-prefixed encodings with no
// dependency on column/row position, so values round-trip independent of
// where they are stored.
const (
	valueKindWrite   byte = 0
	valueKindPointer byte = 1
)

// EncodeWriteValue encodes a (tableRef, cell, isTombstone) triplet.
func EncodeWriteValue(tableRef string, cell Cell, isTombstone bool) []byte {
	buf := make([]byte, 0, 1+len(tableRef)+len(cell.Row)+len(cell.Column)+16)
	buf = append(buf, valueKindWrite)
	buf = appendLenPrefixed(buf, []byte(tableRef))
	buf = appendLenPrefixed(buf, cell.Row)
	buf = appendLenPrefixed(buf, cell.Column)
	if isTombstone {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// DecodeWriteValue is the inverse of EncodeWriteValue.
func DecodeWriteValue(b []byte) (tableRef string, cell Cell, isTombstone bool, err error) {
	if len(b) == 0 || b[0] != valueKindWrite {
		return "", Cell{}, false, fmt.Errorf("%w: not a write value", ErrCorruptRow)
	}
	rest := b[1:]
	var tbl, row, col []byte
	if tbl, rest, err = readLenPrefixed(rest); err != nil {
		return "", Cell{}, false, err
	}
	if row, rest, err = readLenPrefixed(rest); err != nil {
		return "", Cell{}, false, err
	}
	if col, rest, err = readLenPrefixed(rest); err != nil {
		return "", Cell{}, false, err
	}
	if len(rest) != 1 {
		return "", Cell{}, false, fmt.Errorf("%w: write value missing tombstone flag", ErrCorruptRow)
	}
	return string(tbl), Cell{Row: row, Column: col}, rest[0] != 0, nil
}

// EncodePointerValue encodes the (dedicatedRowNumber, numDedicatedRows)
// pointer marker. Enqueue always writes a single pointer entry per
// transaction pointing at the head of its dedicated chain (see
// enqueue.go), so dedicatedRowNumber is always 0 in practice; it is still
// carried explicitly because spec.md §4.1 names it as part of the value.
func EncodePointerValue(dedicatedRowNumber uint32, numDedicatedRows uint32) []byte {
	buf := make([]byte, 9)
	buf[0] = valueKindPointer
	binary.BigEndian.PutUint32(buf[1:5], dedicatedRowNumber)
	binary.BigEndian.PutUint32(buf[5:9], numDedicatedRows)
	return buf
}

// DecodePointerValue is the inverse of EncodePointerValue.
func DecodePointerValue(b []byte) (dedicatedRowNumber uint32, numDedicatedRows uint32, err error) {
	if len(b) != 9 || b[0] != valueKindPointer {
		return 0, 0, fmt.Errorf("%w: not a pointer value", ErrCorruptRow)
	}
	return binary.BigEndian.Uint32(b[1:5]), binary.BigEndian.Uint32(b[5:9]), nil
}

// IsPointerValue reports whether an encoded value is a pointer marker,
// without fully decoding either variant.
func IsPointerValue(b []byte) bool {
	return len(b) > 0 && b[0] == valueKindPointer
}

func appendLenPrefixed(buf []byte, data []byte) []byte {
	var lb [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lb[:], uint64(len(data)))
	buf = append(buf, lb[:n]...)
	buf = append(buf, data...)
	return buf
}

func readLenPrefixed(b []byte) (data []byte, rest []byte, err error) {
	l, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: malformed length prefix", ErrCorruptRow)
	}
	b = b[n:]
	if uint64(len(b)) < l {
		return nil, nil, fmt.Errorf("%w: truncated value", ErrCorruptRow)
	}
	return b[:l], b[l:], nil
}
