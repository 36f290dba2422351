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

import "testing"

func TestTsPartitionFine(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		ts   Timestamp
		want Timestamp
	}{
		{0, 0},
		{9999, 0},
		{10000, 1},
		{-1, -1},
		{-10000, -1},
		{-10001, -2},
	}
	for _, c := range cases {
		if got := cfg.TsPartitionFine(c.ts); got != c.want {
			t.Errorf("TsPartitionFine(%d) = %d, want %d", c.ts, got, c.want)
		}
	}
}

func TestFinePartitionStartEnd(t *testing.T) {
	cfg := DefaultConfig()
	start := cfg.FinePartitionStart(0)
	end := cfg.FinePartitionEnd(0)
	if start != 0 || end != 9999 {
		t.Fatalf("partition 0 = [%d,%d], want [0,9999]", start, end)
	}
	start = cfg.FinePartitionStart(1)
	end = cfg.FinePartitionEnd(1)
	if start != 10000 || end != 19999 {
		t.Fatalf("partition 1 = [%d,%d], want [10000,19999]", start, end)
	}
}

func TestShardDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	p := NewPartitioner(cfg)
	w := WriteInfo{TableRef: "tblC", Cell: Cell{Row: []byte("r"), Column: []byte("c")}, StartTimestamp: 1000}
	s1 := p.Shard(w, 256)
	s2 := p.Shard(w, 256)
	if s1 != s2 {
		t.Fatalf("Shard must be deterministic for a fixed numShards: got %d and %d", s1, s2)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate: %v", err)
	}
	bad := cfg
	bad.MaxCellsGeneric = bad.MaxCellsDedicated + 1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error when MaxCellsGeneric > MaxCellsDedicated")
	}
	bad = cfg
	bad.CoarsePartitionSize = cfg.FinePartitionSize + 1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error when coarse partition size is not a multiple of fine")
	}
}
