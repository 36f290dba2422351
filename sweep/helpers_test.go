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
	"testing"

	"github.com/launix-de/sweepcells/kv/memkv"
)

func newMemStoreForTest(t *testing.T) *memkv.Store {
	t.Helper()
	return memkv.New()
}

// newMetricsQueue is newTestQueue but bound to a caller-supplied store and
// with a live AtomicMetrics so tests can assert on counters.
func newMetricsQueue(t *testing.T, store *memkv.Store) (*Queue, *memkv.Store, *memkv.TransactionTable, *AtomicMetrics) {
	t.Helper()
	txns := memkv.NewTransactionTable()
	metrics := NewAtomicMetrics()
	q, err := NewQueue(store, txns, DefaultConfig(), metrics)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q, store, txns, metrics
}
