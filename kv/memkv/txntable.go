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

package memkv

import (
	"context"
	"sync"

	"github.com/launix-de/NonLockingReadMap"

	"github.com/launix-de/sweepcells/kv"
)

// txnEntry is one row of the transaction table: a start timestamp and its
// resolved outcome.
type txnEntry struct {
	startTs kv.Timestamp
	state   kv.CommitState
	commit  kv.Timestamp
}

func (e txnEntry) GetKey() kv.Timestamp { return e.startTs }
func (e txnEntry) ComputeSize() uint    { return 32 }

// TransactionTable is the in-process kv.TransactionTable. Resolve is the
// hot path (called once per distinct start timestamp a read encounters)
// and goes through the lock-free map unguarded; Commit and TryAbort are
// rare by construction (one call per transaction lifetime, ever) and are
// serialized by mu so that a commit can never be clobbered by a racing
// in-band abort — NonLockingReadMap.Set always wins the CAS race at the
// slice level but, unlike a real compare-and-swap, always overwrites
// whatever was there, so a second guard is needed to keep "committed"
// from ever flipping to "aborted" (see DESIGN.md).
type TransactionTable struct {
	mu      sync.Mutex
	entries NonLockingReadMap.NonLockingReadMap[txnEntry, kv.Timestamp]
}

func NewTransactionTable() *TransactionTable {
	return &TransactionTable{entries: NonLockingReadMap.New[txnEntry, kv.Timestamp]()}
}

// Commit records startTs as committed at commitTs. Used by test setup and
// by whatever production commit path sits in front of this reference
// table. A no-op if startTs was already recorded as aborted — a
// transaction that lost an in-band abort race must never flip back to
// committed, the same guarantee TryAbort gives in the other direction.
func (t *TransactionTable) Commit(startTs, commitTs kv.Timestamp) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.entries.Get(startTs); e != nil && e.state == kv.Aborted {
		return
	}
	t.entries.Set(&txnEntry{startTs: startTs, state: kv.Committed, commit: commitTs})
}

func (t *TransactionTable) Resolve(ctx context.Context, startTs kv.Timestamp) (kv.Resolution, error) {
	e := t.entries.Get(startTs)
	if e == nil {
		return kv.Resolution{State: kv.Uncommitted}, nil
	}
	return kv.Resolution{State: e.state, CommitTimestamp: e.commit}, nil
}

func (t *TransactionTable) TryAbort(ctx context.Context, startTs kv.Timestamp) (kv.Resolution, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e := t.entries.Get(startTs); e != nil {
		return kv.Resolution{State: e.state, CommitTimestamp: e.commit}, nil
	}
	t.entries.Set(&txnEntry{startTs: startTs, state: kv.Aborted})
	return kv.Resolution{State: kv.Aborted}, nil
}
