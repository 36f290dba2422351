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

import "context"

// CommitState is the resolved outcome of one transaction's start
// timestamp, as read.go needs it.
type CommitState uint8

const (
	// Uncommitted: no commit timestamp recorded, and not yet provably
	// abortable in-band (another transaction may still be racing to
	// commit it).
	Uncommitted CommitState = iota
	// Committed: CommitTimestamp is the transaction's commit timestamp.
	Committed
	// Aborted: the transaction will never commit, either because it was
	// recorded as aborted already or because this read just won an
	// in-band CAS that recorded the abort.
	Aborted
)

func (s CommitState) String() string {
	switch s {
	case Committed:
		return "committed"
	case Aborted:
		return "aborted"
	default:
		return "uncommitted"
	}
}

// Resolution is the result of resolving one start timestamp.
type Resolution struct {
	State           CommitState
	CommitTimestamp Timestamp // meaningful only when State == Committed
}

// TransactionTable resolves start timestamps to commit outcomes and
// supports the in-band abort spec.md §4.4.6 requires: a reader that finds
// an unresolved, clearly-abandoned write may itself record that
// transaction as aborted via a conditional put, racing safely against the
// transaction's own committer.
type TransactionTable interface {
	// Resolve returns the current resolution for startTs. Never blocks
	// waiting for a racing commit to finish; returns Uncommitted instead.
	Resolve(ctx context.Context, startTs Timestamp) (Resolution, error)

	// TryAbort attempts to record startTs as aborted, succeeding only if
	// no commit timestamp is already recorded for it. Returns the
	// winning resolution regardless of whether this caller's attempt won
	// the race — a caller that loses still learns the true outcome.
	TryAbort(ctx context.Context, startTs Timestamp) (Resolution, error)
}
