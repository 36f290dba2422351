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

import "errors"

// Sentinel error kinds, matching spec.md §7. Wrap these with fmt.Errorf's
// %w so callers can errors.Is against them, the same way the teacher
// exports storage.ErrKeyNotFound as a plain sentinel rather than a custom
// error-code type.
var (
	// ErrInvalidArgument: the caller gave an inconsistent (finePartition,
	// window) pair. Failing synchronously, with no side effects.
	ErrInvalidArgument = errors.New("sweep: invalid argument")

	// ErrKvsTransient wraps a retriable failure from the underlying
	// kv.Store; the whole batch should be retried.
	ErrKvsTransient = errors.New("sweep: transient kvs failure")

	// ErrCasConflict names a compare-and-set that lost a race. For
	// shard-progress advances, an unchanged persisted value after re-read
	// should be treated as this; an advanced one is a success, not an
	// error. No function in this package returns it: the in-band abort in
	// read.go takes the winning resolution that TryAbort returns and
	// continues with it rather than retrying the CAS.
	ErrCasConflict = errors.New("sweep: compare-and-set conflict")

	// ErrCorruptRow marks an undecodable row key or value. Never silently
	// skipped.
	ErrCorruptRow = errors.New("sweep: corrupt row")

	// ErrPointerDangling marks a reference-row pointer entry whose
	// dedicated chain is partially or fully missing. See DESIGN.md for why
	// this fails loudly instead of treating the chain as empty.
	ErrPointerDangling = errors.New("sweep: pointer row missing")
)
