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

// Package kv defines the two external interfaces the sweep package
// consumes — a transactional key-value store and a transaction/commit-
// timestamp table — and nothing else; the KVS engine itself, the
// transaction table's storage, and shard-progress persistence are all out
// of scope for package sweep (spec.md §1), but this repository still
// builds reference implementations of both interfaces, in kv/memkv
// (in-process, used by every sweep test) and kv/pgkv (Postgres-backed).
package kv
