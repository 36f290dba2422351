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

// Package archive is the cold-archive step SPEC_FULL.md adds on top of
// spec.md's core: before a partition's dedicated overflow rows are
// deleted (sweep.Queue.DeleteDedicatedRows), a deployment that wants an
// audit trail of what a sweep actually discarded can archive a snapshot
// of those rows first. This is purely additive — sweep's own Clean up
// contract (idempotent deletes on (shardAndStrategy, finePartition)) is
// unchanged whether or not an archiver is wired in. Modeled on the
// teacher's pluggable PersistenceEngine/PersistenceFactory split
// (storage/persistence.go): a Factory names a backend, an Archiver does
// the actual writes for one sweep deployment.
package archive

import "context"

// Snapshot is the set of rows being retired from one cleanup call, bundled
// for a single archive write.
type Snapshot struct {
	Shard        uint32
	Strategy     string
	FinePartition int64
	Rows         []Row
}

// Row is one archived queue row: its key and raw column bytes, exactly as
// read from the kv.Store before deletion.
type Row struct {
	Key     []byte
	Columns map[string][]byte
}

// Archiver persists a Snapshot somewhere durable outside the live queue.
type Archiver interface {
	Archive(ctx context.Context, snap Snapshot) error
}

// Factory builds an Archiver for one named archive (mirroring
// PersistenceFactory.CreateDatabase's per-schema instantiation).
type Factory interface {
	CreateArchiver(name string) Archiver
}

// BackendRegistry maps a config-selected backend name to its Factory
// constructor, the same registration pattern persistence-ceph.go uses to
// stay optional behind a build tag.
var BackendRegistry = map[string]func(settings map[string]string) (Factory, error){}
