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

// Package pgkv is a kv.Store and kv.TransactionTable backed by Postgres,
// for a sweepd deployment that wants its queue durable across restarts
// instead of the in-process kv/memkv. One physical table holds every
// logical table's cells, keyed by (table_name, row_key, column_key, ts).
package pgkv

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

const cellsSchema = `
CREATE TABLE IF NOT EXISTS %s (
	table_name  TEXT NOT NULL,
	row_key     BYTEA NOT NULL,
	column_key  BYTEA NOT NULL,
	ts          BIGINT NOT NULL,
	value       BYTEA NOT NULL,
	PRIMARY KEY (table_name, row_key, column_key, ts)
)
`

const cellsRowIndex = `
CREATE INDEX IF NOT EXISTS %s_row_idx ON %s (table_name, row_key, column_key)
`

// Store is a kv.Store backed by one Postgres table.
type Store struct {
	db        *sql.DB
	tableName string
}

// Open connects to dsn and ensures the backing schema exists. tableName
// names the physical table to use, so multiple Stores (e.g. separate
// sweep deployments) can share a database without colliding.
func Open(dsn string, tableName string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgkv: open: %w", err)
	}
	s := &Store{db: db, tableName: tableName}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(fmt.Sprintf(cellsSchema, s.tableName)); err != nil {
		return fmt.Errorf("pgkv: migrate cells table: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf(cellsRowIndex, s.tableName, s.tableName)); err != nil {
		return fmt.Errorf("pgkv: migrate row index: %w", err)
	}
	log.Printf("pgkv: schema ready on table %s", s.tableName)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
