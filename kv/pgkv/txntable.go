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

package pgkv

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/launix-de/sweepcells/kv"
)

const txnSchema = `
CREATE TABLE IF NOT EXISTS %s (
	start_ts  BIGINT PRIMARY KEY,
	state     SMALLINT NOT NULL,
	commit_ts BIGINT
)
`

// TransactionTable is a kv.TransactionTable backed by Postgres; startTs is
// the primary key, so the INSERT ... ON CONFLICT DO NOTHING used by
// TryAbort is itself the compare-and-set spec.md §4.4.4 calls for.
type TransactionTable struct {
	db        *sql.DB
	tableName string
}

func OpenTransactionTable(dsn string, tableName string) (*TransactionTable, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgkv: open transaction table: %w", err)
	}
	t := &TransactionTable{db: db, tableName: tableName}
	if _, err := db.Exec(fmt.Sprintf(txnSchema, tableName)); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgkv: migrate transaction table: %w", err)
	}
	return t, nil
}

func (t *TransactionTable) Close() error { return t.db.Close() }

// Commit records startTs as committed. Used by test setup / whatever
// commit path sits in front of this reference table.
func (t *TransactionTable) Commit(ctx context.Context, startTs, commitTs kv.Timestamp) error {
	_, err := t.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (start_ts, state, commit_ts) VALUES ($1, 1, $2)
		ON CONFLICT (start_ts) DO NOTHING`, t.tableName), startTs, commitTs)
	if err != nil {
		return fmt.Errorf("pgkv: commit: %w", err)
	}
	return nil
}

func (t *TransactionTable) Resolve(ctx context.Context, startTs kv.Timestamp) (kv.Resolution, error) {
	var state int
	var commitTs sql.NullInt64
	err := t.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT state, commit_ts FROM %s WHERE start_ts = $1`, t.tableName), startTs).Scan(&state, &commitTs)
	if err == sql.ErrNoRows {
		return kv.Resolution{State: kv.Uncommitted}, nil
	}
	if err != nil {
		return kv.Resolution{}, fmt.Errorf("pgkv: resolve: %w", err)
	}
	return kv.Resolution{State: kv.CommitState(state), CommitTimestamp: commitTs.Int64}, nil
}

func (t *TransactionTable) TryAbort(ctx context.Context, startTs kv.Timestamp) (kv.Resolution, error) {
	_, err := t.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (start_ts, state) VALUES ($1, 2)
		ON CONFLICT (start_ts) DO NOTHING`, t.tableName), startTs)
	if err != nil {
		return kv.Resolution{}, fmt.Errorf("pgkv: tryAbort: %w", err)
	}
	return t.Resolve(ctx, startTs)
}
