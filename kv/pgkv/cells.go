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
	"sort"

	"github.com/lib/pq"

	"github.com/launix-de/sweepcells/kv"
)

func (s *Store) Get(ctx context.Context, table string, reads map[kv.CellRef]kv.Timestamp) (map[kv.CellRef]kv.TimestampedValue, error) {
	query := fmt.Sprintf(`
		SELECT value, ts FROM %s
		WHERE table_name = $1 AND row_key = $2 AND column_key = $3 AND ts <= $4
		ORDER BY ts DESC LIMIT 1`, s.tableName)

	out := make(map[kv.CellRef]kv.TimestampedValue, len(reads))
	for ref, asOf := range reads {
		var value []byte
		var ts int64
		err := s.db.QueryRowContext(ctx, query, table, []byte(ref.Row), []byte(ref.Column), asOf).Scan(&value, &ts)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("pgkv: get: %w", err)
		}
		out[ref] = kv.TimestampedValue{Value: value, Timestamp: ts}
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, table string, writes map[kv.CellRef][]byte, ts kv.Timestamp) error {
	if len(writes) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (table_name, row_key, column_key, ts, value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (table_name, row_key, column_key, ts) DO UPDATE SET value = excluded.value`, s.tableName)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgkv: put: begin: %w", err)
	}
	for ref, value := range writes {
		if _, err := tx.ExecContext(ctx, query, table, []byte(ref.Row), []byte(ref.Column), ts, value); err != nil {
			tx.Rollback()
			return fmt.Errorf("pgkv: put: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgkv: put: commit: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, versions map[kv.CellRef][]kv.Timestamp) error {
	if len(versions) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE table_name = $1 AND row_key = $2 AND column_key = $3 AND ts = ANY($4)`, s.tableName)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgkv: delete: begin: %w", err)
	}
	for ref, tss := range versions {
		if _, err := tx.ExecContext(ctx, query, table, []byte(ref.Row), []byte(ref.Column), pq.Array(tss)); err != nil {
			tx.Rollback()
			return fmt.Errorf("pgkv: delete: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgkv: delete: commit: %w", err)
	}
	return nil
}

func (s *Store) DeleteRange(ctx context.Context, table string, req kv.RangeRequest) error {
	if req.EndExclusive == nil {
		query := fmt.Sprintf(`DELETE FROM %s WHERE table_name = $1 AND row_key >= $2`, s.tableName)
		_, err := s.db.ExecContext(ctx, query, table, req.StartInclusive)
		if err != nil {
			return fmt.Errorf("pgkv: deleteRange: %w", err)
		}
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE table_name = $1 AND row_key >= $2 AND row_key < $3`, s.tableName)
	_, err := s.db.ExecContext(ctx, query, table, req.StartInclusive, req.EndExclusive)
	if err != nil {
		return fmt.Errorf("pgkv: deleteRange: %w", err)
	}
	return nil
}

// CheckAndSet treats the target cell as a single mutable register, the
// same simplification kv/memkv makes — the columns this is used against
// (shard-progress cursors) are never also read through Get/Put, so
// collapsing their version history to one row is safe.
func (s *Store) CheckAndSet(ctx context.Context, req kv.CheckAndSetRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgkv: checkAndSet: begin: %w", err)
	}
	defer tx.Rollback()

	var current []byte
	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT value FROM %s WHERE table_name = $1 AND row_key = $2 AND column_key = $3 AND ts = 0
		FOR UPDATE`, s.tableName), req.Table, []byte(req.Cell.Row), []byte(req.Cell.Column)).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("pgkv: checkAndSet: read: %w", err)
	}

	if !bytesEqual(current, req.OldValue) {
		return fmt.Errorf("%w: cell %x/%x", kv.ErrConflict, req.Cell.Row, req.Cell.Column)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (table_name, row_key, column_key, ts, value)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (table_name, row_key, column_key, ts) DO UPDATE SET value = excluded.value`, s.tableName),
		req.Table, []byte(req.Cell.Row), []byte(req.Cell.Column), req.NewValue)
	if err != nil {
		return fmt.Errorf("pgkv: checkAndSet: write: %w", err)
	}
	return tx.Commit()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GetRange loads every row in [req.StartInclusive, req.EndExclusive),
// grouping columns by row client-side — simple and correct for the row
// counts a single sweep partition ever holds, at the cost of not
// streaming a truly unbounded range the way a cursor-based driver query
// could.
func (s *Store) GetRange(ctx context.Context, table string, req kv.RangeRequest) (kv.Cursor, error) {
	var rows *sql.Rows
	var err error
	if req.EndExclusive == nil {
		rows, err = s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT row_key, column_key, value FROM %s
			WHERE table_name = $1 AND row_key >= $2
			ORDER BY row_key, column_key`, s.tableName), table, req.StartInclusive)
	} else {
		rows, err = s.db.QueryContext(ctx, fmt.Sprintf(`
			SELECT row_key, column_key, value FROM %s
			WHERE table_name = $1 AND row_key >= $2 AND row_key < $3
			ORDER BY row_key, column_key`, s.tableName), table, req.StartInclusive, req.EndExclusive)
	}
	if err != nil {
		return nil, fmt.Errorf("pgkv: getRange: %w", err)
	}
	defer rows.Close()

	byRow := make(map[string]*kv.Row)
	var order []string
	for rows.Next() {
		var rowKey, colKey, value []byte
		if err := rows.Scan(&rowKey, &colKey, &value); err != nil {
			return nil, fmt.Errorf("pgkv: getRange: scan: %w", err)
		}
		k := string(rowKey)
		r, ok := byRow[k]
		if !ok {
			r = &kv.Row{Key: rowKey}
			byRow[k] = r
			order = append(order, k)
		}
		r.Columns = append(r.Columns, kv.ColumnValue{Column: colKey, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgkv: getRange: %w", err)
	}

	sort.Strings(order)
	out := make([]kv.Row, 0, len(order))
	for _, k := range order {
		out = append(out, *byRow[k])
	}
	return &cursor{rows: out}, nil
}

type cursor struct {
	rows []kv.Row
	pos  int
}

func (c *cursor) Next(ctx context.Context) (kv.Row, bool, error) {
	if c.pos >= len(c.rows) {
		return kv.Row{}, false, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true, nil
}

func (c *cursor) Close() error { return nil }
