package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/exam-seating/internal/database"
)

// maxRowsPerInsert bounds multi-row INSERT statements so the number of
// placeholders stays well under every engine's limit.
const maxRowsPerInsert = 500

// insertRows inserts rows with one multi-row statement per chunk.
// head is the statement up to and including VALUES; every row must
// carry the same number of values.
func insertRows(ctx context.Context, q queryer, d database.Dialect, head string, rows [][]any) error {
	for start := 0; start < len(rows); start += maxRowsPerInsert {
		end := start + maxRowsPerInsert
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(chunk[0])), ", ") + ")"

		var b strings.Builder
		b.WriteString(head)
		args := make([]any, 0, len(chunk)*len(chunk[0]))
		for i, row := range chunk {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(tuple)
			args = append(args, row...)
		}
		if _, err := q.ExecContext(ctx, d.Rebind(b.String()), args...); err != nil {
			return err
		}
	}
	return nil
}

// dbTimeLayout is how timestamps are written to DATETIME/TIMESTAMP columns.
const dbTimeLayout = "2006-01-02 15:04:05"

// parseDBTime converts a scanned timestamp column into UTC.  Drivers
// return either time.Time (converted to RFC 3339 by database/sql) or
// the stored text.
func parseDBTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	v := strings.TrimSpace(s.String)
	for _, layout := range []string{time.RFC3339Nano, dbTimeLayout, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// insertReturningID runs a single-row INSERT and returns the generated
// key.  lib/pq does not implement LastInsertId, so Postgres gets a
// RETURNING clause instead.
func insertReturningID(ctx context.Context, q queryer, d database.Dialect, query string, args ...any) (uint64, error) {
	if d == database.Postgres {
		var id uint64
		err := q.QueryRowContext(ctx, d.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// insertWithID inserts one row into table.  A zero id leaves the key to
// the engine; a non-zero id is written as is so fixtures can pin
// ordering.  It returns the row's id.
func insertWithID(ctx context.Context, q queryer, d database.Dialect, table string, id uint64, cols []string, vals []any) (uint64, error) {
	if id != 0 {
		cols = append([]string{"id"}, cols...)
		vals = append([]any{id}, vals...)
	}
	query := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	if id != 0 {
		if _, err := q.ExecContext(ctx, d.Rebind(query), vals...); err != nil {
			return 0, err
		}
		if stmt := syncSequenceQuery(d, table); stmt != "" {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return 0, err
			}
		}
		return id, nil
	}
	return insertReturningID(ctx, q, d, query, vals...)
}

// syncSequenceQuery moves a Postgres serial sequence past the largest
// stored id so later inserts without an explicit id do not collide.
// MySQL and SQLite advance their counters on explicit ids already.
func syncSequenceQuery(d database.Dialect, table string) string {
	if d != database.Postgres {
		return ""
	}
	return fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT MAX(id) FROM %s))", table, table)
}
