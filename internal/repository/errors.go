// Package repository holds the SQL data access for exams, bins,
// registrations, the seating ledger and its history.  Queries are
// written with '?' placeholders and rebound for the configured
// dialect.  Methods with a Tx suffix run inside a caller-owned
// transaction; the caller commits or rolls back.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrExamNotFound is returned when an exam lookup matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrExamNotFound = errors.New("exam not found")

// ErrEmailExists is returned when creating a user with a taken email.
var ErrEmailExists = errors.New("email already exists")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isLockConflict reports whether err is the engine telling us another
// transaction holds the rows we need (lock wait timeout, deadlock,
// serialization failure, busy database).
func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1205 || me.Number == 1213
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		switch pe.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// isDuplicate reports whether err is a unique-constraint violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
