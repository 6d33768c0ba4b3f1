package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates every table the service needs.  Safe to call
// multiple times; statements use IF NOT EXISTS.
func CreateSchema(db *sql.DB, d Dialect) error {
	for _, stmt := range schemaFor(d) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// column type tokens substituted per dialect
type types struct {
	pk, ref, text, ts string
}

func typesFor(d Dialect) types {
	switch d {
	case Postgres:
		return types{pk: "BIGSERIAL PRIMARY KEY", ref: "BIGINT", text: "VARCHAR(191)", ts: "TIMESTAMP"}
	case SQLite:
		return types{pk: "INTEGER PRIMARY KEY AUTOINCREMENT", ref: "INTEGER", text: "TEXT", ts: "DATETIME"}
	}
	return types{pk: "BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY", ref: "BIGINT UNSIGNED", text: "VARCHAR(191)", ts: "DATETIME"}
}

// table pairs a CREATE TABLE statement with its secondary index.
// MySQL has no CREATE INDEX IF NOT EXISTS, so there the index is
// declared inline through the {keys} token.
type table struct {
	ddl   string
	index string // "name (columns)"; empty when none
	on    string
}

var tables = []table{
	{ddl: `CREATE TABLE IF NOT EXISTS rooms (
		id {pk},
		name {text} NOT NULL,
		capacity INT NOT NULL DEFAULT 0,
		floor {text} NOT NULL DEFAULT ''{keys}
	)`},
	{ddl: `CREATE TABLE IF NOT EXISTS bins (
		id {pk},
		name {text} NOT NULL,
		room_id {ref} NOT NULL,
		program {text} NOT NULL,
		level {text} NOT NULL,
		capacity INT NOT NULL DEFAULT 0{keys}
	)`, on: "bins", index: "idx_bins_scope (program, level)"},
	{ddl: `CREATE TABLE IF NOT EXISTS exams (
		id {pk},
		year {text} NOT NULL DEFAULT '',
		semester {text} NOT NULL DEFAULT '',
		type {text} NOT NULL DEFAULT '',
		program {text} NOT NULL,
		level {text} NOT NULL,
		course_code {text} NOT NULL,
		day {text} NOT NULL DEFAULT '',
		period {text} NOT NULL DEFAULT '',
		exam_date {text} NOT NULL DEFAULT '',
		assigned INT NOT NULL DEFAULT 0{keys}
	)`},
	{ddl: `CREATE TABLE IF NOT EXISTS registrations (
		id {pk},
		student_id {text} NOT NULL,
		student_name {text} NOT NULL DEFAULT '',
		program {text} NOT NULL,
		course {text} NOT NULL,
		level {text} NOT NULL,
		UNIQUE (student_id, program, course){keys}
	)`, on: "registrations", index: "idx_registrations_scope (program, course)"},
	{ddl: `CREATE TABLE IF NOT EXISTS student_bins (
		id {pk},
		bin_id {ref} NOT NULL,
		student_id {text} NOT NULL,
		exam_id {ref} NOT NULL,
		UNIQUE (exam_id, student_id){keys}
	)`, on: "student_bins", index: "idx_student_bins_exam_bin (exam_id, bin_id)"},
	{ddl: `CREATE TABLE IF NOT EXISTS student_bin_history (
		id {pk},
		bin_id {ref} NOT NULL,
		student_id {text} NOT NULL,
		exam_id {ref} NOT NULL,
		action {text} NOT NULL,
		created_at {ts} NOT NULL{keys}
	)`, on: "student_bin_history", index: "idx_history_exam (exam_id)"},
	{ddl: `CREATE TABLE IF NOT EXISTS users (
		id {pk},
		email {text} NOT NULL UNIQUE,
		password_hash {text} NOT NULL,
		role {text} NOT NULL,
		is_active INT NOT NULL DEFAULT 1,
		created_at {ts} NOT NULL{keys}
	)`},
}

func schemaFor(d Dialect) []string {
	t := typesFor(d)
	var stmts, indexes []string
	for _, tb := range tables {
		keys := ""
		if tb.index != "" {
			if d == MySQL {
				keys = ",\n\t\tKEY " + tb.index
			} else {
				name, cols, _ := strings.Cut(tb.index, " ")
				indexes = append(indexes, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s %s", name, tb.on, cols))
			}
		}
		r := strings.NewReplacer("{pk}", t.pk, "{ref}", t.ref, "{text}", t.text, "{ts}", t.ts, "{keys}", keys)
		stmts = append(stmts, r.Replace(tb.ddl))
	}
	return append(stmts, indexes...)
}
