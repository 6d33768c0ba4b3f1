package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
)

// HistoryRepo appends to and reads the student_bin_history audit table.
type HistoryRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewHistoryRepo constructs a HistoryRepo given a DB handle.
func NewHistoryRepo(db *sql.DB, d database.Dialect) *HistoryRepo { return &HistoryRepo{db: db, d: d} }

// InsertBulkTx appends history entries.  A zero CreatedAt is stamped
// with the current time.
func (r *HistoryRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	vals := make([][]any, 0, len(entries))
	for _, e := range entries {
		at := e.CreatedAt
		if at.IsZero() {
			at = now
		}
		vals = append(vals, []any{e.BinID, e.StudentID, e.ExamID, string(e.Action), at.UTC().Format(dbTimeLayout)})
	}
	return insertRows(ctx, tx, r.d,
		`INSERT INTO student_bin_history (bin_id, student_id, exam_id, action, created_at) VALUES `, vals)
}

// ListByExam returns the audit trail of an exam, oldest first.
func (r *HistoryRepo) ListByExam(ctx context.Context, examID uint64) ([]model.HistoryEntry, error) {
	const q = `SELECT id, bin_id, student_id, exam_id, action, created_at
	           FROM student_bin_history WHERE exam_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.HistoryEntry, 0)
	for rows.Next() {
		var (
			h      model.HistoryEntry
			action string
			at     sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.BinID, &h.StudentID, &h.ExamID, &action, &at); err != nil {
			return nil, err
		}
		h.Action = model.Action(action)
		h.CreatedAt = parseDBTime(at)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
