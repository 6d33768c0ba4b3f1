package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
)

// LedgerRepo manages the student_bins table: one row per seated
// student per exam.  Row ids grow with insertion order and are used
// as sequence ids.
type LedgerRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewLedgerRepo constructs a LedgerRepo given a DB handle.
func NewLedgerRepo(db *sql.DB, d database.Dialect) *LedgerRepo { return &LedgerRepo{db: db, d: d} }

// ListByExamTx returns the ledger rows of an exam in insertion order.
func (r *LedgerRepo) ListByExamTx(ctx context.Context, tx *sql.Tx, examID uint64) ([]model.Assignment, error) {
	const q = `SELECT id, bin_id, student_id, exam_id FROM student_bins WHERE exam_id = ? ORDER BY id ASC`
	rows, err := tx.QueryContext(ctx, r.d.Rebind(q), examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.SequenceID, &a.BinID, &a.StudentID, &a.ExamID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByBinTx returns how many students each bin holds for an exam,
// in a single grouped query.
func (r *LedgerRepo) CountByBinTx(ctx context.Context, tx *sql.Tx, examID uint64) (map[uint64]int, error) {
	const q = `SELECT bin_id, COUNT(*) FROM student_bins WHERE exam_id = ? GROUP BY bin_id`
	rows, err := tx.QueryContext(ctx, r.d.Rebind(q), examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]int{}
	for rows.Next() {
		var (
			binID uint64
			n     int
		)
		if err := rows.Scan(&binID, &n); err != nil {
			return nil, err
		}
		out[binID] = n
	}
	return out, rows.Err()
}

// InsertBulkTx appends ledger rows in slice order.
func (r *LedgerRepo) InsertBulkTx(ctx context.Context, tx *sql.Tx, rows []model.Assignment) error {
	if len(rows) == 0 {
		return nil
	}
	vals := make([][]any, 0, len(rows))
	for _, a := range rows {
		vals = append(vals, []any{a.BinID, a.StudentID, a.ExamID})
	}
	return insertRows(ctx, tx, r.d, `INSERT INTO student_bins (bin_id, student_id, exam_id) VALUES `, vals)
}

// DeleteByExamTx removes every ledger row of an exam and returns how
// many were deleted.
func (r *LedgerRepo) DeleteByExamTx(ctx context.Context, tx *sql.Tx, examID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, r.d.Rebind(`DELETE FROM student_bins WHERE exam_id = ?`), examID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
