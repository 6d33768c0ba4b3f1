package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
)

// RosterRepo builds read models over the seating ledger for printing
// and listing.
type RosterRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewRosterRepo constructs a RosterRepo given a DB handle.
func NewRosterRepo(db *sql.DB, d database.Dialect) *RosterRepo { return &RosterRepo{db: db, d: d} }

// ListByExam returns the seated students of an exam grouped per bin.
// Bins are ordered by id and students by seat order inside a bin.
// Student name and level come from the registration matching the
// exam's program and course.
func (r *RosterRepo) ListByExam(ctx context.Context, examID uint64) ([]model.BinRoster, error) {
	const q = `SELECT sb.id, sb.bin_id, b.name, COALESCE(rm.name, ''), COALESCE(rm.floor, ''), b.capacity,
	                  sb.student_id, COALESCE(rg.student_name, ''), COALESCE(rg.level, '')
	           FROM student_bins sb
	           JOIN exams e ON e.id = sb.exam_id
	           JOIN bins b ON b.id = sb.bin_id
	           LEFT JOIN rooms rm ON rm.id = b.room_id
	           LEFT JOIN registrations rg
	                  ON rg.student_id = sb.student_id AND rg.program = e.program AND rg.course = e.course_code
	           WHERE sb.exam_id = ?
	           ORDER BY sb.bin_id ASC, sb.id ASC`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BinRoster, 0)
	for rows.Next() {
		var (
			br model.BinRoster
			st model.RosterStudent
		)
		if err := rows.Scan(&st.SequenceID, &br.BinID, &br.BinName, &br.RoomName, &br.Floor, &br.Capacity,
			&st.StudentID, &st.StudentName, &st.Level); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].BinID != br.BinID {
			br.ExamID = examID
			out = append(out, br)
		}
		last := &out[len(out)-1]
		last.Students = append(last.Students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// BinsByExams returns, for each exam id, the bins that currently hold
// at least one of its students, ordered by bin id.
func (r *RosterRepo) BinsByExams(ctx context.Context, examIDs []uint64) (map[uint64][]model.Bin, error) {
	out := make(map[uint64][]model.Bin, len(examIDs))
	if len(examIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(examIDs))
	for _, id := range examIDs {
		args = append(args, id)
	}
	q := `SELECT DISTINCT sb.exam_id, b.id, b.name, b.room_id, COALESCE(rm.name, ''), b.program, b.level, b.capacity
	      FROM student_bins sb
	      JOIN bins b ON b.id = sb.bin_id
	      LEFT JOIN rooms rm ON rm.id = b.room_id
	      WHERE sb.exam_id IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ") + `)
	      ORDER BY sb.exam_id ASC, b.id ASC`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			examID uint64
			b      model.Bin
		)
		if err := rows.Scan(&examID, &b.ID, &b.Name, &b.RoomID, &b.RoomName, &b.Program, &b.Level, &b.Capacity); err != nil {
			return nil, err
		}
		out[examID] = append(out[examID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
