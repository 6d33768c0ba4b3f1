package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
)

// CandidateRepo reads course registrations.
type CandidateRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewCandidateRepo constructs a CandidateRepo given a DB handle.
func NewCandidateRepo(db *sql.DB, d database.Dialect) *CandidateRepo {
	return &CandidateRepo{db: db, d: d}
}

// ListByCourseTx returns the students registered for a course of a
// program.  Rows come back in storage order (level, student id); the
// allocator re-sorts them with its own comparator.
func (r *CandidateRepo) ListByCourseTx(ctx context.Context, tx *sql.Tx, program, course string) ([]model.Candidate, error) {
	const q = `SELECT student_id, student_name, program, course, level
	           FROM registrations
	           WHERE program = ? AND course = ?
	           ORDER BY level ASC, student_id ASC`
	rows, err := tx.QueryContext(ctx, r.d.Rebind(q), strings.ToUpper(strings.TrimSpace(program)), course)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.StudentID, &c.StudentName, &c.Program, &c.Course, &c.Level); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create registers a student for a course.
func (r *CandidateRepo) Create(ctx context.Context, c model.Candidate) error {
	const q = `INSERT INTO registrations (student_id, student_name, program, course, level) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.d.Rebind(q), c.StudentID, c.StudentName,
		strings.ToUpper(strings.TrimSpace(c.Program)), c.Course, c.Level)
	return err
}
