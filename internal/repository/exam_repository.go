package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
	"github.com/iliyamo/exam-seating/internal/schedule"
)

// ExamRepo provides data access to the exams table.
type ExamRepo struct {
	db *sql.DB
	d  database.Dialect
}

// NewExamRepo returns a new ExamRepo bound to the given database.
func NewExamRepo(db *sql.DB, d database.Dialect) *ExamRepo { return &ExamRepo{db: db, d: d} }

// DB exposes the handle used for starting transactions.
func (r *ExamRepo) DB() *sql.DB { return r.db }

const examColumns = `id, year, semester, type, program, level, course_code, day, period, exam_date, assigned`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(s rowScanner) (model.Exam, error) {
	var (
		e        model.Exam
		assigned int
	)
	err := s.Scan(&e.ID, &e.Year, &e.Semester, &e.Type, &e.Program, &e.Level, &e.CourseCode,
		&e.Day, &e.Period, &e.Date, &assigned)
	e.Assigned = assigned != 0
	return e, err
}

// GetByID returns an exam or ErrExamNotFound.
func (r *ExamRepo) GetByID(ctx context.Context, id uint64) (model.Exam, error) {
	q := `SELECT ` + examColumns + ` FROM exams WHERE id = ?`
	e, err := scanExam(r.db.QueryRowContext(ctx, r.d.Rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, ErrExamNotFound
	}
	return e, err
}

// GetForUpdateTx loads an exam and locks its row until the transaction
// ends, serialising allocation runs on the same exam.
func (r *ExamRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Exam, error) {
	q := `SELECT ` + examColumns + ` FROM exams WHERE id = ?` + r.d.ForUpdate()
	e, err := scanExam(tx.QueryRowContext(ctx, r.d.Rebind(q), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Exam{}, ErrExamNotFound
	}
	return e, err
}

// SetAssignedTx updates the assigned flag of an exam.
func (r *ExamRepo) SetAssignedTx(ctx context.Context, tx *sql.Tx, id uint64, assigned bool) error {
	_, err := tx.ExecContext(ctx, r.d.Rebind(`UPDATE exams SET assigned = ? WHERE id = ?`), boolToInt(assigned), id)
	return err
}

// ExamFilter narrows List.  Zero values are ignored.
type ExamFilter struct {
	ExamID     uint64
	Program    string
	Level      string
	CourseCode string
	Day        string
	Period     string
	Date       string
	Type       string
	Assigned   *bool
}

// List returns the exams matching f in schedule order (day, period
// start, id).
func (r *ExamRepo) List(ctx context.Context, f ExamFilter) ([]model.Exam, error) {
	where := []string{}
	args := []any{}
	add := func(col, v string) {
		if v = strings.TrimSpace(v); v != "" {
			where = append(where, col+" = ?")
			args = append(args, v)
		}
	}
	if f.ExamID != 0 {
		where = append(where, "id = ?")
		args = append(args, f.ExamID)
	}
	add("program", strings.ToUpper(f.Program))
	add("level", f.Level)
	add("course_code", f.CourseCode)
	add("day", f.Day)
	add("period", f.Period)
	add("exam_date", f.Date)
	add("type", f.Type)
	if f.Assigned != nil {
		where = append(where, "assigned = ?")
		args = append(args, boolToInt(*f.Assigned))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(`SELECT `+examColumns+` FROM exams WHERE `+cond), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Exam, 0)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	schedule.Sort(out)
	return out, nil
}

// Create inserts an exam and returns its id.  A non-zero ID is kept.
func (r *ExamRepo) Create(ctx context.Context, e model.Exam) (uint64, error) {
	return insertWithID(ctx, r.db, r.d, "exams", e.ID,
		[]string{"year", "semester", "type", "program", "level", "course_code", "day", "period", "exam_date", "assigned"},
		[]any{e.Year, e.Semester, e.Type, strings.ToUpper(strings.TrimSpace(e.Program)), e.Level, e.CourseCode,
			e.Day, e.Period, e.Date, boolToInt(e.Assigned)})
}
