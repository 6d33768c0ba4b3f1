package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/exam-seating/internal/allocator"
	"github.com/iliyamo/exam-seating/internal/database"
	"github.com/iliyamo/exam-seating/internal/model"
)

// AllocationStore implements allocator.Store on top of the SQL
// repositories.  Each unit of work runs in one *sql.Tx; the exam row is
// locked with SELECT ... FOR UPDATE so concurrent runs on the same exam
// queue behind each other while other exams proceed.
type AllocationStore struct {
	db         *sql.DB
	exams      *ExamRepo
	bins       *BinRepo
	candidates *CandidateRepo
	ledger     *LedgerRepo
	history    *HistoryRepo
}

// NewAllocationStore wires the repositories the allocator needs.
func NewAllocationStore(db *sql.DB, d database.Dialect) *AllocationStore {
	return &AllocationStore{
		db:         db,
		exams:      NewExamRepo(db, d),
		bins:       NewBinRepo(db, d),
		candidates: NewCandidateRepo(db, d),
		ledger:     NewLedgerRepo(db, d),
		history:    NewHistoryRepo(db, d),
	}
}

// WithinTx implements allocator.Store.
func (s *AllocationStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx allocator.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &allocationTx{s: s, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

// classify maps driver errors onto the allocator's error classes.
// Anything unrecognised is returned untouched and becomes a storage
// failure upstream.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrExamNotFound):
		return fmt.Errorf("%w: %w", allocator.ErrNotFound, err)
	case isLockConflict(err):
		return fmt.Errorf("%w: %w", allocator.ErrConflict, err)
	}
	return err
}

type allocationTx struct {
	s  *AllocationStore
	tx *sql.Tx
}

func (t *allocationTx) LockExam(ctx context.Context, examID uint64) (model.Exam, error) {
	e, err := t.s.exams.GetForUpdateTx(ctx, t.tx, examID)
	return e, classify(err)
}

func (t *allocationTx) ListBins(ctx context.Context, program, level string) ([]model.Bin, error) {
	b, err := t.s.bins.ListByScopeTx(ctx, t.tx, program, level)
	return b, classify(err)
}

func (t *allocationTx) ListCandidates(ctx context.Context, program, course string) ([]model.Candidate, error) {
	c, err := t.s.candidates.ListByCourseTx(ctx, t.tx, program, course)
	return c, classify(err)
}

func (t *allocationTx) ListLedger(ctx context.Context, examID uint64) ([]model.Assignment, error) {
	rows, err := t.s.ledger.ListByExamTx(ctx, t.tx, examID)
	return rows, classify(err)
}

func (t *allocationTx) CountLedgerByBin(ctx context.Context, examID uint64) (map[uint64]int, error) {
	m, err := t.s.ledger.CountByBinTx(ctx, t.tx, examID)
	return m, classify(err)
}

func (t *allocationTx) InsertAssignments(ctx context.Context, rows []model.Assignment) error {
	return classify(t.s.ledger.InsertBulkTx(ctx, t.tx, rows))
}

func (t *allocationTx) InsertHistory(ctx context.Context, entries []model.HistoryEntry) error {
	return classify(t.s.history.InsertBulkTx(ctx, t.tx, entries))
}

func (t *allocationTx) DeleteLedger(ctx context.Context, examID uint64) (int64, error) {
	n, err := t.s.ledger.DeleteByExamTx(ctx, t.tx, examID)
	return n, classify(err)
}

func (t *allocationTx) SetExamAssigned(ctx context.Context, examID uint64, assigned bool) error {
	return classify(t.s.exams.SetAssignedTx(ctx, t.tx, examID, assigned))
}
