package allocator

import (
	"context"

	"github.com/iliyamo/exam-seating/internal/model"
)

// Store runs allocation work inside one atomic unit.  WithinTx commits
// when fn returns nil and rolls back every write otherwise.
// Implementations must serialise concurrent units touching the same
// exam once LockExam has been called.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the read and write contracts the allocator needs.  All
// calls observe the writes made earlier in the same unit.
type Tx interface {
	// LockExam loads the exam and holds it exclusively until the unit
	// ends.  A missing exam yields an error matching ErrNotFound.
	LockExam(ctx context.Context, examID uint64) (model.Exam, error)
	// ListBins returns the bins for a program and level.
	ListBins(ctx context.Context, program, level string) ([]model.Bin, error)
	// ListCandidates returns the students registered for a course.
	ListCandidates(ctx context.Context, program, course string) ([]model.Candidate, error)
	// ListLedger returns the current assignments of an exam.
	ListLedger(ctx context.Context, examID uint64) ([]model.Assignment, error)
	// CountLedgerByBin returns the per-bin occupancy of an exam in one
	// read.  Bins without seated students are absent from the map.
	CountLedgerByBin(ctx context.Context, examID uint64) (map[uint64]int, error)
	// InsertAssignments appends ledger rows in slice order; sequence
	// ids grow in that order.
	InsertAssignments(ctx context.Context, rows []model.Assignment) error
	// InsertHistory appends audit entries.
	InsertHistory(ctx context.Context, entries []model.HistoryEntry) error
	// DeleteLedger removes every assignment of an exam.
	DeleteLedger(ctx context.Context, examID uint64) (int64, error)
	// SetExamAssigned updates the exam's assigned flag.
	SetExamAssigned(ctx context.Context, examID uint64, assigned bool) error
}
