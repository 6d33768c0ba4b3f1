// Package allocator seats registered students into capacity-bounded
// bins for an exam.  It owns the write path to the seating ledger and
// its history; storage is reached only through the Store interface.
//
// The policy is deterministic greedy: bins are filled in ascending id
// order and candidates are consumed in (level, student id) order.
// Reassign continues from the bin that received the most recent seat
// and wraps around to the first bin.
package allocator

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/exam-seating/internal/model"
)

// AssignResult reports a full allocation run.
type AssignResult struct {
	Seated int `json:"assigned"`
	Total  int `json:"total"`
}

// ReassignResult reports an incremental run.  StartedFromBin is zero
// when there were no new candidates to seat.
type ReassignResult struct {
	NewlySeated    int    `json:"new_assigned"`
	NewTotal       int    `json:"new_total"`
	StartedFromBin uint64 `json:"started_from_bin,omitempty"`
}

// UnassignResult reports a rollback run.
type UnassignResult struct {
	Removed int `json:"unassigned"`
}

// Allocator runs the three allocation operations against a Store.
type Allocator struct {
	store Store
	now   func() time.Time
}

// Option customises an Allocator.
type Option func(*Allocator)

// WithClock sets the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// New returns an Allocator bound to store.
func New(store Store, opts ...Option) *Allocator {
	if store == nil {
		panic("nil store passed to allocator.New")
	}
	a := &Allocator{store: store, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assign seats every registered candidate of the exam's course into
// the bins of the exam's program and level.  It refuses to run when
// the exam already has seated students.
func (a *Allocator) Assign(ctx context.Context, examID uint64) (AssignResult, error) {
	var res AssignResult
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		sc, err := loadScope(ctx, tx, examID)
		if err != nil {
			return err
		}
		ledger, err := tx.ListLedger(ctx, examID)
		if err != nil {
			return storageErr("list ledger", err)
		}
		if len(ledger) > 0 {
			return fmt.Errorf("%w: exam %d already has %d seated students", ErrInvalidState, examID, len(ledger))
		}

		p := newPlan(examID, model.ActionAssigned, a.now())
		next := 0
		for _, b := range sc.bins {
			next = p.fill(b.ID, b.Capacity, sc.candidates, next)
			if next >= len(sc.candidates) {
				break
			}
		}
		if err := p.write(ctx, tx); err != nil {
			return err
		}
		if len(p.rows) > 0 {
			if err := tx.SetExamAssigned(ctx, examID, true); err != nil {
				return storageErr("set exam assigned", err)
			}
		}
		res = AssignResult{Seated: len(p.rows), Total: len(sc.candidates)}
		return nil
	})
	if err != nil {
		return AssignResult{}, storageErr("assign", err)
	}
	return res, nil
}

// Reassign seats only candidates that are not yet in the ledger.  Fill
// starts at the bin that received the most recent seat, runs to the
// last bin and then wraps around to the bins before it.  Free capacity
// is derived from the persisted ledger, never from a cached value.
func (a *Allocator) Reassign(ctx context.Context, examID uint64) (ReassignResult, error) {
	var res ReassignResult
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		sc, err := loadScope(ctx, tx, examID)
		if err != nil {
			return err
		}
		ledger, err := tx.ListLedger(ctx, examID)
		if err != nil {
			return storageErr("list ledger", err)
		}

		seated := make(map[string]struct{}, len(ledger))
		for _, row := range ledger {
			seated[row.StudentID] = struct{}{}
		}
		fresh := make([]model.Candidate, 0, len(sc.candidates))
		for _, c := range sc.candidates {
			if _, ok := seated[c.StudentID]; !ok {
				fresh = append(fresh, c)
			}
		}
		if len(fresh) == 0 {
			res = ReassignResult{}
			return nil
		}

		start := 0
		if last, ok := lastUsedBin(ledger); ok {
			for i, b := range sc.bins {
				if b.ID == last {
					start = i
					break
				}
			}
		}

		used, err := tx.CountLedgerByBin(ctx, examID)
		if err != nil {
			return storageErr("count ledger", err)
		}

		p := newPlan(examID, model.ActionReassigned, a.now())
		next := 0
		for step := 0; step < len(sc.bins) && next < len(fresh); step++ {
			b := sc.bins[(start+step)%len(sc.bins)]
			free := b.Capacity - used[b.ID]
			if free <= 0 {
				continue
			}
			before := next
			next = p.fill(b.ID, free, fresh, next)
			used[b.ID] += next - before
		}
		if err := p.write(ctx, tx); err != nil {
			return err
		}
		if len(p.rows) > 0 {
			if err := tx.SetExamAssigned(ctx, examID, true); err != nil {
				return storageErr("set exam assigned", err)
			}
		}
		res = ReassignResult{
			NewlySeated:    len(p.rows),
			NewTotal:       len(fresh),
			StartedFromBin: sc.bins[start].ID,
		}
		return nil
	})
	if err != nil {
		return ReassignResult{}, storageErr("reassign", err)
	}
	return res, nil
}

// Unassign removes every seat of the exam, recording one UNASSIGNED
// history entry per removed seat.  An exam without seats is left
// untouched and reports zero.
func (a *Allocator) Unassign(ctx context.Context, examID uint64) (UnassignResult, error) {
	var res UnassignResult
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.LockExam(ctx, examID); err != nil {
			return storageErr("load exam", err)
		}
		ledger, err := tx.ListLedger(ctx, examID)
		if err != nil {
			return storageErr("list ledger", err)
		}
		if len(ledger) == 0 {
			res = UnassignResult{}
			return nil
		}
		at := a.now().UTC()
		entries := make([]model.HistoryEntry, 0, len(ledger))
		for _, row := range ledger {
			entries = append(entries, model.HistoryEntry{
				BinID:     row.BinID,
				StudentID: row.StudentID,
				ExamID:    examID,
				Action:    model.ActionUnassigned,
				CreatedAt: at,
			})
		}
		if err := tx.InsertHistory(ctx, entries); err != nil {
			return storageErr("insert history", err)
		}
		if _, err := tx.DeleteLedger(ctx, examID); err != nil {
			return storageErr("delete ledger", err)
		}
		if err := tx.SetExamAssigned(ctx, examID, false); err != nil {
			return storageErr("set exam assigned", err)
		}
		res = UnassignResult{Removed: len(ledger)}
		return nil
	})
	if err != nil {
		return UnassignResult{}, storageErr("unassign", err)
	}
	return res, nil
}

type scope struct {
	exam       model.Exam
	bins       []model.Bin
	candidates []model.Candidate
}

// loadScope locks the exam and loads its ordered bins and candidates,
// enforcing the shared preconditions of Assign and Reassign.
func loadScope(ctx context.Context, tx Tx, examID uint64) (scope, error) {
	exam, err := tx.LockExam(ctx, examID)
	if err != nil {
		return scope{}, storageErr("load exam", err)
	}
	program := NormalizeProgram(exam.Program)

	bins, err := tx.ListBins(ctx, program, exam.Level)
	if err != nil {
		return scope{}, storageErr("list bins", err)
	}
	if len(bins) == 0 {
		return scope{}, fmt.Errorf("%w: no bins for program %s level %s", ErrInvalidState, program, exam.Level)
	}
	SortBins(bins)

	candidates, err := tx.ListCandidates(ctx, program, exam.CourseCode)
	if err != nil {
		return scope{}, storageErr("list candidates", err)
	}
	if len(candidates) == 0 {
		return scope{}, fmt.Errorf("%w: no registered students for course %s", ErrInvalidState, exam.CourseCode)
	}
	SortCandidates(candidates)

	return scope{exam: exam, bins: bins, candidates: candidates}, nil
}

// lastUsedBin returns the bin of the most recently inserted ledger row.
func lastUsedBin(ledger []model.Assignment) (uint64, bool) {
	var (
		best  model.Assignment
		found bool
	)
	for _, row := range ledger {
		if !found || row.SequenceID > best.SequenceID {
			best, found = row, true
		}
	}
	return best.BinID, found
}

// plan accumulates ledger rows and their history entries so they can
// be written in placement order.
type plan struct {
	examID  uint64
	action  model.Action
	at      time.Time
	rows    []model.Assignment
	history []model.HistoryEntry
}

func newPlan(examID uint64, action model.Action, at time.Time) *plan {
	return &plan{examID: examID, action: action, at: at.UTC()}
}

// fill places up to free candidates starting at next into the bin and
// returns the index of the first candidate left unplaced.
func (p *plan) fill(binID uint64, free int, candidates []model.Candidate, next int) int {
	for n := 0; n < free && next < len(candidates); n++ {
		c := candidates[next]
		next++
		p.rows = append(p.rows, model.Assignment{BinID: binID, StudentID: c.StudentID, ExamID: p.examID})
		p.history = append(p.history, model.HistoryEntry{
			BinID:     binID,
			StudentID: c.StudentID,
			ExamID:    p.examID,
			Action:    p.action,
			CreatedAt: p.at,
		})
	}
	return next
}

func (p *plan) write(ctx context.Context, tx Tx) error {
	if len(p.rows) == 0 {
		return nil
	}
	if err := tx.InsertAssignments(ctx, p.rows); err != nil {
		return storageErr("insert assignments", err)
	}
	if err := tx.InsertHistory(ctx, p.history); err != nil {
		return storageErr("insert history", err)
	}
	return nil
}
