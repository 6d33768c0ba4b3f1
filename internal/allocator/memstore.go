package allocator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iliyamo/exam-seating/internal/model"
)

// MemoryStore is an in-process Store.  Each unit of work runs against
// a copy of the state that replaces the committed state only when the
// unit succeeds, so a failed unit leaves nothing behind.  Units are
// serialised by a single mutex.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
	fail  map[string]error
}

type memState struct {
	exams      map[uint64]model.Exam
	bins       []model.Bin
	candidates []model.Candidate
	ledger     []model.Assignment
	history    []model.HistoryEntry
	seq        uint64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{exams: map[uint64]model.Exam{}},
		fail:  map[string]error{},
	}
}

// AddExam stores or replaces an exam.
func (m *MemoryStore) AddExam(e model.Exam) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.exams[e.ID] = e
}

// AddBins appends bins.
func (m *MemoryStore) AddBins(bins ...model.Bin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.bins = append(m.state.bins, bins...)
}

// AddCandidates appends registered students.
func (m *MemoryStore) AddCandidates(cs ...model.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.candidates = append(m.state.candidates, cs...)
}

// FailOn makes the named Tx method return err until cleared with a
// nil err.  Method names match the Tx interface (e.g. "InsertHistory").
func (m *MemoryStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// Exam returns the committed exam.
func (m *MemoryStore) Exam(id uint64) (model.Exam, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state.exams[id]
	return e, ok
}

// Ledger returns the committed assignments of an exam in sequence order.
func (m *MemoryStore) Ledger(examID uint64) []model.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.state.ledger {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out
}

// History returns the committed history of an exam in append order.
func (m *MemoryStore) History(examID uint64) []model.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.HistoryEntry
	for _, h := range m.state.history {
		if h.ExamID == examID {
			out = append(out, h)
		}
	}
	return out
}

// WithinTx implements Store.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, &memTx{state: &work, fail: m.fail}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (s memState) clone() memState {
	c := memState{
		exams:      make(map[uint64]model.Exam, len(s.exams)),
		bins:       append([]model.Bin(nil), s.bins...),
		candidates: append([]model.Candidate(nil), s.candidates...),
		ledger:     append([]model.Assignment(nil), s.ledger...),
		history:    append([]model.HistoryEntry(nil), s.history...),
		seq:        s.seq,
	}
	for k, v := range s.exams {
		c.exams[k] = v
	}
	return c
}

type memTx struct {
	state *memState
	fail  map[string]error
}

func (t *memTx) LockExam(_ context.Context, examID uint64) (model.Exam, error) {
	if err := t.fail["LockExam"]; err != nil {
		return model.Exam{}, err
	}
	e, ok := t.state.exams[examID]
	if !ok {
		return model.Exam{}, fmt.Errorf("%w: exam %d", ErrNotFound, examID)
	}
	return e, nil
}

func (t *memTx) ListBins(_ context.Context, program, level string) ([]model.Bin, error) {
	if err := t.fail["ListBins"]; err != nil {
		return nil, err
	}
	var out []model.Bin
	for _, b := range t.state.bins {
		if strings.EqualFold(b.Program, program) && b.Level == level {
			out = append(out, b)
		}
	}
	return out, nil
}

func (t *memTx) ListCandidates(_ context.Context, program, course string) ([]model.Candidate, error) {
	if err := t.fail["ListCandidates"]; err != nil {
		return nil, err
	}
	var out []model.Candidate
	for _, c := range t.state.candidates {
		if strings.EqualFold(c.Program, program) && c.Course == course {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *memTx) ListLedger(_ context.Context, examID uint64) ([]model.Assignment, error) {
	if err := t.fail["ListLedger"]; err != nil {
		return nil, err
	}
	var out []model.Assignment
	for _, a := range t.state.ledger {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *memTx) CountLedgerByBin(_ context.Context, examID uint64) (map[uint64]int, error) {
	if err := t.fail["CountLedgerByBin"]; err != nil {
		return nil, err
	}
	out := map[uint64]int{}
	for _, a := range t.state.ledger {
		if a.ExamID == examID {
			out[a.BinID]++
		}
	}
	return out, nil
}

func (t *memTx) InsertAssignments(_ context.Context, rows []model.Assignment) error {
	if err := t.fail["InsertAssignments"]; err != nil {
		return err
	}
	for _, r := range rows {
		t.state.seq++
		r.SequenceID = t.state.seq
		t.state.ledger = append(t.state.ledger, r)
	}
	return nil
}

func (t *memTx) InsertHistory(_ context.Context, entries []model.HistoryEntry) error {
	if err := t.fail["InsertHistory"]; err != nil {
		return err
	}
	for _, e := range entries {
		e.ID = uint64(len(t.state.history) + 1)
		t.state.history = append(t.state.history, e)
	}
	return nil
}

func (t *memTx) DeleteLedger(_ context.Context, examID uint64) (int64, error) {
	if err := t.fail["DeleteLedger"]; err != nil {
		return 0, err
	}
	kept := t.state.ledger[:0:0]
	var n int64
	for _, a := range t.state.ledger {
		if a.ExamID == examID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	t.state.ledger = kept
	return n, nil
}

func (t *memTx) SetExamAssigned(_ context.Context, examID uint64, assigned bool) error {
	if err := t.fail["SetExamAssigned"]; err != nil {
		return err
	}
	e, ok := t.state.exams[examID]
	if !ok {
		return fmt.Errorf("%w: exam %d", ErrNotFound, examID)
	}
	e.Assigned = assigned
	t.state.exams[examID] = e
	return nil
}
