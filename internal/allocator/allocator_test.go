package allocator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/exam-seating/internal/model"
)

var fixedNow = time.Date(2025, 1, 18, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) (*MemoryStore, *Allocator) {
	t.Helper()
	st := NewMemoryStore()
	st.AddExam(model.Exam{ID: 1, Program: "cs", Level: "1", CourseCode: "CS101"})
	st.AddBins(
		model.Bin{ID: 20, Name: "B", Program: "CS", Level: "1", Capacity: 2},
		model.Bin{ID: 10, Name: "A", Program: "CS", Level: "1", Capacity: 3},
		model.Bin{ID: 30, Name: "other level", Program: "CS", Level: "2", Capacity: 50},
	)
	return st, New(st, WithClock(func() time.Time { return fixedNow }))
}

func candidate(id string) model.Candidate {
	return model.Candidate{StudentID: id, StudentName: "student " + id, Program: "CS", Course: "CS101", Level: "1"}
}

func seatsByStudent(rows []model.Assignment) map[string]uint64 {
	out := map[string]uint64{}
	for _, r := range rows {
		out[r.StudentID] = r.BinID
	}
	return out
}

func countActions(h []model.HistoryEntry, a model.Action) int {
	n := 0
	for _, e := range h {
		if e.Action == a {
			n++
		}
	}
	return n
}

func TestAssignFillsBinsInOrder(t *testing.T) {
	st, alloc := newFixture(t)
	st.AddCandidates(candidate("4"), candidate("2"), candidate("3"), candidate("1"))

	res, err := alloc.Assign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, AssignResult{Seated: 4, Total: 4}, res)

	assert.Equal(t, map[string]uint64{"1": 10, "2": 10, "3": 10, "4": 20}, seatsByStudent(st.Ledger(1)))
	exam, _ := st.Exam(1)
	assert.True(t, exam.Assigned)

	h := st.History(1)
	require.Len(t, h, 4)
	assert.Equal(t, 4, countActions(h, model.ActionAssigned))
	assert.Equal(t, fixedNow, h[0].CreatedAt)
}

func TestAssignPartialFillReportsCounts(t *testing.T) {
	st, alloc := newFixture(t)
	for i := 1; i <= 7; i++ {
		st.AddCandidates(candidate(fmt.Sprint(i)))
	}
	res, err := alloc.Assign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, AssignResult{Seated: 5, Total: 7}, res)
	assert.Len(t, st.Ledger(1), 5)
}

func TestAssignZeroCapacityLeavesFlagUnset(t *testing.T) {
	st := NewMemoryStore()
	st.AddExam(model.Exam{ID: 1, Program: "CS", Level: "1", CourseCode: "CS101"})
	st.AddBins(model.Bin{ID: 1, Program: "CS", Level: "1", Capacity: 0})
	st.AddCandidates(candidate("1"))

	res, err := New(st).Assign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, AssignResult{Seated: 0, Total: 1}, res)
	exam, _ := st.Exam(1)
	assert.False(t, exam.Assigned)
	assert.Empty(t, st.History(1))
}

func TestAssignPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("exam not found", func(t *testing.T) {
		_, alloc := newFixture(t)
		_, err := alloc.Assign(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no bins", func(t *testing.T) {
		st := NewMemoryStore()
		st.AddExam(model.Exam{ID: 1, Program: "CS", Level: "4", CourseCode: "CS101"})
		st.AddCandidates(candidate("1"))
		_, err := New(st).Assign(ctx, 1)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Empty(t, st.Ledger(1))
		assert.Empty(t, st.History(1))
		exam, _ := st.Exam(1)
		assert.False(t, exam.Assigned)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, alloc := newFixture(t)
		_, err := alloc.Assign(ctx, 1)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("already seated", func(t *testing.T) {
		st, alloc := newFixture(t)
		st.AddCandidates(candidate("1"), candidate("2"))
		_, err := alloc.Assign(ctx, 1)
		require.NoError(t, err)

		_, err = alloc.Assign(ctx, 1)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Len(t, st.Ledger(1), 2)
	})
}

func TestAssignRollsBackOnStorageFailure(t *testing.T) {
	st, alloc := newFixture(t)
	st.AddCandidates(candidate("1"), candidate("2"))
	boom := errors.New("disk full")
	st.FailOn("InsertHistory", boom)

	_, err := alloc.Assign(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, st.Ledger(1))
	assert.Empty(t, st.History(1))
	exam, _ := st.Exam(1)
	assert.False(t, exam.Assigned)
}

func TestReassignContinuesFromLastUsedBin(t *testing.T) {
	st, alloc := newFixture(t)
	ctx := context.Background()
	st.AddCandidates(candidate("1"), candidate("2"), candidate("3"), candidate("4"))
	_, err := alloc.Assign(ctx, 1)
	require.NoError(t, err)

	st.AddCandidates(candidate("5"), candidate("6"))
	res, err := alloc.Reassign(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ReassignResult{NewlySeated: 1, NewTotal: 2, StartedFromBin: 20}, res)

	seats := seatsByStudent(st.Ledger(1))
	assert.Equal(t, uint64(20), seats["5"])
	_, seated := seats["6"]
	assert.False(t, seated)
	assert.Equal(t, 1, countActions(st.History(1), model.ActionReassigned))
}

func TestReassignWrapsAroundToEarlierBins(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	st.AddExam(model.Exam{ID: 7, Program: "EE", Level: "3", CourseCode: "EE300"})
	st.AddBins(
		model.Bin{ID: 1, Program: "EE", Level: "3", Capacity: 1},
		model.Bin{ID: 2, Program: "EE", Level: "3", Capacity: 1},
		model.Bin{ID: 3, Program: "EE", Level: "3", Capacity: 2},
	)
	reg := func(id string) model.Candidate {
		return model.Candidate{StudentID: id, Program: "EE", Course: "EE300", Level: "3"}
	}
	st.AddCandidates(reg("50"), reg("10"), reg("11"), reg("12"), reg("13"))
	require.NoError(t, st.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertAssignments(ctx, []model.Assignment{{BinID: 3, StudentID: "50", ExamID: 7}})
	}))

	res, err := New(st).Reassign(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ReassignResult{NewlySeated: 3, NewTotal: 4, StartedFromBin: 3}, res)
	assert.Equal(t, map[string]uint64{"50": 3, "10": 3, "11": 1, "12": 2}, seatsByStudent(st.Ledger(7)))
	exam, _ := st.Exam(7)
	assert.True(t, exam.Assigned)
}

func TestReassignWithEmptyLedgerStartsAtFirstBin(t *testing.T) {
	st, alloc := newFixture(t)
	st.AddCandidates(candidate("1"), candidate("2"), candidate("3"), candidate("4"))

	res, err := alloc.Reassign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ReassignResult{NewlySeated: 4, NewTotal: 4, StartedFromBin: 10}, res)
	assert.Equal(t, map[string]uint64{"1": 10, "2": 10, "3": 10, "4": 20}, seatsByStudent(st.Ledger(1)))
	exam, _ := st.Exam(1)
	assert.True(t, exam.Assigned)
}

func TestReassignWithoutNewCandidatesIsNoop(t *testing.T) {
	st, alloc := newFixture(t)
	ctx := context.Background()
	st.AddCandidates(candidate("1"), candidate("2"))
	_, err := alloc.Assign(ctx, 1)
	require.NoError(t, err)
	before := st.Ledger(1)
	historyBefore := len(st.History(1))

	for i := 0; i < 2; i++ {
		res, err := alloc.Reassign(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, ReassignResult{}, res)
	}
	assert.Equal(t, before, st.Ledger(1))
	assert.Len(t, st.History(1), historyBefore)
}

func TestReassignPreconditions(t *testing.T) {
	ctx := context.Background()
	_, alloc := newFixture(t)
	_, err := alloc.Reassign(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = alloc.Reassign(ctx, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUnassignRemovesEverySeat(t *testing.T) {
	st, alloc := newFixture(t)
	ctx := context.Background()
	st.AddCandidates(candidate("1"), candidate("2"), candidate("3"), candidate("4"))
	assigned, err := alloc.Assign(ctx, 1)
	require.NoError(t, err)
	seatsBefore := seatsByStudent(st.Ledger(1))

	res, err := alloc.Unassign(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, UnassignResult{Removed: 4}, res)
	assert.Empty(t, st.Ledger(1))

	h := st.History(1)
	assert.Len(t, h, assigned.Seated*2)
	for _, e := range h {
		if e.Action == model.ActionUnassigned {
			assert.Equal(t, seatsBefore[e.StudentID], e.BinID)
		}
	}
	assert.Equal(t, 4, countActions(h, model.ActionUnassigned))
	exam, _ := st.Exam(1)
	assert.False(t, exam.Assigned)

	again, err := alloc.Assign(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, again.Seated)
}

func TestUnassignEmptyLedger(t *testing.T) {
	st, alloc := newFixture(t)
	res, err := alloc.Unassign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, UnassignResult{}, res)
	assert.Empty(t, st.History(1))
	exam, _ := st.Exam(1)
	assert.False(t, exam.Assigned)

	_, err = alloc.Unassign(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnassignRollsBackOnDeleteFailure(t *testing.T) {
	st, alloc := newFixture(t)
	ctx := context.Background()
	st.AddCandidates(candidate("1"))
	_, err := alloc.Assign(ctx, 1)
	require.NoError(t, err)

	st.FailOn("DeleteLedger", errors.New("lost connection"))
	_, err = alloc.Unassign(ctx, 1)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Len(t, st.Ledger(1), 1)
	assert.Len(t, st.History(1), 1)
	exam, _ := st.Exam(1)
	assert.True(t, exam.Assigned)
}

func TestConflictPassesThroughUnchanged(t *testing.T) {
	st, alloc := newFixture(t)
	st.AddCandidates(candidate("1"))
	st.FailOn("LockExam", fmt.Errorf("%w: lock wait timeout", ErrConflict))

	_, err := alloc.Assign(context.Background(), 1)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrStorage)
}

// Capacity, uniqueness, additivity and flag properties over a seeded
// sequence of registrations and incremental runs.
func TestAllocationInvariants(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	st := NewMemoryStore()
	st.AddExam(model.Exam{ID: 5, Program: "MED", Level: "2", CourseCode: "M2"})
	capacity := map[uint64]int{}
	for id := uint64(1); id <= 6; id++ {
		c := rng.Intn(5)
		capacity[id] = c
		st.AddBins(model.Bin{ID: id, Program: "MED", Level: "2", Capacity: c})
	}
	alloc := New(st)
	next := 0
	register := func(n int) {
		for i := 0; i < n; i++ {
			next++
			st.AddCandidates(model.Candidate{StudentID: fmt.Sprint(next), Program: "MED", Course: "M2", Level: fmt.Sprint(rng.Intn(3))})
		}
	}

	register(3)
	_, err := alloc.Assign(ctx, 5)
	require.NoError(t, err)

	for round := 0; round < 10; round++ {
		before := seatsByStudent(st.Ledger(5))
		register(rng.Intn(4))
		_, err := alloc.Reassign(ctx, 5)
		require.NoError(t, err)

		ledger := st.Ledger(5)
		after := seatsByStudent(ledger)
		assert.Len(t, after, len(ledger), "duplicate seating")
		for sid, bin := range before {
			assert.Equal(t, bin, after[sid], "student %s moved", sid)
		}
		perBin := map[uint64]int{}
		for _, r := range ledger {
			perBin[r.BinID]++
		}
		for bin, n := range perBin {
			assert.LessOrEqual(t, n, capacity[bin], "bin %d over capacity", bin)
		}
		exam, _ := st.Exam(5)
		assert.Equal(t, len(ledger) > 0, exam.Assigned)
	}
}
