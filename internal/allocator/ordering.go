package allocator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/exam-seating/internal/model"
)

// CompareKeys orders two identifiers numerically when both are
// unsigned integers and lexically otherwise.  Numerically equal keys
// with different spellings ("07" and "7") fall back to the lexical
// order so the result is a total order.
func CompareKeys(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil && na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// CompareCandidates orders candidates by level, then student id.
func CompareCandidates(a, b model.Candidate) int {
	if c := CompareKeys(a.Level, b.Level); c != 0 {
		return c
	}
	return CompareKeys(a.StudentID, b.StudentID)
}

// SortCandidates sorts candidates in seating order.
func SortCandidates(cs []model.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool { return CompareCandidates(cs[i], cs[j]) < 0 })
}

// SortBins sorts bins in fill order, ascending by id.
func SortBins(bs []model.Bin) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].ID < bs[j].ID })
}

// NormalizeProgram returns the canonical program code used for bin
// and registration lookups.
func NormalizeProgram(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}
