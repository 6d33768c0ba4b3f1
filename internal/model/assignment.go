package model

import "time"

// Action tags a history entry with the allocation change it records.
type Action string

const (
	ActionAssigned   Action = "ASSIGNED"
	ActionReassigned Action = "REASSIGNED"
	ActionUnassigned Action = "UNASSIGNED"
)

// Assignment is one row of the seating ledger: a student seated in a
// bin for an exam.  SequenceID is assigned by the store on insert and
// grows with insertion order; the allocator relies on it to find the
// most recently used bin.
type Assignment struct {
	SequenceID uint64 // student_bins.id
	BinID      uint64 // student_bins.bin_id
	StudentID  string // student_bins.student_id
	ExamID     uint64 // student_bins.exam_id
}

// HistoryEntry is an append-only audit record of a ledger change.
type HistoryEntry struct {
	ID        uint64    `json:"id"`         // student_bin_history.id
	BinID     uint64    `json:"bin_id"`     // student_bin_history.bin_id
	StudentID string    `json:"student_id"` // student_bin_history.student_id
	ExamID    uint64    `json:"exam_id"`    // student_bin_history.exam_id
	Action    Action    `json:"action"`     // student_bin_history.action
	CreatedAt time.Time `json:"created_at"` // student_bin_history.created_at
}
