package model

// RosterStudent is a seated student as shown on a bin roster.
type RosterStudent struct {
	SequenceID  uint64 `json:"seat_id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Level       string `json:"level"`
}

// BinRoster lists the students seated in one bin for one exam.
type BinRoster struct {
	ExamID   uint64          `json:"exam_id"`
	BinID    uint64          `json:"bin_id"`
	BinName  string          `json:"bin_name"`
	RoomName string          `json:"room_name"`
	Floor    string          `json:"floor"`
	Capacity int             `json:"capacity"`
	Students []RosterStudent `json:"students"`
}

// ExamSeating is an exam together with the bins currently used by it.
type ExamSeating struct {
	Exam
	Bins []Bin `json:"bins"`
}
