package model

// Candidate is a student registered for a course and therefore
// eligible for seating in that course's exams.
type Candidate struct {
	StudentID   string `json:"student_id"`   // registrations.student_id
	StudentName string `json:"student_name"` // registrations.student_name
	Program     string `json:"program"`      // registrations.program
	Course      string `json:"course"`       // registrations.course
	Level       string `json:"level"`        // registrations.level
}
