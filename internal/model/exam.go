package model

// Exam is a scheduled examination event for one course of a program
// level.  The scheduling fields (Day, Period, Date) are opaque to the
// allocator and only drive listing order.
//
// Fields:
//  ID         – primary key identifier.
//  Year       – academic year label.
//  Semester   – semester label.
//  Type       – exam type (e.g. MIDTERM, FINAL).
//  Program    – program code; upper case.
//  Level      – program level the exam belongs to.
//  CourseCode – course whose registered students sit the exam.
//  Day        – weekday name (Saturday … Friday).
//  Period     – time range such as "9:00-11:00".
//  Date       – calendar date, YYYY-MM-DD.
//  Assigned   – whether an allocation run has seated at least one student.
type Exam struct {
	ID         uint64 `json:"exam_id"`     // exams.id
	Year       string `json:"year"`        // exams.year
	Semester   string `json:"semester"`    // exams.semester
	Type       string `json:"type"`        // exams.type
	Program    string `json:"program"`     // exams.program
	Level      string `json:"level"`       // exams.level
	CourseCode string `json:"course_code"` // exams.course_code
	Day        string `json:"day"`         // exams.day
	Period     string `json:"period"`      // exams.period
	Date       string `json:"date"`        // exams.exam_date
	Assigned   bool   `json:"assigned"`    // exams.assigned
}
