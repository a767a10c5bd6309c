package models

import "time"

// ResultStatus is the pass/fail outcome of one exam result.
type ResultStatus string

const (
	ResultStatusPass   ResultStatus = "pass"
	ResultStatusFail   ResultStatus = "fail"
	ResultStatusAbsent ResultStatus = "absent"
)

// Result stores a student's marks for one exam. Grade is derived from the
// mark percentage when not supplied explicitly.
type Result struct {
	ID         string       `db:"id" json:"id"`
	StudentID  string       `db:"student_id" json:"student_id"`
	ExamID     string       `db:"exam_id" json:"exam_id"`
	Marks      int          `db:"marks" json:"marks"`
	TotalMarks int          `db:"total_marks" json:"total_marks"`
	Grade      string       `db:"grade" json:"grade"`
	Status     ResultStatus `db:"status" json:"status"`
	Remarks    string       `db:"remarks" json:"remarks"`
	UploadedAt time.Time    `db:"uploaded_at" json:"uploaded_at"`
}

// ResultDetail joins student and exam context onto a result. Joined
// fields are nullable to tolerate dangling references.
type ResultDetail struct {
	Result
	StudentName   *string `db:"student_name" json:"student_name,omitempty"`
	StudentRollNo *string `db:"student_roll_no" json:"student_roll_no,omitempty"`
	ExamTitle     *string `db:"exam_title" json:"exam_title,omitempty"`
	ExamSubject   *string `db:"exam_subject" json:"exam_subject,omitempty"`
}

// ResultFilter encapsulates allowed search parameters for listing results.
type ResultFilter struct {
	StudentID string
	ExamID    string
	Status    string
	Page      int
	PageSize  int
}
