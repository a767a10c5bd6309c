package models

import "time"

// ExamStatus tracks an exam's lifecycle. Transitions are manual only.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "scheduled"
	ExamStatusOngoing   ExamStatus = "ongoing"
	ExamStatusCompleted ExamStatus = "completed"
)

// ExamType distinguishes regular exams from arrear (re-attempt) exams.
type ExamType string

const (
	ExamTypeRegular ExamType = "regular"
	ExamTypeArrear  ExamType = "arrear"
)

// Exam represents a scheduled examination. Date is a calendar date
// (2006-01-02) and StartTime/EndTime are local times of day (15:04),
// stored as strings the way the upstream data arrives. Duration is
// informational and never cross-checked against start/end. OccupiedSeats
// is likewise never reconciled with the allocation table.
type Exam struct {
	ID            string     `db:"id" json:"id"`
	Title         string     `db:"title" json:"title"`
	Subject       string     `db:"subject" json:"subject"`
	Date          string     `db:"exam_date" json:"date"`
	StartTime     string     `db:"start_time" json:"start_time"`
	EndTime       string     `db:"end_time" json:"end_time"`
	Duration      int        `db:"duration" json:"duration"`
	Department    string     `db:"department" json:"department"`
	Class         string     `db:"class" json:"class"`
	Type          ExamType   `db:"exam_type" json:"type"`
	Venue         string     `db:"venue" json:"venue"`
	TotalSeats    int        `db:"total_seats" json:"total_seats"`
	OccupiedSeats int        `db:"occupied_seats" json:"occupied_seats"`
	Status        ExamStatus `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StartsAt combines Date and StartTime into a wall-clock instant in the
// given location. Returns the zero time when either field is malformed.
func (e Exam) StartsAt(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.StartTime, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ExamFilter encapsulates allowed search parameters for listing exams.
type ExamFilter struct {
	Search     string
	Department string
	Class      string
	Status     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
