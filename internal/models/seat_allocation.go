package models

import "time"

// SeatAllocation assigns a student to a hall/seat pair for an exam.
// IsVisible gates whether the student may observe the assignment; the
// reveal window logic lives in the allocation service.
type SeatAllocation struct {
	ID          string    `db:"id" json:"id"`
	ExamID      string    `db:"exam_id" json:"exam_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	HallNumber  string    `db:"hall_number" json:"hall_number"`
	SeatNumber  string    `db:"seat_number" json:"seat_number"`
	AllocatedAt time.Time `db:"allocated_at" json:"allocated_at"`
	IsVisible   bool      `db:"is_visible" json:"is_visible"`
}

// SeatAllocationDetail joins student and exam context onto an allocation.
// The joined fields are nullable: deleting a student or exam leaves the
// allocation row dangling and callers decide how to present the absence.
type SeatAllocationDetail struct {
	SeatAllocation
	StudentName   *string `db:"student_name" json:"student_name,omitempty"`
	StudentRollNo *string `db:"student_roll_no" json:"student_roll_no,omitempty"`
	ExamTitle     *string `db:"exam_title" json:"exam_title,omitempty"`
}

// SeatStatus is the student-facing view of their seat for one exam.
// Before the reveal window opens, Allocation is nil and RevealIn carries
// the remaining wait; once the exam starts the seat is hidden again.
type SeatStatus struct {
	ExamID     string          `json:"exam_id"`
	Visible    bool            `json:"visible"`
	RevealIn   *int64          `json:"reveal_in_seconds,omitempty"`
	Allocation *SeatAllocation `json:"allocation,omitempty"`
}
