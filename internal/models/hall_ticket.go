package models

import "time"

// HallTicketStatus tracks a ticket's issuance lifecycle.
type HallTicketStatus string

const (
	HallTicketStatusGenerated HallTicketStatus = "generated"
	HallTicketStatusIssued    HallTicketStatus = "issued"
	HallTicketStatusCancelled HallTicketStatus = "cancelled"
)

// HallTicket carries a student's admission slip for one exam. It holds
// its own hall/seat copy and is maintained independently of the seat
// allocation table; the two are never synchronized.
type HallTicket struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	ExamID       string           `db:"exam_id" json:"exam_id"`
	SeatNumber   string           `db:"seat_number" json:"seat_number"`
	HallNumber   string           `db:"hall_number" json:"hall_number"`
	Status       HallTicketStatus `db:"status" json:"status"`
	StudentPhoto *string          `db:"student_photo" json:"student_photo,omitempty"`
	GeneratedAt  time.Time        `db:"generated_at" json:"generated_at"`
}

// HallTicketDetail joins student and exam context onto a ticket.
type HallTicketDetail struct {
	HallTicket
	StudentName   *string `db:"student_name" json:"student_name,omitempty"`
	StudentRollNo *string `db:"student_roll_no" json:"student_roll_no,omitempty"`
	ExamTitle     *string `db:"exam_title" json:"exam_title,omitempty"`
	ExamSubject   *string `db:"exam_subject" json:"exam_subject,omitempty"`
}

// HallTicketFilter encapsulates search parameters for listing tickets.
type HallTicketFilter struct {
	StudentID string
	ExamID    string
	Status    string
	Page      int
	PageSize  int
}

// TicketDownload describes a signed link to a rendered ticket PDF.
type TicketDownload struct {
	TicketID  string    `json:"ticket_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
