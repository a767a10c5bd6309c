package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// TicketData carries everything printed on a hall ticket.
type TicketData struct {
	CollegeName string
	StudentName string
	RollNo      string
	Department  string
	Class       string
	ExamTitle   string
	Subject     string
	Date        string
	StartTime   string
	EndTime     string
	Venue       string
	HallNumber  string
	SeatNumber  string
	Status      string
	IssuedOn    string
}

// TicketPDFRenderer renders a single hall ticket as a PDF document.
type TicketPDFRenderer struct{}

// NewTicketPDFRenderer constructs a hall ticket renderer.
func NewTicketPDFRenderer() *TicketPDFRenderer {
	return &TicketPDFRenderer{}
}

var ticketInstructions = []string{
	"Report to the examination hall at least 30 minutes before the start time.",
	"Bring valid photo identification along with this hall ticket.",
	"Electronic devices are not permitted inside the examination hall.",
	"Follow all examination rules prescribed by the college.",
}

// Render produces the hall ticket PDF bytes.
func (r *TicketPDFRenderer) Render(data TicketData) ([]byte, error) {
	if data.RollNo == "" || data.ExamTitle == "" {
		return nil, fmt.Errorf("ticket requires roll number and exam title")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	college := data.CollegeName
	if college == "" {
		college = "EXAMINATION HALL TICKET"
	}
	pdf.SetFont("Times", "B", 16)
	pdf.CellFormat(0, 10, college, "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("HALL TICKET - %s", data.ExamTitle), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	row := func(label, value string) {
		pdf.SetFont("Times", "B", 11)
		pdf.CellFormat(45, 8, label, "1", 0, "", false, 0, "")
		pdf.SetFont("Times", "", 11)
		pdf.CellFormat(0, 8, value, "1", 1, "", false, 0, "")
	}

	row("Student Name", data.StudentName)
	row("Roll Number", data.RollNo)
	row("Department", data.Department)
	row("Class", data.Class)
	pdf.Ln(3)
	row("Subject", data.Subject)
	row("Date", data.Date)
	row("Time", fmt.Sprintf("%s - %s", data.StartTime, data.EndTime))
	row("Venue", data.Venue)
	row("Hall Number", data.HallNumber)
	row("Seat Number", data.SeatNumber)
	row("Status", data.Status)
	pdf.Ln(6)

	pdf.SetFont("Times", "B", 11)
	pdf.CellFormat(0, 8, "IMPORTANT INSTRUCTIONS", "", 1, "", false, 0, "")
	pdf.SetFont("Times", "", 10)
	for i, line := range ticketInstructions {
		pdf.CellFormat(0, 6, fmt.Sprintf("%d. %s", i+1, line), "", 1, "", false, 0, "")
	}

	if data.IssuedOn != "" {
		pdf.Ln(6)
		pdf.SetFont("Times", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Date of Issue: %s", data.IssuedOn), "", 1, "R", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}
