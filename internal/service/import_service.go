package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
)

type importStudentRepository interface {
	GetAll(ctx context.Context) ([]models.Student, error)
	BulkInsert(ctx context.Context, students []models.Student) error
}

type importExamRepository interface {
	GetAll(ctx context.Context) ([]models.Exam, error)
	BulkInsert(ctx context.Context, exams []models.Exam) error
}

type importResultRepository interface {
	BulkInsert(ctx context.Context, results []models.Result) error
}

type importHallTicketRepository interface {
	BulkInsert(ctx context.Context, tickets []models.HallTicket) error
}

type importSeatRepository interface {
	BulkInsert(ctx context.Context, allocations []models.SeatAllocation) error
}

// RowRejection records why one uploaded row was skipped. Line is the
// 1-based line number in the uploaded file as the user sees it, blank
// lines included.
type RowRejection struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportOutcome aggregates a bulk upload: rejected rows never abort the
// batch, they are reported alongside the count that went through.
type ImportOutcome struct {
	Imported int            `json:"imported"`
	Total    int            `json:"total"`
	Rejected []RowRejection `json:"rejected,omitempty"`
}

// ImportTemplate is a downloadable sample file for one import kind.
type ImportTemplate struct {
	Filename string
	Content  string
}

// ImportService turns uploaded delimited files into persisted records.
// Rows reference students by roll number and exams by exact title; each
// accepted batch is written in a single bulk statement.
type ImportService struct {
	students importStudentRepository
	exams    importExamRepository
	results  importResultRepository
	tickets  importHallTicketRepository
	seats    importSeatRepository
	logger   *zap.Logger
	metrics  *MetricsService
	now      func() time.Time
}

// NewImportService constructs the import service.
func NewImportService(students importStudentRepository, exams importExamRepository, results importResultRepository, tickets importHallTicketRepository, seats importSeatRepository, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		students: students,
		exams:    exams,
		results:  results,
		tickets:  tickets,
		seats:    seats,
		logger:   logger,
		now:      time.Now,
	}
}

// AttachMetrics wires import row counters. Optional.
func (s *ImportService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// importRow is one parsed data row together with its 1-based line number
// in the uploaded file, so a rejection still points at the right line
// after blank lines are dropped.
type importRow struct {
	line  int
	cells map[string]string
}

// parseDelimited splits raw text into header-keyed rows. The format is
// deliberately simple: lines split on newline, cells on comma, every cell
// trimmed. Quoting is not supported, so a comma inside a value shifts the
// row; uploads come from templates that never need quoting. Rows whose
// cells are all empty are dropped.
func parseDelimited(raw string) []importRow {
	lines := strings.Split(raw, "\n")
	if len(lines) == 0 {
		return nil
	}
	headers := strings.Split(lines[0], ",")
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([]importRow, 0, len(lines)-1)
	for n, line := range lines[1:] {
		values := strings.Split(line, ",")
		cells := make(map[string]string, len(headers))
		empty := true
		for i, header := range headers {
			var value string
			if i < len(values) {
				value = strings.TrimSpace(values[i])
			}
			cells[header] = value
			if value != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, importRow{line: n + 2, cells: cells})
		}
	}
	return rows
}

// field returns the first non-empty cell among the aliased column names.
// Uploads from spreadsheets use header-case names, exports from other
// systems use camelCase or snake_case; all three are accepted.
func field(row map[string]string, aliases ...string) string {
	for _, alias := range aliases {
		if v := row[alias]; v != "" {
			return v
		}
	}
	return ""
}

// deriveGrade maps a mark percentage onto a letter grade. Both entry
// paths validate totalMarks positive before calling.
func deriveGrade(marks, totalMarks int) string {
	percentage := float64(marks) / float64(totalMarks) * 100
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 80:
		return "A"
	case percentage >= 70:
		return "B+"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	case percentage >= 40:
		return "D"
	default:
		return "F"
	}
}

// deriveStatus applies the 40% pass mark.
func deriveStatus(marks, totalMarks int) models.ResultStatus {
	if float64(marks) >= float64(totalMarks)*0.4 {
		return models.ResultStatusPass
	}
	return models.ResultStatusFail
}

// Students imports a student roster. Name, email and roll number are
// required per row.
func (s *ImportService) Students(ctx context.Context, raw string) (*ImportOutcome, error) {
	rows := parseDelimited(raw)
	outcome := &ImportOutcome{Total: len(rows)}

	batch := make([]models.Student, 0, len(rows))
	now := s.now().UTC()
	for _, row := range rows {
		name := field(row.cells, "Name", "name")
		email := field(row.cells, "Email", "email")
		rollNo := field(row.cells, "Roll Number", "rollNo", "roll_no")
		if name == "" || email == "" || rollNo == "" {
			outcome.reject(row.line, "name, email and roll number are required")
			continue
		}
		batch = append(batch, models.Student{
			ID:         uuid.NewString(),
			Name:       name,
			Email:      email,
			RollNo:     rollNo,
			Department: field(row.cells, "Department", "department"),
			Class:      field(row.cells, "Class", "class"),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if len(batch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid rows found")
	}
	if err := s.commitStudents(ctx, batch); err != nil {
		return nil, err
	}
	outcome.Imported = len(batch)
	s.logImport("students", outcome)
	return outcome, nil
}

// Exams imports an exam schedule. Title, subject and date are required;
// duration defaults to 180 minutes and total seats to 100.
func (s *ImportService) Exams(ctx context.Context, raw string) (*ImportOutcome, error) {
	rows := parseDelimited(raw)
	outcome := &ImportOutcome{Total: len(rows)}

	batch := make([]models.Exam, 0, len(rows))
	now := s.now().UTC()
	for _, row := range rows {
		title := field(row.cells, "Title", "title")
		subject := field(row.cells, "Subject", "subject")
		date := field(row.cells, "Date", "date")
		if title == "" || subject == "" || date == "" {
			outcome.reject(row.line, "title, subject and date are required")
			continue
		}

		duration := 180
		if v := field(row.cells, "Duration", "duration"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				duration = parsed
			}
		}
		totalSeats := 100
		if v := field(row.cells, "Total Seats", "totalSeats", "total_seats"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				totalSeats = parsed
			}
		}
		examType := models.ExamTypeRegular
		if v := field(row.cells, "Type", "type"); v != "" {
			examType = models.ExamType(v)
		}

		batch = append(batch, models.Exam{
			ID:         uuid.NewString(),
			Title:      title,
			Subject:    subject,
			Date:       date,
			StartTime:  field(row.cells, "Start Time", "startTime", "start_time"),
			EndTime:    field(row.cells, "End Time", "endTime", "end_time"),
			Duration:   duration,
			Department: field(row.cells, "Department", "department"),
			Class:      field(row.cells, "Class", "class"),
			Type:       examType,
			Venue:      field(row.cells, "Venue", "venue"),
			TotalSeats: totalSeats,
			Status:     models.ExamStatusScheduled,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if len(batch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid rows found")
	}
	if err := s.commitExams(ctx, batch); err != nil {
		return nil, err
	}
	outcome.Imported = len(batch)
	s.logImport("exams", outcome)
	return outcome, nil
}

// Results imports marks. Each row names its student by roll number and
// its exam by exact title; grade and pass status are derived from the
// marks, never read from the file.
func (s *ImportService) Results(ctx context.Context, raw string) (*ImportOutcome, error) {
	rows := parseDelimited(raw)
	outcome := &ImportOutcome{Total: len(rows)}

	byRoll, byTitle, err := s.lookupTables(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]models.Result, 0, len(rows))
	now := s.now().UTC()
	for _, row := range rows {
		rollNo := field(row.cells, "Roll Number", "rollNo", "roll_no")
		examTitle := field(row.cells, "Exam Title", "examTitle", "exam_title")
		marks, marksErr := strconv.Atoi(field(row.cells, "Marks", "marks"))
		totalMarks, totalErr := strconv.Atoi(field(row.cells, "Total Marks", "totalMarks", "total_marks"))

		student, studentOK := byRoll[rollNo]
		exam, examOK := byTitle[examTitle]
		switch {
		case !studentOK:
			outcome.reject(row.line, fmt.Sprintf("unknown roll number %q", rollNo))
			continue
		case !examOK:
			outcome.reject(row.line, fmt.Sprintf("unknown exam title %q", examTitle))
			continue
		case marksErr != nil || totalErr != nil:
			outcome.reject(row.line, "marks and total marks must be numeric")
			continue
		case totalMarks <= 0:
			outcome.reject(row.line, "total marks must be positive")
			continue
		}

		batch = append(batch, models.Result{
			ID:         uuid.NewString(),
			StudentID:  student.ID,
			ExamID:     exam.ID,
			Marks:      marks,
			TotalMarks: totalMarks,
			Grade:      deriveGrade(marks, totalMarks),
			Status:     deriveStatus(marks, totalMarks),
			UploadedAt: now,
		})
	}

	if len(batch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid rows found")
	}
	if err := s.results.BulkInsert(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to persist results")
	}
	outcome.Imported = len(batch)
	s.logImport("results", outcome)
	return outcome, nil
}

// HallTickets imports pre-assigned tickets. Rows resolve like results;
// hall and seat numbers are required and every ticket starts in the
// generated state.
func (s *ImportService) HallTickets(ctx context.Context, raw string) (*ImportOutcome, error) {
	rows := parseDelimited(raw)
	outcome := &ImportOutcome{Total: len(rows)}

	byRoll, byTitle, err := s.lookupTables(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]models.HallTicket, 0, len(rows))
	now := s.now().UTC()
	for _, row := range rows {
		student, exam, hall, seat, reason := resolveSeatRow(row.cells, byRoll, byTitle)
		if reason != "" {
			outcome.reject(row.line, reason)
			continue
		}
		batch = append(batch, models.HallTicket{
			ID:          uuid.NewString(),
			StudentID:   student.ID,
			ExamID:      exam.ID,
			SeatNumber:  seat,
			HallNumber:  hall,
			Status:      models.HallTicketStatusGenerated,
			GeneratedAt: now,
		})
	}

	if len(batch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid rows found")
	}
	if err := s.tickets.BulkInsert(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to persist hall tickets")
	}
	outcome.Imported = len(batch)
	s.logImport("hall tickets", outcome)
	return outcome, nil
}

// SeatAllocations imports manual seat assignments. Imported rows start
// hidden like generated ones; the reveal sweep flips them.
func (s *ImportService) SeatAllocations(ctx context.Context, raw string) (*ImportOutcome, error) {
	rows := parseDelimited(raw)
	outcome := &ImportOutcome{Total: len(rows)}

	byRoll, byTitle, err := s.lookupTables(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]models.SeatAllocation, 0, len(rows))
	now := s.now().UTC()
	for _, row := range rows {
		student, exam, hall, seat, reason := resolveSeatRow(row.cells, byRoll, byTitle)
		if reason != "" {
			outcome.reject(row.line, reason)
			continue
		}
		batch = append(batch, models.SeatAllocation{
			ID:          uuid.NewString(),
			ExamID:      exam.ID,
			StudentID:   student.ID,
			HallNumber:  hall,
			SeatNumber:  seat,
			AllocatedAt: now,
			IsVisible:   false,
		})
	}

	if len(batch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no valid rows found")
	}
	if err := s.seats.BulkInsert(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to persist allocations")
	}
	outcome.Imported = len(batch)
	s.logImport("seat allocations", outcome)
	return outcome, nil
}

// Template returns the downloadable sample file for an import kind.
func (s *ImportService) Template(kind string) (*ImportTemplate, error) {
	switch kind {
	case "students":
		return &ImportTemplate{
			Filename: "students-template.csv",
			Content: "Name,Email,Roll Number,Department,Class\n" +
				"John Doe,john@example.com,CS2021001,Computer Science,Third Year\n" +
				"Jane Smith,jane@example.com,CS2021002,Computer Science,Third Year",
		}, nil
	case "exams":
		return &ImportTemplate{
			Filename: "exams-template.csv",
			Content: "Title,Subject,Date,Start Time,End Time,Duration,Department,Class,Venue,Total Seats\n" +
				"Mid Semester Exam,Data Structures,2024-01-15,09:00,12:00,180,Computer Science,Third Year,Hall A-101,100\n" +
				"End Semester Exam,Computer Networks,2024-01-18,14:00,17:00,180,Computer Science,Third Year,Hall B-205,120",
		}, nil
	case "results":
		return &ImportTemplate{
			Filename: "results-template.csv",
			Content: "Roll Number,Exam Title,Marks,Total Marks\n" +
				"CS2021001,Mid Semester Exam,85,100\n" +
				"CS2021002,Mid Semester Exam,78,100",
		}, nil
	case "hall-tickets":
		return &ImportTemplate{
			Filename: "hall-tickets-template.csv",
			Content: "Roll Number,Exam Title,Hall Number,Seat Number\n" +
				"CS2021001,Mid Semester Exam,A-101,01\n" +
				"CS2021002,Mid Semester Exam,A-101,02",
		}, nil
	case "seat-allocations":
		return &ImportTemplate{
			Filename: "seat-allocations-template.csv",
			Content: "Roll Number,Exam Title,Hall Number,Seat Number\n" +
				"CS2021001,Mid Semester Exam,A-101,01\n" +
				"CS2021002,Mid Semester Exam,A-101,02",
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown import kind %q", kind))
	}
}

// resolveSeatRow handles the shared shape of hall ticket and seat
// allocation rows.
func resolveSeatRow(row map[string]string, byRoll map[string]models.Student, byTitle map[string]models.Exam) (models.Student, models.Exam, string, string, string) {
	rollNo := field(row, "Roll Number", "rollNo", "roll_no")
	examTitle := field(row, "Exam Title", "examTitle", "exam_title")
	hall := field(row, "Hall Number", "hallNumber", "hall_number")
	seat := field(row, "Seat Number", "seatNumber", "seat_number")

	student, studentOK := byRoll[rollNo]
	exam, examOK := byTitle[examTitle]
	switch {
	case !studentOK:
		return models.Student{}, models.Exam{}, "", "", fmt.Sprintf("unknown roll number %q", rollNo)
	case !examOK:
		return models.Student{}, models.Exam{}, "", "", fmt.Sprintf("unknown exam title %q", examTitle)
	case hall == "" || seat == "":
		return models.Student{}, models.Exam{}, "", "", "hall number and seat number are required"
	}
	return student, exam, hall, seat, ""
}

// lookupTables loads the roll-number and exam-title indexes used to
// resolve rows. Titles collide silently: the last exam with a given
// title wins, matching how single-row entry resolves them.
func (s *ImportService) lookupTables(ctx context.Context) (map[string]models.Student, map[string]models.Exam, error) {
	students, err := s.students.GetAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load students")
	}
	exams, err := s.exams.GetAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load exams")
	}

	byRoll := make(map[string]models.Student, len(students))
	for _, st := range students {
		byRoll[st.RollNo] = st
	}
	byTitle := make(map[string]models.Exam, len(exams))
	for _, ex := range exams {
		byTitle[ex.Title] = ex
	}
	return byRoll, byTitle, nil
}

func (s *ImportService) commitStudents(ctx context.Context, batch []models.Student) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.students.BulkInsert(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to persist students")
	}
	return nil
}

func (s *ImportService) commitExams(ctx context.Context, batch []models.Exam) error {
	if len(batch) == 0 {
		return nil
	}
	if err := s.exams.BulkInsert(ctx, batch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to persist exams")
	}
	return nil
}

func (o *ImportOutcome) reject(line int, reason string) {
	o.Rejected = append(o.Rejected, RowRejection{Line: line, Reason: reason})
}

func (s *ImportService) logImport(kind string, outcome *ImportOutcome) {
	s.metrics.RecordImport(kind, outcome.Imported, len(outcome.Rejected))
	s.logger.Info("bulk import finished",
		zap.String("kind", kind),
		zap.Int("imported", outcome.Imported),
		zap.Int("total", outcome.Total),
		zap.Int("rejected", len(outcome.Rejected)),
	)
}
