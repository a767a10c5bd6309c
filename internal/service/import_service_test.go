package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
)

type mockImportStudents struct {
	all      []models.Student
	inserted []models.Student
}

func (m *mockImportStudents) GetAll(ctx context.Context) ([]models.Student, error) {
	return m.all, nil
}

func (m *mockImportStudents) BulkInsert(ctx context.Context, students []models.Student) error {
	m.inserted = append(m.inserted, students...)
	return nil
}

type mockImportExams struct {
	all      []models.Exam
	inserted []models.Exam
}

func (m *mockImportExams) GetAll(ctx context.Context) ([]models.Exam, error) {
	return m.all, nil
}

func (m *mockImportExams) BulkInsert(ctx context.Context, exams []models.Exam) error {
	m.inserted = append(m.inserted, exams...)
	return nil
}

type mockImportResults struct {
	inserted []models.Result
	batches  int
}

func (m *mockImportResults) BulkInsert(ctx context.Context, results []models.Result) error {
	m.inserted = append(m.inserted, results...)
	m.batches++
	return nil
}

type mockImportTickets struct {
	inserted []models.HallTicket
}

func (m *mockImportTickets) BulkInsert(ctx context.Context, tickets []models.HallTicket) error {
	m.inserted = append(m.inserted, tickets...)
	return nil
}

type mockImportSeats struct {
	inserted []models.SeatAllocation
}

func (m *mockImportSeats) BulkInsert(ctx context.Context, allocations []models.SeatAllocation) error {
	m.inserted = append(m.inserted, allocations...)
	return nil
}

func newImportFixture() (*ImportService, *mockImportStudents, *mockImportExams, *mockImportResults, *mockImportTickets, *mockImportSeats) {
	students := &mockImportStudents{all: []models.Student{
		{ID: "student-1", RollNo: "CS2021001", Name: "John Doe"},
		{ID: "student-2", RollNo: "CS2021002", Name: "Jane Smith"},
	}}
	exams := &mockImportExams{all: []models.Exam{
		{ID: "exam-1", Title: "Mid Semester Exam", Subject: "Data Structures"},
	}}
	results := &mockImportResults{}
	tickets := &mockImportTickets{}
	seats := &mockImportSeats{}
	svc := NewImportService(students, exams, results, tickets, seats, nil)
	return svc, students, exams, results, tickets, seats
}

func TestParseDelimited(t *testing.T) {
	raw := "Name, Email ,Roll Number\n" +
		"John Doe , john@example.com,CS2021001\n" +
		"\n" +
		" , ,\n" +
		"Jane Smith,jane@example.com"

	rows := parseDelimited(raw)
	require.Len(t, rows, 2, "blank and all-empty lines are dropped")
	assert.Equal(t, "John Doe", rows[0].cells["Name"])
	assert.Equal(t, "john@example.com", rows[0].cells["Email"])
	assert.Equal(t, "CS2021001", rows[0].cells["Roll Number"])
	assert.Equal(t, "", rows[1].cells["Roll Number"], "short rows leave trailing columns empty")
	assert.Equal(t, 2, rows[0].line)
	assert.Equal(t, 5, rows[1].line, "dropped lines still count toward line numbers")
}

func TestParseDelimitedNoQuoting(t *testing.T) {
	rows := parseDelimited("Name,Email\n\"Doe, John\",john@example.com")
	require.Len(t, rows, 1)
	// Commas split unconditionally; quoted cells are not honored.
	assert.Equal(t, `"Doe`, rows[0].cells["Name"])
	assert.Equal(t, `John"`, rows[0].cells["Email"])
}

func TestImportStudentsHeaderAliases(t *testing.T) {
	svc, students, _, _, _, _ := newImportFixture()

	raw := "name,email,roll_no,department,class\n" +
		"Alice Brown,alice@example.com,CS2021003,Computer Science,Third Year"
	outcome, err := svc.Students(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	assert.Equal(t, 1, outcome.Total)
	assert.Empty(t, outcome.Rejected)
	require.Len(t, students.inserted, 1)
	assert.Equal(t, "CS2021003", students.inserted[0].RollNo)
	assert.NotEmpty(t, students.inserted[0].ID)
}

func TestImportStudentsRejectsIncompleteRows(t *testing.T) {
	svc, students, _, _, _, _ := newImportFixture()

	raw := "Name,Email,Roll Number\n" +
		"Alice Brown,alice@example.com,CS2021003\n" +
		"Bob Gray,,CS2021004\n" +
		"Carol White,carol@example.com,CS2021005"
	outcome, err := svc.Students(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Imported)
	assert.Equal(t, 3, outcome.Total)
	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, 3, outcome.Rejected[0].Line)
	assert.Len(t, students.inserted, 2, "a bad row never aborts the batch")
}

func TestImportRejectionLinesCountBlankLines(t *testing.T) {
	svc, _, _, _, _, _ := newImportFixture()

	raw := "Name,Email,Roll Number\n" +
		"Alice Brown,alice@example.com,CS2021003\n" +
		"\n" +
		"Bob Gray,,CS2021004"
	outcome, err := svc.Students(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, 4, outcome.Rejected[0].Line, "blank line above still counts in the file")
}

func TestImportExamsDefaults(t *testing.T) {
	svc, _, exams, _, _, _ := newImportFixture()

	raw := "Title,Subject,Date,Start Time,End Time\n" +
		"End Semester Exam,Computer Networks,2024-01-18,14:00,17:00"
	outcome, err := svc.Exams(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	require.Len(t, exams.inserted, 1)

	exam := exams.inserted[0]
	assert.Equal(t, 180, exam.Duration)
	assert.Equal(t, 100, exam.TotalSeats)
	assert.Equal(t, models.ExamTypeRegular, exam.Type)
	assert.Equal(t, models.ExamStatusScheduled, exam.Status)
	assert.Zero(t, exam.OccupiedSeats)
}

func TestImportResultsDerivesGradeAndStatus(t *testing.T) {
	svc, _, _, results, _, _ := newImportFixture()

	raw := "Roll Number,Exam Title,Marks,Total Marks\n" +
		"CS2021001,Mid Semester Exam,85,100\n" +
		"CS2021002,Mid Semester Exam,39,100"
	outcome, err := svc.Results(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Imported)
	require.Len(t, results.inserted, 2)
	assert.Equal(t, 1, results.batches, "accepted rows land in a single bulk insert")

	assert.Equal(t, "student-1", results.inserted[0].StudentID)
	assert.Equal(t, "exam-1", results.inserted[0].ExamID)
	assert.Equal(t, "A", results.inserted[0].Grade)
	assert.Equal(t, models.ResultStatusPass, results.inserted[0].Status)

	assert.Equal(t, "F", results.inserted[1].Grade)
	assert.Equal(t, models.ResultStatusFail, results.inserted[1].Status)
}

func TestImportResultsRejectsUnresolvedRows(t *testing.T) {
	svc, _, _, results, _, _ := newImportFixture()

	raw := "Roll Number,Exam Title,Marks,Total Marks\n" +
		"CS9999999,Mid Semester Exam,85,100\n" +
		"CS2021001,Unknown Exam,85,100\n" +
		"CS2021001,Mid Semester Exam,eighty,100\n" +
		"CS2021001,Mid Semester Exam,70,100"
	outcome, err := svc.Results(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	assert.Equal(t, 4, outcome.Total)
	require.Len(t, outcome.Rejected, 3)
	assert.Equal(t, 2, outcome.Rejected[0].Line)
	assert.Contains(t, outcome.Rejected[0].Reason, "unknown roll number")
	assert.Contains(t, outcome.Rejected[1].Reason, "unknown exam title")
	assert.Contains(t, outcome.Rejected[2].Reason, "numeric")
	require.Len(t, results.inserted, 1)
	assert.Equal(t, "B+", results.inserted[0].Grade)
}

func TestImportResultsRejectsNonPositiveTotalMarks(t *testing.T) {
	svc, _, _, results, _, _ := newImportFixture()

	raw := "Roll Number,Exam Title,Marks,Total Marks\n" +
		"CS2021001,Mid Semester Exam,0,0\n" +
		"CS2021002,Mid Semester Exam,70,100"
	outcome, err := svc.Results(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reason, "positive")
	require.Len(t, results.inserted, 1)
}

func TestGradeBoundaries(t *testing.T) {
	cases := []struct {
		marks int
		grade string
	}{
		{90, "A+"},
		{89, "A"},
		{80, "A"},
		{79, "B+"},
		{70, "B+"},
		{69, "B"},
		{60, "B"},
		{59, "C"},
		{50, "C"},
		{49, "D"},
		{40, "D"},
		{39, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, deriveGrade(tc.marks, 100), "marks %d", tc.marks)
	}
}

func TestPassMarkBoundary(t *testing.T) {
	assert.Equal(t, models.ResultStatusPass, deriveStatus(40, 100))
	assert.Equal(t, models.ResultStatusFail, deriveStatus(39, 100))
	assert.Equal(t, models.ResultStatusPass, deriveStatus(20, 50))
	assert.Equal(t, models.ResultStatusFail, deriveStatus(19, 50))
}

func TestImportHallTickets(t *testing.T) {
	svc, _, _, _, tickets, _ := newImportFixture()

	raw := "Roll Number,Exam Title,Hall Number,Seat Number\n" +
		"CS2021001,Mid Semester Exam,A-101,01\n" +
		"CS2021002,Mid Semester Exam,A-101,"
	outcome, err := svc.HallTickets(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reason, "seat number")

	require.Len(t, tickets.inserted, 1)
	assert.Equal(t, models.HallTicketStatusGenerated, tickets.inserted[0].Status)
	assert.Equal(t, "A-101", tickets.inserted[0].HallNumber)
	assert.Equal(t, "01", tickets.inserted[0].SeatNumber)
}

func TestImportSeatAllocationsStartHidden(t *testing.T) {
	svc, _, _, _, _, seats := newImportFixture()

	raw := "Roll Number,Exam Title,Hall Number,Seat Number\n" +
		"CS2021001,Mid Semester Exam,A-101,01"
	outcome, err := svc.SeatAllocations(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	require.Len(t, seats.inserted, 1)
	assert.False(t, seats.inserted[0].IsVisible, "imported seats wait for the reveal sweep")
}

func TestImportTemplates(t *testing.T) {
	svc, _, _, _, _, _ := newImportFixture()

	tmpl, err := svc.Template("results")
	require.NoError(t, err)
	assert.Equal(t, "results-template.csv", tmpl.Filename)
	assert.Contains(t, tmpl.Content, "Roll Number,Exam Title,Marks,Total Marks")

	rows := parseDelimited(tmpl.Content)
	assert.Len(t, rows, 2, "templates must round-trip through the parser")

	_, err = svc.Template("bogus")
	require.Error(t, err)
}

func TestImportRejectsFileWithNoValidRows(t *testing.T) {
	svc, students, _, _, _, _ := newImportFixture()

	raw := "name,email,roll_no\n" +
		"Missing Email,,\n" +
		",,"
	_, err := svc.Students(context.Background(), raw)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, students.inserted)
}
