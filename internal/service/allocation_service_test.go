package service

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/examdesk-api/internal/models"
	"github.com/examdesk/examdesk-api/pkg/config"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
)

type mockAllocExamRepo struct {
	exams map[string]models.Exam
}

func (m *mockAllocExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	if e, ok := m.exams[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAllocExamRepo) GetAll(ctx context.Context) ([]models.Exam, error) {
	var list []models.Exam
	for _, e := range m.exams {
		list = append(list, e)
	}
	return list, nil
}

type mockAllocStudentRepo struct {
	students []models.Student
}

func (m *mockAllocStudentRepo) ListByDepartmentAndClass(ctx context.Context, department, class string) ([]models.Student, error) {
	var list []models.Student
	for _, s := range m.students {
		if s.Department == department && s.Class == class {
			list = append(list, s)
		}
	}
	return list, nil
}

type mockSeatRepo struct {
	mu        sync.Mutex
	count     int
	inserted  []models.SeatAllocation
	revealed  []string
	byStudent map[string]models.SeatAllocation

	countStarted chan struct{}
	countRelease chan struct{}
}

func (m *mockSeatRepo) ListByExam(ctx context.Context, examID string) ([]models.SeatAllocationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []models.SeatAllocationDetail
	for _, a := range m.inserted {
		if a.ExamID == examID {
			list = append(list, models.SeatAllocationDetail{SeatAllocation: a})
		}
	}
	return list, nil
}

func (m *mockSeatRepo) CountByExam(ctx context.Context, examID string) (int, error) {
	if m.countStarted != nil {
		close(m.countStarted)
		m.countStarted = nil
		<-m.countRelease
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count + len(m.inserted), nil
}

func (m *mockSeatRepo) FindByStudentAndExam(ctx context.Context, studentID, examID string) (*models.SeatAllocation, error) {
	if a, ok := m.byStudent[studentID+":"+examID]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSeatRepo) Create(ctx context.Context, allocation *models.SeatAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *allocation)
	return nil
}

func (m *mockSeatRepo) Update(ctx context.Context, allocation *models.SeatAllocation) error {
	return nil
}

func (m *mockSeatRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockSeatRepo) BulkInsert(ctx context.Context, allocations []models.SeatAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, allocations...)
	return nil
}

func (m *mockSeatRepo) RevealByExam(ctx context.Context, examID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revealed = append(m.revealed, examID)
	for key, a := range m.byStudent {
		if a.ExamID == examID {
			a.IsVisible = true
			m.byStudent[key] = a
		}
	}
	for i := range m.inserted {
		if m.inserted[i].ExamID == examID {
			m.inserted[i].IsVisible = true
		}
	}
	return nil
}

type mapSeatCache struct {
	mu      sync.Mutex
	entries map[string]*models.SeatStatus
}

func newMapSeatCache() *mapSeatCache {
	return &mapSeatCache{entries: make(map[string]*models.SeatStatus)}
}

func (c *mapSeatCache) GetSeatStatus(ctx context.Context, studentID, examID string) (*models.SeatStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.entries[studentID+":"+examID]
	return status, ok
}

func (c *mapSeatCache) SetSeatStatus(ctx context.Context, studentID, examID string, status *models.SeatStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[studentID+":"+examID] = status
}

func (c *mapSeatCache) InvalidateExam(ctx context.Context, examID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasSuffix(key, ":"+examID) {
			delete(c.entries, key)
		}
	}
}

func allocTestExam() models.Exam {
	return models.Exam{
		ID:         "exam-1",
		Title:      "Mid Semester Exam",
		Date:       "2024-01-15",
		StartTime:  "09:00",
		Department: "Computer Science",
		Class:      "Third Year",
		Venue:      "Hall A",
	}
}

func allocTestStudents(n int) []models.Student {
	students := make([]models.Student, 0, n)
	for i := 0; i < n; i++ {
		students = append(students, models.Student{
			ID:         fmt.Sprintf("student-%03d", i),
			RollNo:     fmt.Sprintf("CS%04d", i),
			Department: "Computer Science",
			Class:      "Third Year",
		})
	}
	return students
}

func newAllocService(exams *mockAllocExamRepo, students *mockAllocStudentRepo, seats *mockSeatRepo) *AllocationService {
	cfg := config.AllocationConfig{SeatsPerHall: 50, RevealLead: 3 * time.Hour}
	return NewAllocationService(exams, students, seats, nil, cfg, nil, rand.New(rand.NewSource(42)))
}

func TestGenerateFillsHallsSequentially(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	students := &mockAllocStudentRepo{students: allocTestStudents(120)}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, students, seats)

	created, err := svc.Generate(context.Background(), "exam-1")
	require.NoError(t, err)
	require.Len(t, created, 120)
	require.Len(t, seats.inserted, 120)

	hallCounts := map[string]int{}
	seatsSeen := map[string]bool{}
	studentsSeen := map[string]bool{}
	for i, a := range created {
		assert.Equal(t, "exam-1", a.ExamID)
		assert.False(t, a.IsVisible)
		assert.Len(t, a.SeatNumber, 2, "seat numbers are zero padded")

		wantHall := fmt.Sprintf("Hall A-%d", i/50+1)
		assert.Equal(t, wantHall, a.HallNumber)
		assert.Equal(t, fmt.Sprintf("%02d", i%50+1), a.SeatNumber)

		hallCounts[a.HallNumber]++
		key := a.HallNumber + "/" + a.SeatNumber
		assert.False(t, seatsSeen[key], "seat %s assigned twice", key)
		seatsSeen[key] = true
		assert.False(t, studentsSeen[a.StudentID], "student %s seated twice", a.StudentID)
		studentsSeen[a.StudentID] = true
	}
	assert.Equal(t, map[string]int{"Hall A-1": 50, "Hall A-2": 50, "Hall A-3": 20}, hallCounts)
}

func TestGenerateShufflesEligibleStudents(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	students := &mockAllocStudentRepo{students: allocTestStudents(60)}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, students, seats)

	created, err := svc.Generate(context.Background(), "exam-1")
	require.NoError(t, err)

	inOrder := true
	for i, a := range created {
		if a.StudentID != fmt.Sprintf("student-%03d", i) {
			inOrder = false
			break
		}
	}
	assert.False(t, inOrder, "seating order should not match roster order")
}

func TestGenerateSkipsWhenAllocationsExist(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	students := &mockAllocStudentRepo{students: allocTestStudents(10)}
	seats := &mockSeatRepo{count: 3}
	svc := newAllocService(exams, students, seats)

	created, err := svc.Generate(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Empty(t, seats.inserted, "existing allocations must never be topped up")
}

func TestGenerateUnknownExamIsNoOp(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{}}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, &mockAllocStudentRepo{}, seats)

	created, err := svc.Generate(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Empty(t, seats.inserted)
}

func TestGenerateNoEligibleStudents(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, &mockAllocStudentRepo{}, seats)

	created, err := svc.Generate(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Empty(t, seats.inserted)
}

func TestGenerateConcurrentRunsConflict(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	students := &mockAllocStudentRepo{students: allocTestStudents(5)}
	seats := &mockSeatRepo{
		countStarted: make(chan struct{}),
		countRelease: make(chan struct{}),
	}
	svc := newAllocService(exams, students, seats)

	started := seats.countStarted
	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), "exam-1")
		done <- err
	}()

	<-started
	_, err := svc.Generate(context.Background(), "exam-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrRaceCondition.Code, appErr.Code)

	close(seats.countRelease)
	require.NoError(t, <-done)
	assert.Len(t, seats.inserted, 5, "only the first run allocates")
}

func TestVisibleWindowBoundaries(t *testing.T) {
	svc := newAllocService(&mockAllocExamRepo{}, &mockAllocStudentRepo{}, &mockSeatRepo{})
	exam := allocTestExam()

	at := func(clock string) time.Time {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", "2024-01-15 "+clock, time.Local)
		require.NoError(t, err)
		return ts
	}

	cases := []struct {
		clock   string
		visible bool
	}{
		{"05:59:59", false},
		{"06:00:00", true},
		{"07:30:00", true},
		{"08:59:59", true},
		{"09:00:00", false},
		{"10:00:00", false},
	}
	for _, tc := range cases {
		visible, _ := svc.VisibleWindow(exam, at(tc.clock))
		assert.Equal(t, tc.visible, visible, "at %s", tc.clock)
	}

	visible, revealIn := svc.VisibleWindow(exam, at("05:00:00"))
	assert.False(t, visible)
	assert.Equal(t, time.Hour, revealIn)
}

func TestVisibleWindowMalformedSchedule(t *testing.T) {
	svc := newAllocService(&mockAllocExamRepo{}, &mockAllocStudentRepo{}, &mockSeatRepo{})
	exam := allocTestExam()
	exam.StartTime = "soon"

	visible, revealIn := svc.VisibleWindow(exam, time.Now())
	assert.False(t, visible)
	assert.Zero(t, revealIn)
}

func TestStudentSeatBeforeWindow(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	seats := &mockSeatRepo{byStudent: map[string]models.SeatAllocation{
		"student-001:exam-1": {ID: "alloc-1", HallNumber: "Hall A-1", SeatNumber: "07", IsVisible: true},
	}}
	svc := newAllocService(exams, &mockAllocStudentRepo{}, seats)
	svc.now = func() time.Time {
		ts, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 04:00", time.Local)
		return ts
	}

	status, err := svc.StudentSeat(context.Background(), "student-001", "exam-1")
	require.NoError(t, err)
	assert.False(t, status.Visible)
	assert.Nil(t, status.Allocation, "seat stays hidden before the window opens")
	require.NotNil(t, status.RevealIn)
	assert.Equal(t, int64(2*60*60), *status.RevealIn)
}

func TestStudentSeatInsideWindow(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	seats := &mockSeatRepo{byStudent: map[string]models.SeatAllocation{
		"student-001:exam-1": {ID: "alloc-1", HallNumber: "Hall A-1", SeatNumber: "07", IsVisible: true},
	}}
	svc := newAllocService(exams, &mockAllocStudentRepo{}, seats)
	svc.now = func() time.Time {
		ts, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 07:00", time.Local)
		return ts
	}

	status, err := svc.StudentSeat(context.Background(), "student-001", "exam-1")
	require.NoError(t, err)
	assert.True(t, status.Visible)
	require.NotNil(t, status.Allocation)
	assert.Equal(t, "Hall A-1", status.Allocation.HallNumber)
	assert.Equal(t, "07", status.Allocation.SeatNumber)
}

func TestStudentSeatHiddenRowInsideWindow(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	seats := &mockSeatRepo{byStudent: map[string]models.SeatAllocation{
		"student-001:exam-1": {ID: "alloc-1", HallNumber: "Hall A-1", SeatNumber: "07", IsVisible: false},
	}}
	svc := newAllocService(exams, &mockAllocStudentRepo{}, seats)
	svc.now = func() time.Time {
		ts, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 07:00", time.Local)
		return ts
	}

	status, err := svc.StudentSeat(context.Background(), "student-001", "exam-1")
	require.NoError(t, err)
	assert.True(t, status.Visible)
	assert.Nil(t, status.Allocation, "row not yet revealed by the sweep stays hidden")
}

func TestRevealInvalidatesCachedStatuses(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	seats := &mockSeatRepo{byStudent: map[string]models.SeatAllocation{
		"student-001:exam-1": {ID: "alloc-1", ExamID: "exam-1", HallNumber: "Hall A-1", SeatNumber: "07", IsVisible: false},
	}}
	svc := newAllocService(exams, &mockAllocStudentRepo{}, seats)
	svc.cache = newMapSeatCache()
	svc.now = func() time.Time {
		ts, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 07:00", time.Local)
		return ts
	}

	status, err := svc.StudentSeat(context.Background(), "student-001", "exam-1")
	require.NoError(t, err)
	assert.Nil(t, status.Allocation, "pre-reveal poll caches the hidden answer")

	require.NoError(t, svc.Reveal(context.Background(), "exam-1"))

	status, err = svc.StudentSeat(context.Background(), "student-001", "exam-1")
	require.NoError(t, err)
	require.NotNil(t, status.Allocation, "reveal must drop the cached hidden status")
	assert.Equal(t, "07", status.Allocation.SeatNumber)
}

func TestStudentSeatUnknownExam(t *testing.T) {
	svc := newAllocService(&mockAllocExamRepo{exams: map[string]models.Exam{}}, &mockAllocStudentRepo{}, &mockSeatRepo{})

	_, err := svc.StudentSeat(context.Background(), "student-001", "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSweepVisibilityProcessesOpenWindows(t *testing.T) {
	inWindow := allocTestExam()
	later := allocTestExam()
	later.ID = "exam-2"
	later.Date = "2024-01-18"
	later.StartTime = "14:00"

	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": inWindow, "exam-2": later}}
	students := &mockAllocStudentRepo{students: allocTestStudents(10)}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, students, seats)
	svc.now = func() time.Time {
		ts, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 07:00", time.Local)
		return ts
	}

	processed, err := svc.SweepVisibility(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"exam-1"}, seats.revealed)
	assert.Len(t, seats.inserted, 10)
	for _, a := range seats.inserted {
		assert.Equal(t, "exam-1", a.ExamID)
	}
}

func TestSweepVisibilityIdempotent(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	students := &mockAllocStudentRepo{students: allocTestStudents(10)}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, students, seats)
	svc.now = func() time.Time {
		ts, _ := time.ParseInLocation("2006-01-02 15:04", "2024-01-15 07:00", time.Local)
		return ts
	}

	_, err := svc.SweepVisibility(context.Background())
	require.NoError(t, err)
	_, err = svc.SweepVisibility(context.Background())
	require.NoError(t, err)

	assert.Len(t, seats.inserted, 10, "second sweep must not allocate again")
	assert.Equal(t, []string{"exam-1", "exam-1"}, seats.revealed, "reveal repeats harmlessly")
}

func TestExportSeatingCSV(t *testing.T) {
	exams := &mockAllocExamRepo{exams: map[string]models.Exam{"exam-1": allocTestExam()}}
	students := &mockAllocStudentRepo{students: allocTestStudents(3)}
	seats := &mockSeatRepo{}
	svc := newAllocService(exams, students, seats)

	_, err := svc.Generate(context.Background(), "exam-1")
	require.NoError(t, err)

	file, err := svc.ExportSeating(context.Background(), "exam-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "seating-exam-1.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 4, "header plus one line per allocated student")
	assert.Equal(t, "Hall,Seat,Roll No,Student", lines[0])
}

func TestExportSeatingRejectsUnknownFormat(t *testing.T) {
	svc := newAllocService(&mockAllocExamRepo{}, &mockAllocStudentRepo{}, &mockSeatRepo{})

	_, err := svc.ExportSeating(context.Background(), "exam-1", "docx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
