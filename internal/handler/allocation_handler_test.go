package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/examdesk-api/internal/middleware"
	"github.com/examdesk/examdesk-api/internal/models"
	"github.com/examdesk/examdesk-api/internal/service"
	"github.com/examdesk/examdesk-api/pkg/config"
)

type examRepoStub struct {
	exams map[string]models.Exam
}

func (s *examRepoStub) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, ok := s.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &exam, nil
}

func (s *examRepoStub) GetAll(ctx context.Context) ([]models.Exam, error) {
	out := make([]models.Exam, 0, len(s.exams))
	for _, exam := range s.exams {
		out = append(out, exam)
	}
	return out, nil
}

type studentRepoStub struct {
	students []models.Student
}

func (s *studentRepoStub) ListByDepartmentAndClass(ctx context.Context, department, class string) ([]models.Student, error) {
	return s.students, nil
}

type seatRepoStub struct {
	inserted []models.SeatAllocation
}

func (s *seatRepoStub) ListByExam(ctx context.Context, examID string) ([]models.SeatAllocationDetail, error) {
	return nil, nil
}

func (s *seatRepoStub) CountByExam(ctx context.Context, examID string) (int, error) {
	return len(s.inserted), nil
}

func (s *seatRepoStub) FindByStudentAndExam(ctx context.Context, studentID, examID string) (*models.SeatAllocation, error) {
	for i := range s.inserted {
		if s.inserted[i].StudentID == studentID && s.inserted[i].ExamID == examID {
			return &s.inserted[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *seatRepoStub) Create(ctx context.Context, allocation *models.SeatAllocation) error {
	s.inserted = append(s.inserted, *allocation)
	return nil
}

func (s *seatRepoStub) Update(ctx context.Context, allocation *models.SeatAllocation) error {
	return nil
}
func (s *seatRepoStub) Delete(ctx context.Context, id string) error { return nil }

func (s *seatRepoStub) BulkInsert(ctx context.Context, allocations []models.SeatAllocation) error {
	s.inserted = append(s.inserted, allocations...)
	return nil
}

func (s *seatRepoStub) RevealByExam(ctx context.Context, examID string) error { return nil }

func newAllocationHandlerFixture(seats *seatRepoStub, exams *examRepoStub, students *studentRepoStub) *AllocationHandler {
	svc := service.NewAllocationService(exams, students, seats, nil, config.AllocationConfig{SeatsPerHall: 50}, nil, rand.New(rand.NewSource(7)))
	return NewAllocationHandler(svc)
}

func TestAllocationHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seats := &seatRepoStub{}
	exams := &examRepoStub{exams: map[string]models.Exam{
		"exam-1": {ID: "exam-1", Venue: "Hall A", Department: "CS", Class: "3rd Year", Date: "2031-01-15", StartTime: "09:00"},
	}}
	students := &studentRepoStub{students: []models.Student{
		{ID: "student-1"}, {ID: "student-2"}, {ID: "student-3"},
	}}
	handler := newAllocationHandlerFixture(seats, exams, students)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/exams/exam-1/allocations/generate", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			Generated int `json:"generated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.Generated)
	assert.Len(t, seats.inserted, 3)
}

func TestAllocationHandlerSeatStatusDefaultsToCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seats := &seatRepoStub{}
	exams := &examRepoStub{exams: map[string]models.Exam{
		"exam-1": {ID: "exam-1", Date: "2031-01-15", StartTime: "09:00"},
	}}
	handler := newAllocationHandlerFixture(seats, exams, &studentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/seat", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.SeatStatus(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.SeatStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Visible)
	assert.Nil(t, envelope.Data.Allocation)
	require.NotNil(t, envelope.Data.RevealIn)
	assert.Positive(t, *envelope.Data.RevealIn)
}

func TestAllocationHandlerSeatStatusRequiresStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAllocationHandlerFixture(&seatRepoStub{}, &examRepoStub{}, &studentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/seat", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}

	handler.SeatStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocationHandlerSeatStatusStudentCannotQueryOthers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAllocationHandlerFixture(&seatRepoStub{}, &examRepoStub{}, &studentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/seat?student_id=student-2", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.SeatStatus(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAllocationHandlerSeatStatusStaffMayQueryAnyStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exams := &examRepoStub{exams: map[string]models.Exam{
		"exam-1": {ID: "exam-1", Date: "2031-01-15", StartTime: "09:00"},
	}}
	handler := newAllocationHandlerFixture(&seatRepoStub{}, exams, &studentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/exams/exam-1/seat?student_id=student-2", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.SeatStatus(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAllocationHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAllocationHandlerFixture(&seatRepoStub{}, &examRepoStub{}, &studentRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]string{"exam_id": "exam-1"})
	req, _ := http.NewRequest(http.MethodPost, "/allocations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
