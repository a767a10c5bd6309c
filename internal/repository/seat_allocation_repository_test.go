package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/examdesk-api/internal/models"
)

func newSeatRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSeatAllocationRepositoryBulkInsert(t *testing.T) {
	db, mock, cleanup := newSeatRepoMock(t)
	defer cleanup()

	repo := NewSeatAllocationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seat_allocations")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	allocations := []models.SeatAllocation{
		{ID: "alloc-1", ExamID: "exam-1", StudentID: "student-1", HallNumber: "Hall A-1", SeatNumber: "01", AllocatedAt: time.Now()},
		{ID: "alloc-2", ExamID: "exam-1", StudentID: "student-2", HallNumber: "Hall A-1", SeatNumber: "02", AllocatedAt: time.Now()},
	}
	require.NoError(t, repo.BulkInsert(context.Background(), allocations))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAllocationRepositoryBulkInsertEmpty(t *testing.T) {
	db, mock, cleanup := newSeatRepoMock(t)
	defer cleanup()

	repo := NewSeatAllocationRepository(db)
	require.NoError(t, repo.BulkInsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAllocationRepositoryCountByExam(t *testing.T) {
	db, mock, cleanup := newSeatRepoMock(t)
	defer cleanup()

	repo := NewSeatAllocationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM seat_allocations WHERE exam_id = $1")).
		WithArgs("exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByExam(context.Background(), "exam-1")
	require.NoError(t, err)
	require.Equal(t, 42, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAllocationRepositoryFindByStudentAndExam(t *testing.T) {
	db, mock, cleanup := newSeatRepoMock(t)
	defer cleanup()

	repo := NewSeatAllocationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "exam_id", "student_id", "hall_number", "seat_number", "allocated_at", "is_visible"}).
		AddRow("alloc-1", "exam-1", "student-1", "Hall A-2", "17", time.Now(), true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, exam_id, student_id, hall_number, seat_number, allocated_at, is_visible")).
		WithArgs("student-1", "exam-1").
		WillReturnRows(rows)

	allocation, err := repo.FindByStudentAndExam(context.Background(), "student-1", "exam-1")
	require.NoError(t, err)
	require.Equal(t, "Hall A-2", allocation.HallNumber)
	require.Equal(t, "17", allocation.SeatNumber)
	require.True(t, allocation.IsVisible)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAllocationRepositoryRevealByExam(t *testing.T) {
	db, mock, cleanup := newSeatRepoMock(t)
	defer cleanup()

	repo := NewSeatAllocationRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE seat_allocations SET is_visible = true WHERE exam_id = $1")).
		WithArgs("exam-1").
		WillReturnResult(sqlmock.NewResult(0, 120))

	require.NoError(t, repo.RevealByExam(context.Background(), "exam-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatAllocationRepositoryListByExamJoins(t *testing.T) {
	db, mock, cleanup := newSeatRepoMock(t)
	defer cleanup()

	repo := NewSeatAllocationRepository(db)
	rows := sqlmock.NewRows([]string{"id", "exam_id", "student_id", "hall_number", "seat_number", "allocated_at", "is_visible", "student_name", "student_roll_no", "exam_title"}).
		AddRow("alloc-1", "exam-1", "student-1", "Hall A-1", "01", time.Now(), false, "John Doe", "CS2021001", "Mid Semester Exam").
		AddRow("alloc-2", "exam-1", "student-gone", "Hall A-1", "02", time.Now(), false, nil, nil, "Mid Semester Exam")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN students s ON s.id = a.student_id")).
		WithArgs("exam-1").
		WillReturnRows(rows)

	allocations, err := repo.ListByExam(context.Background(), "exam-1")
	require.NoError(t, err)
	require.Len(t, allocations, 2)
	require.NotNil(t, allocations[0].StudentName)
	require.Nil(t, allocations[1].StudentName, "deleted students leave dangling rows, not errors")
	require.NoError(t, mock.ExpectationsWereMet())
}
