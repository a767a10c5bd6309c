package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/examdesk-api/internal/models"
)

func newResultRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryListJoinsContext(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "exam_id", "marks", "total_marks", "grade", "status", "remarks", "uploaded_at", "student_name", "student_roll_no", "exam_title", "exam_subject"}).
		AddRow("result-1", "student-1", "exam-1", 85, 100, "A", "pass", "", time.Now(), "John Doe", "CS2021001", "Mid Semester Exam", "Data Structures").
		AddRow("result-2", "student-gone", "exam-1", 39, 100, "F", "fail", "", time.Now(), nil, nil, "Mid Semester Exam", "Data Structures")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN students s ON s.id = r.student_id")).
		WithArgs("exam-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results")).
		WithArgs("exam-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	results, total, err := repo.List(context.Background(), models.ResultFilter{ExamID: "exam-1"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, results, 2)
	require.Equal(t, "A", results[0].Grade)
	require.Nil(t, results[1].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListStatusFilter(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("r.status = $1")).
		WithArgs("fail").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "exam_id", "marks", "total_marks", "grade", "status", "remarks", "uploaded_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM results")).
		WithArgs("fail").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	results, total, err := repo.List(context.Background(), models.ResultFilter{Status: "fail"})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM results WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	result, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.Nil(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryCreateDefaultsUploadedAt(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := &models.Result{StudentID: "student-1", ExamID: "exam-1", Marks: 85, TotalMarks: 100, Grade: "A", Status: models.ResultStatusPass}
	require.NoError(t, repo.Create(context.Background(), result))
	require.NotEmpty(t, result.ID)
	require.False(t, result.UploadedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBulkInsertSingleStatement(t *testing.T) {
	db, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	repo := NewResultRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	now := time.Now()
	batch := []models.Result{
		{ID: "r-1", StudentID: "student-1", ExamID: "exam-1", Marks: 85, TotalMarks: 100, Grade: "A", Status: models.ResultStatusPass, UploadedAt: now},
		{ID: "r-2", StudentID: "student-2", ExamID: "exam-1", Marks: 39, TotalMarks: 100, Grade: "F", Status: models.ResultStatusFail, UploadedAt: now},
	}
	require.NoError(t, repo.BulkInsert(context.Background(), batch))
	require.NoError(t, mock.ExpectationsWereMet())
}
