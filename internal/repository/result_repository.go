package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examdesk/examdesk-api/internal/models"
)

// ResultRepository manages persistence for exam results.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// List returns results joined with student and exam context. Left joins
// keep rows whose student or exam was deleted.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error) {
	base := `FROM results r
        LEFT JOIN students s ON s.id = r.student_id
        LEFT JOIN exams e ON e.id = r.exam_id`
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("r.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ExamID != "" {
		conditions = append(conditions, fmt.Sprintf("r.exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.student_id, r.exam_id, r.marks, r.total_marks, r.grade, r.status, r.remarks, r.uploaded_at,
        s.name AS student_name, s.roll_no AS student_roll_no, e.title AS exam_title, e.subject AS exam_subject
        %s ORDER BY r.uploaded_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}
	return results, total, nil
}

// ListByExam returns every result of one exam with joined context,
// unpaginated. Feeds the tabular exports.
func (r *ResultRepository) ListByExam(ctx context.Context, examID string) ([]models.ResultDetail, error) {
	const query = `SELECT r.id, r.student_id, r.exam_id, r.marks, r.total_marks, r.grade, r.status, r.remarks, r.uploaded_at,
        s.name AS student_name, s.roll_no AS student_roll_no, e.title AS exam_title, e.subject AS exam_subject
        FROM results r
        LEFT JOIN students s ON s.id = r.student_id
        LEFT JOIN exams e ON e.id = r.exam_id
        WHERE r.exam_id = $1
        ORDER BY s.roll_no`
	var results []models.ResultDetail
	if err := r.db.SelectContext(ctx, &results, query, examID); err != nil {
		return nil, fmt.Errorf("list results by exam: %w", err)
	}
	return results, nil
}

// FindByID fetches a result by ID.
func (r *ResultRepository) FindByID(ctx context.Context, id string) (*models.Result, error) {
	const query = `SELECT id, student_id, exam_id, marks, total_marks, grade, status, remarks, uploaded_at FROM results WHERE id = $1`
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create inserts a new result record.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.UploadedAt.IsZero() {
		result.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO results (id, student_id, exam_id, marks, total_marks, grade, status, remarks, uploaded_at)
        VALUES (:id, :student_id, :exam_id, :marks, :total_marks, :grade, :status, :remarks, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// Update replaces an existing result record.
func (r *ResultRepository) Update(ctx context.Context, result *models.Result) error {
	const query = `UPDATE results SET student_id = :student_id, exam_id = :exam_id, marks = :marks, total_marks = :total_marks, grade = :grade, status = :status, remarks = :remarks WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

// Delete removes a result by ID.
func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM results WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// BulkInsert writes an imported result batch in a single statement.
func (r *ResultRepository) BulkInsert(ctx context.Context, results []models.Result) error {
	if len(results) == 0 {
		return nil
	}
	const query = `INSERT INTO results (id, student_id, exam_id, marks, total_marks, grade, status, remarks, uploaded_at)
        VALUES (:id, :student_id, :exam_id, :marks, :total_marks, :grade, :status, :remarks, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, results); err != nil {
		return fmt.Errorf("bulk insert results: %w", err)
	}
	return nil
}
