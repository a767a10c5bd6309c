package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examdesk/examdesk-api/internal/models"
)

// SeatAllocationRepository manages persistence for seat allocations.
type SeatAllocationRepository struct {
	db *sqlx.DB
}

// NewSeatAllocationRepository constructs a SeatAllocationRepository.
func NewSeatAllocationRepository(db *sqlx.DB) *SeatAllocationRepository {
	return &SeatAllocationRepository{db: db}
}

// ListByExam returns allocations for one exam joined with student and
// exam context. Left joins keep rows whose student or exam was deleted.
func (r *SeatAllocationRepository) ListByExam(ctx context.Context, examID string) ([]models.SeatAllocationDetail, error) {
	const query = `SELECT a.id, a.exam_id, a.student_id, a.hall_number, a.seat_number, a.allocated_at, a.is_visible,
        s.name AS student_name, s.roll_no AS student_roll_no, e.title AS exam_title
        FROM seat_allocations a
        LEFT JOIN students s ON s.id = a.student_id
        LEFT JOIN exams e ON e.id = a.exam_id
        WHERE a.exam_id = $1
        ORDER BY a.hall_number, a.seat_number`
	var allocations []models.SeatAllocationDetail
	if err := r.db.SelectContext(ctx, &allocations, query, examID); err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	return allocations, nil
}

// CountByExam returns the number of allocation rows for an exam. The
// generation step skips entirely when this is non-zero.
func (r *SeatAllocationRepository) CountByExam(ctx context.Context, examID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM seat_allocations WHERE exam_id = $1", examID); err != nil {
		return 0, fmt.Errorf("count allocations: %w", err)
	}
	return count, nil
}

// FindByStudentAndExam fetches the allocation row for one student in one
// exam. sql.ErrNoRows signals absence.
func (r *SeatAllocationRepository) FindByStudentAndExam(ctx context.Context, studentID, examID string) (*models.SeatAllocation, error) {
	const query = `SELECT id, exam_id, student_id, hall_number, seat_number, allocated_at, is_visible
        FROM seat_allocations WHERE student_id = $1 AND exam_id = $2 LIMIT 1`
	var allocation models.SeatAllocation
	if err := r.db.GetContext(ctx, &allocation, query, studentID, examID); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// Create inserts a single allocation row.
func (r *SeatAllocationRepository) Create(ctx context.Context, allocation *models.SeatAllocation) error {
	if allocation.ID == "" {
		allocation.ID = uuid.NewString()
	}
	if allocation.AllocatedAt.IsZero() {
		allocation.AllocatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO seat_allocations (id, exam_id, student_id, hall_number, seat_number, allocated_at, is_visible)
        VALUES (:id, :exam_id, :student_id, :hall_number, :seat_number, :allocated_at, :is_visible)`
	if _, err := r.db.NamedExecContext(ctx, query, allocation); err != nil {
		return fmt.Errorf("create allocation: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of an allocation row.
func (r *SeatAllocationRepository) Update(ctx context.Context, allocation *models.SeatAllocation) error {
	const query = `UPDATE seat_allocations SET hall_number = :hall_number, seat_number = :seat_number, is_visible = :is_visible WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, allocation); err != nil {
		return fmt.Errorf("update allocation: %w", err)
	}
	return nil
}

// Delete removes an allocation row by ID.
func (r *SeatAllocationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM seat_allocations WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return nil
}

// BulkInsert writes a generated allocation batch in a single statement.
func (r *SeatAllocationRepository) BulkInsert(ctx context.Context, allocations []models.SeatAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	const query = `INSERT INTO seat_allocations (id, exam_id, student_id, hall_number, seat_number, allocated_at, is_visible)
        VALUES (:id, :exam_id, :student_id, :hall_number, :seat_number, :allocated_at, :is_visible)`
	if _, err := r.db.NamedExecContext(ctx, query, allocations); err != nil {
		return fmt.Errorf("bulk insert allocations: %w", err)
	}
	return nil
}

// RevealByExam flips every allocation of the exam to visible. Running it
// against already-visible rows changes nothing.
func (r *SeatAllocationRepository) RevealByExam(ctx context.Context, examID string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE seat_allocations SET is_visible = true WHERE exam_id = $1", examID); err != nil {
		return fmt.Errorf("reveal allocations: %w", err)
	}
	return nil
}
