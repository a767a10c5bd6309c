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

// HallTicketRepository manages persistence for hall tickets.
type HallTicketRepository struct {
	db *sqlx.DB
}

// NewHallTicketRepository constructs a HallTicketRepository.
func NewHallTicketRepository(db *sqlx.DB) *HallTicketRepository {
	return &HallTicketRepository{db: db}
}

const ticketDetailSelect = `SELECT t.id, t.student_id, t.exam_id, t.seat_number, t.hall_number, t.status, t.student_photo, t.generated_at,
    s.name AS student_name, s.roll_no AS student_roll_no, e.title AS exam_title, e.subject AS exam_subject
    FROM hall_tickets t
    LEFT JOIN students s ON s.id = t.student_id
    LEFT JOIN exams e ON e.id = t.exam_id`

// List returns tickets joined with student and exam context.
func (r *HallTicketRepository) List(ctx context.Context, filter models.HallTicketFilter) ([]models.HallTicketDetail, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("t.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ExamID != "" {
		conditions = append(conditions, fmt.Sprintf("t.exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s WHERE %s ORDER BY t.generated_at DESC LIMIT %d OFFSET %d", ticketDetailSelect, where, size, offset)

	var tickets []models.HallTicketDetail
	if err := r.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list hall tickets: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM hall_tickets t WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count hall tickets: %w", err)
	}
	return tickets, total, nil
}

// FindByID fetches a ticket with joined context by ID.
func (r *HallTicketRepository) FindByID(ctx context.Context, id string) (*models.HallTicketDetail, error) {
	query := ticketDetailSelect + " WHERE t.id = $1"
	var ticket models.HallTicketDetail
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Create inserts a new hall ticket.
func (r *HallTicketRepository) Create(ctx context.Context, ticket *models.HallTicket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if ticket.GeneratedAt.IsZero() {
		ticket.GeneratedAt = time.Now().UTC()
	}
	const query = `INSERT INTO hall_tickets (id, student_id, exam_id, seat_number, hall_number, status, student_photo, generated_at)
        VALUES (:id, :student_id, :exam_id, :seat_number, :hall_number, :status, :student_photo, :generated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ticket); err != nil {
		return fmt.Errorf("create hall ticket: %w", err)
	}
	return nil
}

// Update replaces an existing hall ticket.
func (r *HallTicketRepository) Update(ctx context.Context, ticket *models.HallTicket) error {
	const query = `UPDATE hall_tickets SET student_id = :student_id, exam_id = :exam_id, seat_number = :seat_number, hall_number = :hall_number, status = :status, student_photo = :student_photo WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, ticket); err != nil {
		return fmt.Errorf("update hall ticket: %w", err)
	}
	return nil
}

// Delete removes a hall ticket by ID.
func (r *HallTicketRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM hall_tickets WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete hall ticket: %w", err)
	}
	return nil
}

// BulkInsert writes an imported ticket batch in a single statement.
func (r *HallTicketRepository) BulkInsert(ctx context.Context, tickets []models.HallTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	const query = `INSERT INTO hall_tickets (id, student_id, exam_id, seat_number, hall_number, status, student_photo, generated_at)
        VALUES (:id, :student_id, :exam_id, :seat_number, :hall_number, :status, :student_photo, :generated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tickets); err != nil {
		return fmt.Errorf("bulk insert hall tickets: %w", err)
	}
	return nil
}
