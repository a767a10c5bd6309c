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

// NotificationRepository manages persistence for broadcast notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = "id, title, message, notif_type, target_role, priority, status, is_read, created_at, sent_at"

// List returns notifications matching the filter. A role filter matches
// both that role and broadcasts targeted at "all".
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	base := "FROM notifications"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.TargetRole != "" && filter.TargetRole != "all" {
		conditions = append(conditions, fmt.Sprintf("(target_role = $%d OR target_role = 'all')", len(args)+1))
		args = append(args, filter.TargetRole)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, base, size, offset)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// FindByID fetches a notification by ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE id = $1", notificationColumns)
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// Create inserts a new notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, title, message, notif_type, target_role, priority, status, is_read, created_at, sent_at)
        VALUES (:id, :title, :message, :notif_type, :target_role, :priority, :status, :is_read, :created_at, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// Update replaces an existing notification.
func (r *NotificationRepository) Update(ctx context.Context, notification *models.Notification) error {
	const query = `UPDATE notifications SET title = :title, message = :message, notif_type = :notif_type, target_role = :target_role, priority = :priority, status = :status, is_read = :is_read, sent_at = :sent_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}

// Delete removes a notification by ID.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// BulkInsert writes an imported notification batch in a single statement.
func (r *NotificationRepository) BulkInsert(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	const query = `INSERT INTO notifications (id, title, message, notif_type, target_role, priority, status, is_read, created_at, sent_at)
        VALUES (:id, :title, :message, :notif_type, :target_role, :priority, :status, :is_read, :created_at, :sent_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notifications); err != nil {
		return fmt.Errorf("bulk insert notifications: %w", err)
	}
	return nil
}
