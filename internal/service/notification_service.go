package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
)

type notificationRepository interface {
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	Update(ctx context.Context, notification *models.Notification) error
	Delete(ctx context.Context, id string) error
}

// NotificationService handles broadcast notification workflows.
type NotificationService struct {
	repo      notificationRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, validator: validate, logger: logger, now: time.Now}
	svc.validator.RegisterValidation("notiftype", func(fl validator.FieldLevel) bool {
		switch models.NotificationType(fl.Field().String()) {
		case models.NotificationTypeInfo, models.NotificationTypeSuccess, models.NotificationTypeWarning, models.NotificationTypeError:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("notifpriority", func(fl validator.FieldLevel) bool {
		switch models.NotificationPriority(fl.Field().String()) {
		case models.NotificationPriorityLow, models.NotificationPriorityMedium, models.NotificationPriorityHigh:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("targetrole", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "all", string(models.RoleAdmin), string(models.RoleStudent), string(models.RoleFaculty), string(models.RoleHOD):
			return true
		default:
			return false
		}
	})
	return svc
}

// NotificationListRequest describes filters for listing notifications.
type NotificationListRequest struct {
	TargetRole string `json:"target_role"`
	Status     string `json:"status"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// CreateNotificationRequest describes create payload.
type CreateNotificationRequest struct {
	Title      string `json:"title" validate:"required"`
	Message    string `json:"message" validate:"required"`
	Type       string `json:"type" validate:"required,notiftype"`
	TargetRole string `json:"target_role" validate:"required,targetrole"`
	Priority   string `json:"priority" validate:"required,notifpriority"`
	SendNow    bool   `json:"send_now"`
}

// UpdateNotificationRequest describes update payload.
type UpdateNotificationRequest struct {
	Title      string `json:"title" validate:"required"`
	Message    string `json:"message" validate:"required"`
	Type       string `json:"type" validate:"required,notiftype"`
	TargetRole string `json:"target_role" validate:"required,targetrole"`
	Priority   string `json:"priority" validate:"required,notifpriority"`
}

// List returns notifications with pagination. Passing a role returns
// that role's notifications plus broadcasts to all.
func (s *NotificationService) List(ctx context.Context, req NotificationListRequest) ([]models.Notification, *models.Pagination, error) {
	filter := models.NotificationFilter{
		TargetRole: req.TargetRole,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list notifications")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Get returns a notification by id.
func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load notification")
	}
	return notification, nil
}

// Create validates and stores a notification, as a draft or sent
// immediately.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}

	notification := &models.Notification{
		Title:      req.Title,
		Message:    req.Message,
		Type:       models.NotificationType(req.Type),
		TargetRole: req.TargetRole,
		Priority:   models.NotificationPriority(req.Priority),
		Status:     models.NotificationStatusDraft,
	}
	if req.SendNow {
		sentAt := s.now().UTC()
		notification.Status = models.NotificationStatusSent
		notification.SentAt = &sentAt
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create notification")
	}
	s.logger.Info("notification created",
		zap.String("notification_id", notification.ID),
		zap.String("target_role", notification.TargetRole),
		zap.String("status", string(notification.Status)),
	)
	return notification, nil
}

// Update validates and replaces a notification's content.
func (s *NotificationService) Update(ctx context.Context, id string, req UpdateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	notification.Title = req.Title
	notification.Message = req.Message
	notification.Type = models.NotificationType(req.Type)
	notification.TargetRole = req.TargetRole
	notification.Priority = models.NotificationPriority(req.Priority)
	if err := s.repo.Update(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update notification")
	}
	return notification, nil
}

// Send marks a draft notification as sent. Sending twice is a conflict.
func (s *NotificationService) Send(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Status == models.NotificationStatusSent {
		return nil, appErrors.Clone(appErrors.ErrConflict, "notification already sent")
	}
	sentAt := s.now().UTC()
	notification.Status = models.NotificationStatusSent
	notification.SentAt = &sentAt
	if err := s.repo.Update(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to send notification")
	}
	s.logger.Info("notification sent", zap.String("notification_id", id))
	return notification, nil
}

// MarkRead flips the broadcast's single read flag. The flag is shared by
// every recipient, not tracked per user.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		return notification, nil
	}
	notification.IsRead = true
	if err := s.repo.Update(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to mark notification read")
	}
	return notification, nil
}

// Delete removes a notification by id.
func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete notification")
	}
	return nil
}
