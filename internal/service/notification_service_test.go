package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
)

type mockNotificationRepo struct {
	notifications map[string]models.Notification
	updated       *models.Notification
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return nil, 0, nil
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return &n, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if m.notifications == nil {
		m.notifications = make(map[string]models.Notification)
	}
	if notification.ID == "" {
		notification.ID = "new-notif"
	}
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *mockNotificationRepo) Update(ctx context.Context, notification *models.Notification) error {
	m.notifications[notification.ID] = *notification
	m.updated = notification
	return nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func TestNotificationCreateDraft(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	notification, err := svc.Create(context.Background(), CreateNotificationRequest{
		Title:      "Seat allocations published",
		Message:    "Check your seat three hours before the exam.",
		Type:       "info",
		TargetRole: "student",
		Priority:   "high",
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusDraft, notification.Status)
	assert.Nil(t, notification.SentAt)
	assert.False(t, notification.IsRead)
}

func TestNotificationCreateSendNow(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	notification, err := svc.Create(context.Background(), CreateNotificationRequest{
		Title:      "Exam postponed",
		Message:    "The Data Structures exam moves to Friday.",
		Type:       "warning",
		TargetRole: "all",
		Priority:   "high",
		SendNow:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusSent, notification.Status)
	require.NotNil(t, notification.SentAt)
}

func TestNotificationCreateRejectsUnknownRole(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateNotificationRequest{
		Title:      "Hello",
		Message:    "World",
		Type:       "info",
		TargetRole: "janitor",
		Priority:   "low",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestNotificationSendTwiceConflicts(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateNotificationRequest{
		Title:      "Results out",
		Message:    "Mid semester results are available.",
		Type:       "success",
		TargetRole: "student",
		Priority:   "medium",
	})
	require.NoError(t, err)

	sent, err := svc.Send(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	_, err = svc.Send(context.Background(), created.ID)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := &mockNotificationRepo{notifications: map[string]models.Notification{
		"notif-1": {ID: "notif-1", Title: "T", Message: "M", Status: models.NotificationStatusSent},
	}}
	svc := NewNotificationService(repo, nil, nil)

	notification, err := svc.MarkRead(context.Background(), "notif-1")
	require.NoError(t, err)
	assert.True(t, notification.IsRead)

	repo.updated = nil
	_, err = svc.MarkRead(context.Background(), "notif-1")
	require.NoError(t, err)
	assert.Nil(t, repo.updated, "already-read broadcast skips the write")
}
