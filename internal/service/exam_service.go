package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

// ExamService handles exam scheduling workflows.
type ExamService struct {
	repo      examRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs the service.
func NewExamService(repo examRepository, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ExamService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("examstatus", func(fl validator.FieldLevel) bool {
		switch models.ExamStatus(fl.Field().String()) {
		case models.ExamStatusScheduled, models.ExamStatusOngoing, models.ExamStatusCompleted:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("examtype", func(fl validator.FieldLevel) bool {
		switch models.ExamType(fl.Field().String()) {
		case models.ExamTypeRegular, models.ExamTypeArrear:
			return true
		default:
			return false
		}
	})
	return svc
}

// ExamListRequest describes filters for listing exams.
type ExamListRequest struct {
	Search     string `json:"search"`
	Department string `json:"department"`
	Class      string `json:"class"`
	Status     string `json:"status"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	SortBy     string `json:"sort_by"`
	SortOrder  string `json:"sort_order"`
}

// CreateExamRequest describes create payload. Date and times stay in
// their wire format; StartsAt parses them on demand.
type CreateExamRequest struct {
	Title      string `json:"title" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime    string `json:"end_time" validate:"required,datetime=15:04"`
	Duration   int    `json:"duration" validate:"omitempty,gt=0"`
	Department string `json:"department"`
	Class      string `json:"class"`
	Type       string `json:"type" validate:"omitempty,examtype"`
	Venue      string `json:"venue" validate:"required"`
	TotalSeats int    `json:"total_seats" validate:"omitempty,gt=0"`
}

// UpdateExamRequest describes update payload.
type UpdateExamRequest struct {
	Title      string `json:"title" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime    string `json:"end_time" validate:"required,datetime=15:04"`
	Duration   int    `json:"duration" validate:"omitempty,gt=0"`
	Department string `json:"department"`
	Class      string `json:"class"`
	Type       string `json:"type" validate:"omitempty,examtype"`
	Status     string `json:"status" validate:"omitempty,examstatus"`
	Venue      string `json:"venue" validate:"required"`
	TotalSeats int    `json:"total_seats" validate:"omitempty,gt=0"`
}

// List returns exams with pagination.
func (s *ExamService) List(ctx context.Context, req ExamListRequest) ([]models.Exam, *models.Pagination, error) {
	filter := models.ExamFilter{
		Search:     req.Search,
		Department: req.Department,
		Class:      req.Class,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list exams")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Get returns an exam by id.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load exam")
	}
	return exam, nil
}

// Create validates and stores a new exam. New exams start scheduled with
// zero occupied seats.
func (s *ExamService) Create(ctx context.Context, req CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	duration := req.Duration
	if duration == 0 {
		duration = 180
	}
	totalSeats := req.TotalSeats
	if totalSeats == 0 {
		totalSeats = 100
	}
	examType := models.ExamType(req.Type)
	if examType == "" {
		examType = models.ExamTypeRegular
	}

	exam := &models.Exam{
		Title:      req.Title,
		Subject:    req.Subject,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Duration:   duration,
		Department: req.Department,
		Class:      req.Class,
		Type:       examType,
		Venue:      req.Venue,
		TotalSeats: totalSeats,
		Status:     models.ExamStatusScheduled,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create exam")
	}
	s.logger.Info("exam created", zap.String("exam_id", exam.ID), zap.String("title", exam.Title))
	return exam, nil
}

// Update validates and replaces an exam. Status transitions are manual
// and unrestricted.
func (s *ExamService) Update(ctx context.Context, id string, req UpdateExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	exam.Title = req.Title
	exam.Subject = req.Subject
	exam.Date = req.Date
	exam.StartTime = req.StartTime
	exam.EndTime = req.EndTime
	if req.Duration > 0 {
		exam.Duration = req.Duration
	}
	exam.Department = req.Department
	exam.Class = req.Class
	if req.Type != "" {
		exam.Type = models.ExamType(req.Type)
	}
	if req.Status != "" {
		exam.Status = models.ExamStatus(req.Status)
	}
	exam.Venue = req.Venue
	if req.TotalSeats > 0 {
		exam.TotalSeats = req.TotalSeats
	}
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update exam")
	}
	return exam, nil
}

// Delete removes an exam. Dependent allocations, results and tickets are
// left in place.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete exam")
	}
	s.logger.Info("exam deleted", zap.String("exam_id", id))
	return nil
}
