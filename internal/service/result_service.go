package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
	"github.com/examdesk/examdesk-api/pkg/export"
)

type resultRepository interface {
	List(ctx context.Context, filter models.ResultFilter) ([]models.ResultDetail, int, error)
	ListByExam(ctx context.Context, examID string) ([]models.ResultDetail, error)
	FindByID(ctx context.Context, id string) (*models.Result, error)
	Create(ctx context.Context, result *models.Result) error
	Update(ctx context.Context, result *models.Result) error
	Delete(ctx context.Context, id string) error
}

// ExportFile is a rendered tabular export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ResultService handles exam result workflows.
type ResultService struct {
	repo      resultRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs the service.
func NewResultService(repo resultRepository, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ResultService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("resultstatus", func(fl validator.FieldLevel) bool {
		switch models.ResultStatus(fl.Field().String()) {
		case models.ResultStatusPass, models.ResultStatusFail, models.ResultStatusAbsent:
			return true
		default:
			return false
		}
	})
	return svc
}

// ResultListRequest describes filters for listing results.
type ResultListRequest struct {
	StudentID string `json:"student_id"`
	ExamID    string `json:"exam_id"`
	Status    string `json:"status"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// CreateResultRequest describes create payload. Grade and status are
// optional; omitted values are derived from the marks.
type CreateResultRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ExamID     string `json:"exam_id" validate:"required"`
	Marks      int    `json:"marks" validate:"min=0"`
	TotalMarks int    `json:"total_marks" validate:"required,gt=0"`
	Grade      string `json:"grade"`
	Status     string `json:"status" validate:"omitempty,resultstatus"`
	Remarks    string `json:"remarks"`
}

// UpdateResultRequest describes update payload.
type UpdateResultRequest struct {
	Marks      int    `json:"marks" validate:"min=0"`
	TotalMarks int    `json:"total_marks" validate:"required,gt=0"`
	Grade      string `json:"grade"`
	Status     string `json:"status" validate:"omitempty,resultstatus"`
	Remarks    string `json:"remarks"`
}

// List returns results with joined context and pagination.
func (s *ResultService) List(ctx context.Context, req ResultListRequest) ([]models.ResultDetail, *models.Pagination, error) {
	filter := models.ResultFilter{
		StudentID: req.StudentID,
		ExamID:    req.ExamID,
		Status:    req.Status,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list results")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Get returns a result by id.
func (s *ResultService) Get(ctx context.Context, id string) (*models.Result, error) {
	result, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load result")
	}
	return result, nil
}

// Create validates and stores a result. An empty grade is derived from
// the mark percentage; an empty status from the 40% pass mark.
func (s *ResultService) Create(ctx context.Context, req CreateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}

	result := &models.Result{
		StudentID:  req.StudentID,
		ExamID:     req.ExamID,
		Marks:      req.Marks,
		TotalMarks: req.TotalMarks,
		Grade:      req.Grade,
		Status:     models.ResultStatus(req.Status),
		Remarks:    req.Remarks,
	}
	if result.Grade == "" {
		result.Grade = deriveGrade(result.Marks, result.TotalMarks)
	}
	if result.Status == "" {
		result.Status = deriveStatus(result.Marks, result.TotalMarks)
	}
	if err := s.repo.Create(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create result")
	}
	s.logger.Info("result recorded", zap.String("result_id", result.ID), zap.String("student_id", result.StudentID))
	return result, nil
}

// Update validates and replaces a result's marks and derived fields.
func (s *ResultService) Update(ctx context.Context, id string, req UpdateResultRequest) (*models.Result, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	result, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result.Marks = req.Marks
	result.TotalMarks = req.TotalMarks
	result.Grade = req.Grade
	if result.Grade == "" {
		result.Grade = deriveGrade(result.Marks, result.TotalMarks)
	}
	result.Status = models.ResultStatus(req.Status)
	if result.Status == "" {
		result.Status = deriveStatus(result.Marks, result.TotalMarks)
	}
	result.Remarks = req.Remarks
	if err := s.repo.Update(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update result")
	}
	return result, nil
}

// Export renders one exam's results as a CSV or PDF table sorted by roll
// number. Missing student context renders as empty cells.
func (s *ResultService) Export(ctx context.Context, examID, format string) (*ExportFile, error) {
	if examID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam_id is required")
	}

	rows, err := s.repo.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load results for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Roll No", "Student", "Marks", "Total", "Grade", "Status"},
	}
	title := "Exam Results"
	for _, row := range rows {
		if row.ExamTitle != nil {
			title = *row.ExamTitle
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Roll No": deref(row.StudentRollNo),
			"Student": deref(row.StudentName),
			"Marks":   strconv.Itoa(row.Marks),
			"Total":   strconv.Itoa(row.TotalMarks),
			"Grade":   row.Grade,
			"Status":  string(row.Status),
		})
	}

	switch format {
	case "", "csv":
		content, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: fmt.Sprintf("results-%s.csv", examID), ContentType: "text/csv", Content: content}, nil
	case "pdf":
		content, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: fmt.Sprintf("results-%s.pdf", examID), ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Delete removes a result by id.
func (s *ResultService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete result")
	}
	return nil
}
