package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/examdesk/examdesk-api/internal/models"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
	"github.com/examdesk/examdesk-api/pkg/export"
	"github.com/examdesk/examdesk-api/pkg/jobs"
	"github.com/examdesk/examdesk-api/pkg/storage"
)

type hallTicketRepository interface {
	List(ctx context.Context, filter models.HallTicketFilter) ([]models.HallTicketDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.HallTicketDetail, error)
	Create(ctx context.Context, ticket *models.HallTicket) error
	Update(ctx context.Context, ticket *models.HallTicket) error
	Delete(ctx context.Context, id string) error
}

type ticketExamRepository interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type ticketRenderer interface {
	Render(data export.TicketData) ([]byte, error)
}

// HallTicketService handles admission slip workflows: CRUD plus rendering
// the printable PDF and minting short-lived download links for it.
type HallTicketService struct {
	repo        hallTicketRepository
	exams       ticketExamRepository
	renderer    ticketRenderer
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	queue       *jobs.Queue
	validator   *validator.Validate
	logger      *zap.Logger
	collegeName string
	now         func() time.Time
}

// NewHallTicketService constructs the service. queue may be nil; tickets
// are then rendered on first download instead of ahead of time.
func NewHallTicketService(repo hallTicketRepository, exams ticketExamRepository, renderer ticketRenderer, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, collegeName string) *HallTicketService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &HallTicketService{
		repo:        repo,
		exams:       exams,
		renderer:    renderer,
		store:       store,
		signer:      signer,
		validator:   validate,
		logger:      logger,
		collegeName: collegeName,
		now:         time.Now,
	}
	svc.validator.RegisterValidation("ticketstatus", func(fl validator.FieldLevel) bool {
		switch models.HallTicketStatus(fl.Field().String()) {
		case models.HallTicketStatusGenerated, models.HallTicketStatusIssued, models.HallTicketStatusCancelled:
			return true
		default:
			return false
		}
	})
	return svc
}

// AttachQueue wires the background render queue. Create then pre-renders
// PDFs off the request path.
func (s *HallTicketService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// HallTicketListRequest describes filters for listing tickets.
type HallTicketListRequest struct {
	StudentID string `json:"student_id"`
	ExamID    string `json:"exam_id"`
	Status    string `json:"status"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
}

// CreateHallTicketRequest describes create payload. The hall/seat pair is
// typed in directly and is independent of the seat allocation table.
type CreateHallTicketRequest struct {
	StudentID    string  `json:"student_id" validate:"required"`
	ExamID       string  `json:"exam_id" validate:"required"`
	SeatNumber   string  `json:"seat_number" validate:"required"`
	HallNumber   string  `json:"hall_number" validate:"required"`
	StudentPhoto *string `json:"student_photo"`
}

// UpdateHallTicketRequest describes update payload.
type UpdateHallTicketRequest struct {
	SeatNumber   string  `json:"seat_number" validate:"required"`
	HallNumber   string  `json:"hall_number" validate:"required"`
	Status       string  `json:"status" validate:"required,ticketstatus"`
	StudentPhoto *string `json:"student_photo"`
}

// List returns tickets with joined context and pagination.
func (s *HallTicketService) List(ctx context.Context, req HallTicketListRequest) ([]models.HallTicketDetail, *models.Pagination, error) {
	filter := models.HallTicketFilter{
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
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list hall tickets")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// Get returns a ticket with joined context by id.
func (s *HallTicketService) Get(ctx context.Context, id string) (*models.HallTicketDetail, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hall ticket not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load hall ticket")
	}
	return ticket, nil
}

// Create validates and stores a ticket in the generated state, then
// queues its PDF render when a queue is attached.
func (s *HallTicketService) Create(ctx context.Context, req CreateHallTicketRequest) (*models.HallTicket, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hall ticket payload")
	}

	ticket := &models.HallTicket{
		StudentID:    req.StudentID,
		ExamID:       req.ExamID,
		SeatNumber:   req.SeatNumber,
		HallNumber:   req.HallNumber,
		Status:       models.HallTicketStatusGenerated,
		StudentPhoto: req.StudentPhoto,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create hall ticket")
	}
	s.enqueueRender(ticket.ID)
	s.logger.Info("hall ticket created", zap.String("ticket_id", ticket.ID), zap.String("student_id", ticket.StudentID))
	return ticket, nil
}

// Update validates and replaces a ticket's seat, status and photo.
func (s *HallTicketService) Update(ctx context.Context, id string, req UpdateHallTicketRequest) (*models.HallTicketDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hall ticket payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail.SeatNumber = req.SeatNumber
	detail.HallNumber = req.HallNumber
	detail.Status = models.HallTicketStatus(req.Status)
	detail.StudentPhoto = req.StudentPhoto
	if err := s.repo.Update(ctx, &detail.HallTicket); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to update hall ticket")
	}
	// The stored PDF is stale now; re-render before the next download.
	if s.store != nil {
		_ = s.store.Delete(ticketFilename(id))
	}
	s.enqueueRender(id)
	return detail, nil
}

// Delete removes a ticket and its rendered PDF.
func (s *HallTicketService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete hall ticket")
	}
	if s.store != nil {
		_ = s.store.Delete(ticketFilename(id))
	}
	return nil
}

// Download returns a signed link to the ticket's PDF, rendering it first
// when no stored copy exists. Cancelled tickets cannot be downloaded.
func (s *HallTicketService) Download(ctx context.Context, id string) (*models.TicketDownload, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == models.HallTicketStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "hall ticket is cancelled")
	}

	filename := ticketFilename(id)
	if _, err := os.Stat(s.store.Path(filename)); err != nil {
		if err := s.renderToStore(ctx, ticket); err != nil {
			return nil, err
		}
	}

	url, expiresAt, err := s.signer.Generate(id, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &models.TicketDownload{TicketID: id, URL: url, ExpiresAt: expiresAt}, nil
}

// OpenDownload validates a signed token and opens the stored PDF.
func (s *HallTicketService) OpenDownload(token string) (*os.File, string, error) {
	ticketID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "rendered ticket not found")
	}
	return file, fmt.Sprintf("hall-ticket-%s.pdf", ticketID), nil
}

// RenderJob is the background queue handler; the payload is a ticket ID.
func (s *HallTicketService) RenderJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.renderToStore(ctx, ticket)
}

func (s *HallTicketService) renderToStore(ctx context.Context, ticket *models.HallTicketDetail) error {
	data := export.TicketData{
		CollegeName: s.collegeName,
		HallNumber:  ticket.HallNumber,
		SeatNumber:  ticket.SeatNumber,
		Status:      string(ticket.Status),
		IssuedOn:    s.now().Format("02 Jan 2006"),
	}
	if ticket.StudentName != nil {
		data.StudentName = *ticket.StudentName
	}
	if ticket.StudentRollNo != nil {
		data.RollNo = *ticket.StudentRollNo
	}

	exam, err := s.exams.FindByID(ctx, ticket.ExamID)
	if err == nil {
		data.ExamTitle = exam.Title
		data.Subject = exam.Subject
		data.Date = exam.Date
		data.StartTime = exam.StartTime
		data.EndTime = exam.EndTime
		data.Venue = exam.Venue
		data.Department = exam.Department
		data.Class = exam.Class
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load exam")
	}

	payload, err := s.renderer.Render(data)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render hall ticket")
	}
	if _, err := s.store.Save(ticketFilename(ticket.ID), payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store hall ticket")
	}
	return nil
}

func (s *HallTicketService) enqueueRender(ticketID string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: "ticket-render", Payload: ticketID}); err != nil {
		s.logger.Warn("ticket render enqueue failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func ticketFilename(id string) string {
	return id + ".pdf"
}
