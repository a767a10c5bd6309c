package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/examdesk/examdesk-api/internal/models"
	"github.com/examdesk/examdesk-api/pkg/config"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
	"github.com/examdesk/examdesk-api/pkg/export"
)

type allocationExamRepository interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	GetAll(ctx context.Context) ([]models.Exam, error)
}

type allocationStudentRepository interface {
	ListByDepartmentAndClass(ctx context.Context, department, class string) ([]models.Student, error)
}

type seatAllocationRepository interface {
	ListByExam(ctx context.Context, examID string) ([]models.SeatAllocationDetail, error)
	CountByExam(ctx context.Context, examID string) (int, error)
	FindByStudentAndExam(ctx context.Context, studentID, examID string) (*models.SeatAllocation, error)
	Create(ctx context.Context, allocation *models.SeatAllocation) error
	Update(ctx context.Context, allocation *models.SeatAllocation) error
	Delete(ctx context.Context, id string) error
	BulkInsert(ctx context.Context, allocations []models.SeatAllocation) error
	RevealByExam(ctx context.Context, examID string) error
}

type seatStatusCache interface {
	GetSeatStatus(ctx context.Context, studentID, examID string) (*models.SeatStatus, bool)
	SetSeatStatus(ctx context.Context, studentID, examID string, status *models.SeatStatus)
	InvalidateExam(ctx context.Context, examID string)
}

// AllocationService assigns students to hall/seat pairs for an exam and
// gates when each student may observe their own assignment.
type AllocationService struct {
	exams    allocationExamRepository
	students allocationStudentRepository
	seats    seatAllocationRepository
	cache    seatStatusCache
	cfg      config.AllocationConfig
	logger   *zap.Logger
	metrics  *MetricsService

	now func() time.Time
	loc *time.Location

	rngMu sync.Mutex
	rng   *rand.Rand

	// inflight guards against two concurrent generation runs for the
	// same exam; the existence check alone cannot close that race.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewAllocationService constructs the allocation engine. rng may be nil,
// in which case a time-seeded source is used; tests inject a fixed seed
// to exercise structural invariants.
func NewAllocationService(exams allocationExamRepository, students allocationStudentRepository, seats seatAllocationRepository, cache seatStatusCache, cfg config.AllocationConfig, logger *zap.Logger, rng *rand.Rand) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.SeatsPerHall <= 0 {
		cfg.SeatsPerHall = 50
	}
	if cfg.RevealLead <= 0 {
		cfg.RevealLead = 3 * time.Hour
	}
	return &AllocationService{
		exams:    exams,
		students: students,
		seats:    seats,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
		rng:      rng,
		inflight: make(map[string]struct{}),
	}
}

// AttachMetrics wires allocation and sweep instrumentation. Optional.
func (s *AllocationService) AttachMetrics(metrics *MetricsService) {
	s.metrics = metrics
}

// Generate builds the randomized seat map for an exam. It no-ops when the
// exam does not exist or when any allocation already exists for it; a
// partial earlier run is never topped up. Returns the newly created rows.
func (s *AllocationService) Generate(ctx context.Context, examID string) ([]models.SeatAllocation, error) {
	if err := s.acquire(examID); err != nil {
		return nil, err
	}
	defer s.release(examID)

	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load exam")
	}

	existing, err := s.seats.CountByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to count allocations")
	}
	if existing > 0 {
		return nil, nil
	}

	eligible, err := s.students.ListByDepartmentAndClass(ctx, exam.Department, exam.Class)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load eligible students")
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	shuffled := make([]models.Student, len(eligible))
	copy(shuffled, eligible)
	s.rngMu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.rngMu.Unlock()

	allocatedAt := s.now().UTC()
	allocations := make([]models.SeatAllocation, 0, len(shuffled))
	for i, student := range shuffled {
		allocations = append(allocations, models.SeatAllocation{
			ID:          uuid.NewString(),
			ExamID:      examID,
			StudentID:   student.ID,
			HallNumber:  fmt.Sprintf("%s-%d", exam.Venue, i/s.cfg.SeatsPerHall+1),
			SeatNumber:  fmt.Sprintf("%02d", i%s.cfg.SeatsPerHall+1),
			AllocatedAt: allocatedAt,
			IsVisible:   false,
		})
	}

	if err := s.seats.BulkInsert(ctx, allocations); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to persist allocations")
	}

	s.metrics.RecordAllocationRun(len(allocations))
	s.logger.Info("seat allocations generated",
		zap.String("exam_id", examID),
		zap.Int("students", len(allocations)),
		zap.Int("halls", (len(allocations)+s.cfg.SeatsPerHall-1)/s.cfg.SeatsPerHall),
	)
	return allocations, nil
}

// Reveal flips every allocation of the exam to visible. It performs no
// time check itself; callers decide when the window is open. Cached
// seat statuses for the exam are dropped so polling students do not
// keep seeing the pre-reveal "hidden" answer for a full TTL.
func (s *AllocationService) Reveal(ctx context.Context, examID string) error {
	if err := s.seats.RevealByExam(ctx, examID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to reveal allocations")
	}
	if s.cache != nil {
		s.cache.InvalidateExam(ctx, examID)
	}
	return nil
}

// VisibleWindow evaluates the reveal gate for an exam at the given
// instant. The window is [start-RevealLead, start): once the exam begins
// the seat is hidden again. The second return value is the remaining wait
// before the window opens, zero when it already has.
func (s *AllocationService) VisibleWindow(exam models.Exam, now time.Time) (bool, time.Duration) {
	start := exam.StartsAt(s.loc)
	if start.IsZero() {
		return false, 0
	}
	revealAt := start.Add(-s.cfg.RevealLead)
	if now.Before(revealAt) {
		return false, revealAt.Sub(now)
	}
	if now.Before(start) {
		return true, 0
	}
	return false, 0
}

// ListByExam returns every allocation of the exam with joined context,
// regardless of visibility. This is the staff-facing view.
func (s *AllocationService) ListByExam(ctx context.Context, examID string) ([]models.SeatAllocationDetail, error) {
	allocations, err := s.seats.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to list allocations")
	}
	return allocations, nil
}

// StudentSeat returns the student-facing view of their seat for one exam.
// The allocation is attached only while the reveal window is open and the
// row itself is flagged visible; absence is not an error.
func (s *AllocationService) StudentSeat(ctx context.Context, studentID, examID string) (*models.SeatStatus, error) {
	if s.cache != nil {
		if status, ok := s.cache.GetSeatStatus(ctx, studentID, examID); ok {
			return status, nil
		}
	}

	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load exam")
	}

	status := &models.SeatStatus{ExamID: examID}
	visible, revealIn := s.VisibleWindow(*exam, s.now())
	status.Visible = visible
	if !visible {
		if revealIn > 0 {
			secs := int64(revealIn / time.Second)
			status.RevealIn = &secs
		}
		s.cacheStatus(ctx, studentID, examID, status)
		return status, nil
	}

	allocation, err := s.seats.FindByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.cacheStatus(ctx, studentID, examID, status)
			return status, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load allocation")
	}
	if allocation.IsVisible {
		status.Allocation = allocation
	}
	s.cacheStatus(ctx, studentID, examID, status)
	return status, nil
}

// SweepVisibility walks every exam and, for each one inside its reveal
// window, generates missing allocations and reveals them. Both steps are
// idempotent so overlapping sweeps converge. Returns how many exams were
// processed.
func (s *AllocationService) SweepVisibility(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(started)) }()

	exams, err := s.exams.GetAll(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load exams for sweep")
	}

	now := s.now()
	processed := 0
	for _, exam := range exams {
		visible, _ := s.VisibleWindow(exam, now)
		if !visible {
			continue
		}
		if _, err := s.Generate(ctx, exam.ID); err != nil {
			var appErr *appErrors.Error
			if errors.As(err, &appErr) && appErr.Code == appErrors.ErrRaceCondition.Code {
				continue
			}
			s.logger.Warn("sweep generation failed", zap.String("exam_id", exam.ID), zap.Error(err))
			continue
		}
		if err := s.Reveal(ctx, exam.ID); err != nil {
			s.logger.Warn("sweep reveal failed", zap.String("exam_id", exam.ID), zap.Error(err))
			continue
		}
		processed++
	}
	return processed, nil
}

// ExportSeating renders the exam's full seating chart as a CSV or PDF
// table. Visibility flags do not apply; this is the staff-facing view.
func (s *AllocationService) ExportSeating(ctx context.Context, examID, format string) (*ExportFile, error) {
	rows, err := s.seats.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to load allocations for export")
	}

	dataset := export.Dataset{
		Headers: []string{"Hall", "Seat", "Roll No", "Student"},
	}
	title := "Seating Chart"
	for _, row := range rows {
		if row.ExamTitle != nil {
			title = *row.ExamTitle + " Seating"
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Hall":    row.HallNumber,
			"Seat":    row.SeatNumber,
			"Roll No": deref(row.StudentRollNo),
			"Student": deref(row.StudentName),
		})
	}

	switch format {
	case "", "csv":
		content, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: fmt.Sprintf("seating-%s.csv", examID), ContentType: "text/csv", Content: content}, nil
	case "pdf":
		content, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: fmt.Sprintf("seating-%s.pdf", examID), ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// CreateManual inserts a hand-entered allocation row.
func (s *AllocationService) CreateManual(ctx context.Context, allocation *models.SeatAllocation) (*models.SeatAllocation, error) {
	if allocation.ExamID == "" || allocation.StudentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam and student are required")
	}
	if err := s.seats.Create(ctx, allocation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to create allocation")
	}
	return allocation, nil
}

// Delete removes an allocation row by ID.
func (s *AllocationService) Delete(ctx context.Context, id string) error {
	if err := s.seats.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStore.Code, appErrors.ErrStore.Status, "failed to delete allocation")
	}
	return nil
}

func (s *AllocationService) cacheStatus(ctx context.Context, studentID, examID string, status *models.SeatStatus) {
	if s.cache != nil {
		s.cache.SetSeatStatus(ctx, studentID, examID, status)
	}
}

func (s *AllocationService) acquire(examID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[examID]; busy {
		return appErrors.Clone(appErrors.ErrRaceCondition, "")
	}
	s.inflight[examID] = struct{}{}
	return nil
}

func (s *AllocationService) release(examID string) {
	s.mu.Lock()
	delete(s.inflight, examID)
	s.mu.Unlock()
}
