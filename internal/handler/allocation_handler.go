package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/examdesk-api/internal/models"
	"github.com/examdesk/examdesk-api/internal/service"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
	"github.com/examdesk/examdesk-api/pkg/response"
)

// AllocationHandler exposes seat allocation endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler constructs an allocation handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// ListByExam godoc
// @Summary List an exam's seat allocations
// @Tags Allocations
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/allocations [get]
func (h *AllocationHandler) ListByExam(c *gin.Context) {
	allocations, err := h.service.ListByExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, nil)
}

// Generate godoc
// @Summary Generate randomized seat allocations for an exam
// @Description No-ops when the exam already has allocations. Seats start
// @Description hidden until the reveal window opens.
// @Tags Allocations
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/allocations/generate [post]
func (h *AllocationHandler) Generate(c *gin.Context) {
	created, err := h.service.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"generated": len(created)}, nil)
}

// Reveal godoc
// @Summary Reveal an exam's seat allocations
// @Tags Allocations
// @Produce json
// @Param id path string true "Exam ID"
// @Success 204
// @Router /exams/{id}/allocations/reveal [post]
func (h *AllocationHandler) Reveal(c *gin.Context) {
	if err := h.service.Reveal(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export an exam's seating chart as CSV or PDF
// @Tags Allocations
// @Produce text/csv
// @Param id path string true "Exam ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {string} string "rendered table"
// @Router /exams/{id}/allocations/export [get]
func (h *AllocationHandler) Export(c *gin.Context) {
	file, err := h.service.ExportSeating(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// SeatStatus godoc
// @Summary Seat status for one student in one exam
// @Description Returns the seat only inside the reveal window; before it
// @Description opens the response carries a countdown instead.
// @Tags Allocations
// @Produce json
// @Param id path string true "Exam ID"
// @Param student_id query string false "Student ID, defaults to the caller; staff only"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/seat [get]
func (h *AllocationHandler) SeatStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	studentID := c.Query("student_id")
	if studentID == "" {
		if claims != nil {
			studentID = claims.UserID
		}
	} else if claims != nil && claims.Role == models.RoleStudent && studentID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only view their own seat"))
		return
	}
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}

	status, err := h.service.StudentSeat(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// CreateSeatAllocationRequest describes a manual seat entry.
type CreateSeatAllocationRequest struct {
	ExamID     string `json:"exam_id" binding:"required"`
	StudentID  string `json:"student_id" binding:"required"`
	HallNumber string `json:"hall_number" binding:"required"`
	SeatNumber string `json:"seat_number" binding:"required"`
}

// Create godoc
// @Summary Manually create a seat allocation
// @Tags Allocations
// @Accept json
// @Produce json
// @Param payload body handler.CreateSeatAllocationRequest true "Allocation payload"
// @Success 201 {object} response.Envelope
// @Router /allocations [post]
func (h *AllocationHandler) Create(c *gin.Context) {
	var req CreateSeatAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	allocation, err := h.service.CreateManual(c.Request.Context(), &models.SeatAllocation{
		ExamID:     req.ExamID,
		StudentID:  req.StudentID,
		HallNumber: req.HallNumber,
		SeatNumber: req.SeatNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, allocation)
}

// Delete godoc
// @Summary Delete a seat allocation
// @Tags Allocations
// @Produce json
// @Param id path string true "Allocation ID"
// @Success 204
// @Router /allocations/{id} [delete]
func (h *AllocationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
