package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/examdesk-api/internal/service"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
	"github.com/examdesk/examdesk-api/pkg/response"
)

// HallTicketHandler exposes hall ticket endpoints.
type HallTicketHandler struct {
	service *service.HallTicketService
}

// NewHallTicketHandler constructs a hall ticket handler.
func NewHallTicketHandler(svc *service.HallTicketService) *HallTicketHandler {
	return &HallTicketHandler{service: svc}
}

// List godoc
// @Summary List hall tickets
// @Tags HallTickets
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param exam_id query string false "Filter by exam"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /hall-tickets [get]
func (h *HallTicketHandler) List(c *gin.Context) {
	var req service.HallTicketListRequest
	req.StudentID = c.Query("student_id")
	req.ExamID = c.Query("exam_id")
	req.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		req.PageSize = size
	}

	tickets, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tickets, pagination)
}

// Get godoc
// @Summary Get hall ticket
// @Tags HallTickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Envelope
// @Router /hall-tickets/{id} [get]
func (h *HallTicketHandler) Get(c *gin.Context) {
	ticket, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket, nil)
}

// Create godoc
// @Summary Create hall ticket
// @Tags HallTickets
// @Accept json
// @Produce json
// @Param payload body service.CreateHallTicketRequest true "Ticket payload"
// @Success 201 {object} response.Envelope
// @Router /hall-tickets [post]
func (h *HallTicketHandler) Create(c *gin.Context) {
	var req service.CreateHallTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ticket, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// Update godoc
// @Summary Update hall ticket
// @Tags HallTickets
// @Accept json
// @Produce json
// @Param id path string true "Ticket ID"
// @Param payload body service.UpdateHallTicketRequest true "Ticket payload"
// @Success 200 {object} response.Envelope
// @Router /hall-tickets/{id} [put]
func (h *HallTicketHandler) Update(c *gin.Context) {
	var req service.UpdateHallTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ticket, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ticket, nil)
}

// Delete godoc
// @Summary Delete hall ticket
// @Tags HallTickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 204
// @Router /hall-tickets/{id} [delete]
func (h *HallTicketHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Mint a signed download link for the ticket PDF
// @Tags HallTickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Envelope
// @Router /hall-tickets/{id}/download [post]
func (h *HallTicketHandler) Download(c *gin.Context) {
	download, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// ServeDownload godoc
// @Summary Stream a rendered ticket PDF for a signed token
// @Tags HallTickets
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file "PDF document"
// @Router /hall-tickets/download [get]
func (h *HallTicketHandler) ServeDownload(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, filename, err := h.service.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	modTime := time.Time{}
	if info, statErr := file.Stat(); statErr == nil {
		modTime = info.ModTime()
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	http.ServeContent(c.Writer, c.Request, filename, modTime, file)
}
