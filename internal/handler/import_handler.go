package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/examdesk-api/internal/service"
	appErrors "github.com/examdesk/examdesk-api/pkg/errors"
	"github.com/examdesk/examdesk-api/pkg/response"
)

// ImportHandler exposes bulk upload endpoints.
type ImportHandler struct {
	service   *service.ImportService
	maxUpload int64
}

// NewImportHandler constructs an import handler.
func NewImportHandler(svc *service.ImportService, maxUpload int64) *ImportHandler {
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	return &ImportHandler{service: svc, maxUpload: maxUpload}
}

// Upload godoc
// @Summary Bulk import records from a delimited file
// @Description Accepts kinds: students, exams, results, hall-tickets,
// @Description seat-allocations. Rejected rows are reported, not fatal.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param kind path string true "Import kind"
// @Param file formData file true "Delimited file"
// @Success 200 {object} response.Envelope
// @Router /imports/{kind} [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}
	if fileHeader.Size > h.maxUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "uploaded file is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, h.maxUpload))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	ctx := c.Request.Context()
	var outcome *service.ImportOutcome
	switch c.Param("kind") {
	case "students":
		outcome, err = h.service.Students(ctx, string(raw))
	case "exams":
		outcome, err = h.service.Exams(ctx, string(raw))
	case "results":
		outcome, err = h.service.Results(ctx, string(raw))
	case "hall-tickets":
		outcome, err = h.service.HallTickets(ctx, string(raw))
	case "seat-allocations":
		outcome, err = h.service.SeatAllocations(ctx, string(raw))
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown import kind"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Template godoc
// @Summary Download the sample file for an import kind
// @Tags Imports
// @Produce text/csv
// @Param kind path string true "Import kind"
// @Success 200 {string} string "CSV template"
// @Router /imports/{kind}/template [get]
func (h *ImportHandler) Template(c *gin.Context) {
	tmpl, err := h.service.Template(c.Param("kind"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+tmpl.Filename+`"`)
	c.Data(http.StatusOK, "text/csv", []byte(tmpl.Content))
}
