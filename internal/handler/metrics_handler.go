package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/examdesk/examdesk-api/internal/service"
)

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: svc}
}

// Scrape godoc
// @Summary Prometheus metrics
// @Tags Metrics
// @Produce text/plain
// @Success 200 {string} string "metrics exposition"
// @Router /metrics [get]
func (h *MetricsHandler) Scrape(c *gin.Context) {
	h.service.Handler().ServeHTTP(c.Writer, c.Request)
}
