package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/apnishop-api/internal/dto"
	"github.com/flicky/apnishop-api/internal/service"
)

type AdminHandler struct {
	statsService *service.StatsService
}

func NewAdminHandler(statsService *service.StatsService) *AdminHandler {
	return &AdminHandler{statsService: statsService}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStatsResponse(stats))
}
