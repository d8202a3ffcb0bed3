package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	accessService     service.AccessService
}

func NewStatisticsHandler(statisticsService service.StatisticsService, accessService service.AccessService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, accessService: accessService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	stats := router.Group("/api/statistics")
	{
		stats.GET("/summary", middleware.RequireAuth(), h.GetSalesSummary)
		stats.GET("/analytics", middleware.RequireRole(model.RoleAdmin, model.RoleManager), h.GetSalesAnalytics)
	}
}

// GetSalesSummary returns today's, this month's and all-time sales totals
// @Summary      Sales summary
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.SalesSummary}
// @Failure      500  {object}  response.Response
// @Router       /api/statistics/summary [get]
func (h *StatisticsHandler) GetSalesSummary(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	summary, err := h.statisticsService.GetSalesSummary(c.Request.Context(), scope)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetSalesAnalytics returns payment breakdowns, top medicines and a daily series
// @Summary      Sales analytics
// @Tags         statistics
// @Security     BearerAuth
// @Produce      json
// @Param        period  query  string  false  "Period: day, week, month or year (default month)"
// @Success      200  {object}  response.Response{data=service.SalesAnalytics}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/statistics/analytics [get]
func (h *StatisticsHandler) GetSalesAnalytics(c *gin.Context) {
	_, scope, ok := actorAndScope(c, h.accessService)
	if !ok {
		return
	}

	period := c.DefaultQuery("period", "month")
	analytics, err := h.statisticsService.GetSalesAnalytics(c.Request.Context(), scope, period)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, analytics))
}
