package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statistics := router.Group("/api/statistics", middleware.RequireAuth())
	{
		statistics.GET("/overview", h.Overview)
		statistics.GET("/recent", h.Recent)
	}
}

// Overview returns monthly request counts for the dashboard chart
// @Summary      Monthly overview
// @Description  Returns request counts per month for the trailing six months; administrators see all requests, other roles their own
// @Tags         statistics
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/statistics/overview [get]
func (h *StatisticsHandler) Overview(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	buckets, err := h.statisticsService.Overview(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, buckets))
}

// Recent returns the newest visible requests for the dashboard side panel
// @Summary      Recent requests
// @Description  Returns the newest requests within the caller's visibility
// @Tags         statistics
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of requests"  default(5)
// @Success      200  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Security     BearerAuth
// @Router       /api/statistics/recent [get]
func (h *StatisticsHandler) Recent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	requests, err := h.statisticsService.Recent(c.Request.Context(), p, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}
