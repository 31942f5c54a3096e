package handler

import (
	"net/http"

	"threadcraft/internal/api/dto"
	"threadcraft/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	service service.AnalyticsService
}

func NewAnalyticsHandler(svc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Performance handles GET /analytics/:type/performance
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	metrics, err := h.service.Performance(c.Request.Context(), c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPerformanceResponse(metrics))
}

// Patterns handles GET /analytics/:type/patterns
func (h *AnalyticsHandler) Patterns(c *gin.Context) {
	patterns, err := h.service.Patterns(c.Request.Context(), c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPatternsResponse(patterns))
}

// Predictive handles GET /analytics/:type/predictive
func (h *AnalyticsHandler) Predictive(c *gin.Context) {
	predictive, err := h.service.Predictive(c.Request.Context(), c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPredictiveResponse(predictive))
}

// Recommendations handles GET /analytics/:type/recommendations
func (h *AnalyticsHandler) Recommendations(c *gin.Context) {
	insights, err := h.service.Recommendations(c.Request.Context(), c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}
