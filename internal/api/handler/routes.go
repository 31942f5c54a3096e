package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts the API under /api/v1 plus health and metrics endpoints.
func RegisterRoutes(router *gin.Engine, workflows *WorkflowHandler, analytics *AnalyticsHandler, gatherer prometheus.Gatherer) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/definitions", workflows.ListDefinitions)
		api.POST("/definitions", workflows.RegisterDefinition)
		api.GET("/definitions/:name", workflows.GetDefinition)

		api.GET("/workflows", workflows.ListActiveWorkflows)
		api.POST("/workflows", workflows.CreateWorkflow)
		api.GET("/workflows/:id", workflows.GetWorkflow)
		api.GET("/workflows/:id/history", workflows.GetHistory)
		api.POST("/workflows/:id/transitions", workflows.Transition)

		api.GET("/analytics/:type/performance", analytics.Performance)
		api.GET("/analytics/:type/patterns", analytics.Patterns)
		api.GET("/analytics/:type/predictive", analytics.Predictive)
		api.GET("/analytics/:type/recommendations", analytics.Recommendations)
	}
}
