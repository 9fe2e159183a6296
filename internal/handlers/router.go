package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"ui2sql-backend/internal/events"
	"ui2sql-backend/internal/middleware"
	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/upload"
	"ui2sql-backend/internal/workflow"
)

type RouterDeps struct {
	Acceptor     *upload.Acceptor
	Orchestrator *workflow.Orchestrator
	Hub          *events.Hub
	Logger       *slog.Logger
}

// NewRouter wires every route of the API onto a fresh gin engine.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	uploadHandler := NewUploadHandler(deps.Acceptor, deps.Orchestrator, logger)
	workflowHandler := NewWorkflowHandler(deps.Orchestrator)
	eventsHandler := NewEventsHandler(deps.Hub, deps.Orchestrator)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))

	// Health check
	router.GET("/health", HealthHandler)

	api := router.Group("/api/v1")

	// Upload and previews
	api.POST("/upload", uploadHandler.Upload)
	api.DELETE("/upload", uploadHandler.Remove)
	api.GET("/previews/:preview_id", uploadHandler.Preview)

	// Workflow
	api.GET("/workflow", workflowHandler.GetWorkflow)
	api.PUT("/sql", workflowHandler.EditSQL)
	api.POST("/execute", workflowHandler.Execute)
	api.PUT("/view", workflowHandler.SelectView)

	// Server-sent events
	api.GET("/events", eventsHandler.Stream)

	return router
}

// HealthHandler godoc
// @Summary     Health check
// @Description Returns the health status of the API
// @Tags        health
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{Status: "ok"})
}
