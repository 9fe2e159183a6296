package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/workflow"
)

type WorkflowHandler struct {
	orchestrator *workflow.Orchestrator
}

func NewWorkflowHandler(orchestrator *workflow.Orchestrator) *WorkflowHandler {
	return &WorkflowHandler{
		orchestrator: orchestrator,
	}
}

// GetWorkflow godoc
// @Summary     Current workflow state
// @Description Returns the stage, step list, active view, view availability and all results of the current run.
// @Tags        workflow
// @Produce     json
// @Success     200 {object} workflow.Snapshot
// @Router      /workflow [get]
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.Snapshot())
}

// EditSQL godoc
// @Summary     Replace the editable SQL text
// @Description The edited text is what Execute runs. Generated tables and explanation are unchanged.
// @Tags        workflow
// @Accept      json
// @Produce     json
// @Param       request body models.EditSQLRequest true "SQL text"
// @Success     200 {object} workflow.Snapshot
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /sql [put]
func (h *WorkflowHandler) EditSQL(c *gin.Context) {
	var req models.EditSQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.orchestrator.EditSQL(req.SQL); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.orchestrator.Snapshot())
}

// Execute godoc
// @Summary     Execute the current SQL
// @Description Starts execution of the generated (or edited) SQL. The result view becomes active when it completes.
// @Tags        workflow
// @Produce     json
// @Success     202 {object} models.ExecuteResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /execute [post]
func (h *WorkflowHandler) Execute(c *gin.Context) {
	if _, err := h.orchestrator.Execute(context.WithoutCancel(c.Request.Context())); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, models.ExecuteResponse{
		Status: workflow.StateAwaitingExecution.String(),
	})
}

// SelectView godoc
// @Summary     Switch the active view
// @Tags        workflow
// @Accept      json
// @Produce     json
// @Param       request body models.SelectViewRequest true "View name"
// @Success     200 {object} workflow.Snapshot
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /view [put]
func (h *WorkflowHandler) SelectView(c *gin.Context) {
	var req models.SelectViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	view, err := workflow.ParseView(req.View)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid view",
			Message: err.Error(),
		})
		return
	}

	if err := h.orchestrator.SelectView(view); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.orchestrator.Snapshot())
}

func writeWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrBusy):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "workflow busy", Message: err.Error()})
	case errors.Is(err, workflow.ErrNotReady):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "not ready", Message: err.Error()})
	case errors.Is(err, workflow.ErrViewUnavailable):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "view unavailable", Message: err.Error()})
	case errors.Is(err, workflow.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "shutting down", Message: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error", Message: err.Error()})
	}
}
