package handler

import (
	"net/http"

	"threadcraft/internal/api/dto"
	"threadcraft/internal/domain"
	"threadcraft/internal/engine"
	"threadcraft/internal/service"

	"github.com/gin-gonic/gin"
)

type WorkflowHandler struct {
	service service.WorkflowService
}

func NewWorkflowHandler(svc service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: svc}
}

// RegisterDefinition handles POST /definitions
func (h *WorkflowHandler) RegisterDefinition(c *gin.Context) {
	var req dto.RegisterDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	def := req.ToDefinition()
	if err := h.service.RegisterDefinition(c.Request.Context(), def); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewDefinitionResponse(def))
}

// ListDefinitions handles GET /definitions
func (h *WorkflowHandler) ListDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SortedDefinitions(h.service.Definitions(c.Request.Context())))
}

// GetDefinition handles GET /definitions/:name
func (h *WorkflowHandler) GetDefinition(c *gin.Context) {
	def, err := h.service.Definition(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewDefinitionResponse(def))
}

// CreateWorkflow handles POST /workflows
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	var req dto.CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	state, err := h.service.CreateWorkflow(c.Request.Context(), req.WorkflowType, engine.CreateOptions{
		InitialStep: domain.StepID(req.InitialStep),
		WorkflowID:  req.WorkflowID,
		Metadata:    domain.Metadata{Actor: req.Actor, Notes: req.Notes},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewWorkflowResponse(state))
}

// ListActiveWorkflows handles GET /workflows?type=
func (h *WorkflowHandler) ListActiveWorkflows(c *gin.Context) {
	states := h.service.ListActiveWorkflows(c.Request.Context(), c.Query("type"))

	out := make([]dto.WorkflowResponse, 0, len(states))
	for _, s := range states {
		out = append(out, dto.NewWorkflowResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

// GetWorkflow handles GET /workflows/:id
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	state, err := h.service.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWorkflowResponse(state))
}

// GetHistory handles GET /workflows/:id/history
func (h *WorkflowHandler) GetHistory(c *gin.Context) {
	history, err := h.service.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewHistoryResponse(history))
}

// Transition handles POST /workflows/:id/transitions
func (h *WorkflowHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	state, err := h.service.Transition(c.Request.Context(), c.Param("id"), domain.StepID(req.TargetStep), domain.Metadata{
		Actor: req.Actor,
		Notes: req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewWorkflowResponse(state))
}
