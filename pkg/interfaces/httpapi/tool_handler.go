package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/application/services/tools"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

type ToolHandler struct {
	tools *tools.Service
}

func NewToolHandler(s *tools.Service) *ToolHandler {
	return &ToolHandler{tools: s}
}

// GET /api/v1/tools
func (h *ToolHandler) List(c *gin.Context) {
	ts, err := h.tools.List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"tools": dto.FromTools(ts)})
}

// POST /api/v1/tools
func (h *ToolHandler) AddBatch(c *gin.Context) {
	var req dto.AddToolBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	condition := entities.ConditionGood
	if req.Condition != "" {
		condition = entities.Condition(req.Condition)
	}
	ts, err := h.tools.AddToolBatch(c.Request.Context(), req.ItemType, req.Count, condition)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"tools": dto.FromTools(ts)})
}

// POST /api/v1/tools/:id/checkout
func (h *ToolHandler) CheckOut(c *gin.Context) {
	toolID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CheckOutRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.tools.CheckOut(c.Request.Context(), toolID, req.TechnicianID, req.JobID, req.ExpectedReturn)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromToolAssignment(a))
}

// POST /api/v1/tools/:id/return
func (h *ToolHandler) Return(c *gin.Context) {
	toolID, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.tools.Return(c.Request.Context(), toolID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromToolAssignment(a))
}
