package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/application/services/workflow"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

type WorkflowHandler struct {
	orchestrator *workflow.Orchestrator
}

func NewWorkflowHandler(o *workflow.Orchestrator) *WorkflowHandler {
	return &WorkflowHandler{orchestrator: o}
}

// POST /api/v1/jobs/:id/accept
func (h *WorkflowHandler) AcceptJob(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.orchestrator.AcceptJob(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromBatch(batch))
}

// GET /api/v1/jobs/:id/workflow
func (h *WorkflowHandler) GetWorkflowStatus(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := h.orchestrator.GetWorkflowStatus(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromWorkflowStatus(status))
}

// GET /api/v1/jobs/:id/events
func (h *WorkflowHandler) JobEvents(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	history, err := h.orchestrator.JobEvents(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"events": dto.FromEvents(history)})
}

// POST /api/v1/jobs/:id/close
func (h *WorkflowHandler) CloseJob(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.orchestrator.CloseJobWithValidation(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromCloseResult(res))
}

// POST /api/v1/batches/:id/receive
func (h *WorkflowHandler) ReceiveBatch(c *gin.Context) {
	batchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceiveBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.orchestrator.ReceiveEquipmentBatch(c.Request.Context(), batchID, req.Quantities())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromReceiveResult(res))
}

// POST /api/v1/tasks/:id/equipment-lines
func (h *WorkflowHandler) AssignEquipmentLine(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignEquipmentLineRequest
	if !bindJSON(c, &req) {
		return
	}
	link, err := h.orchestrator.AssignEquipmentLine(c.Request.Context(), taskID, req.LineID, entities.Quantity(req.Quantity), req.Notes)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromTaskEquipmentLine(link))
}

// POST /api/v1/batches/:id/ship
func (h *WorkflowHandler) ShipBatch(c *gin.Context) {
	batchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.orchestrator.ShipEquipmentBatch(c.Request.Context(), batchID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromBatch(batch))
}

// GET /api/v1/batches/:id/discrepancies
func (h *WorkflowHandler) ListDiscrepancies(c *gin.Context) {
	batchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ds, err := h.orchestrator.ListDiscrepancies(c.Request.Context(), batchID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"discrepancies": dto.FromDiscrepancies(ds)})
}

// POST /api/v1/tasks/:id/complete
func (h *WorkflowHandler) CompleteTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.orchestrator.CompleteTaskWithEquipment(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromTaskCompletion(res))
}

// POST /api/v1/snapshots/rebuild
func (h *WorkflowHandler) RebuildSnapshots(c *gin.Context) {
	snaps, err := h.orchestrator.RebuildSiteEquipmentSnapshots(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshots": dto.FromSnapshots(snaps)})
}

// GET /api/v1/sites/:id/equipment
func (h *WorkflowHandler) SiteEquipment(c *gin.Context) {
	siteID, ok := pathID(c, "id")
	if !ok {
		return
	}
	snaps, err := h.orchestrator.SiteEquipment(c.Request.Context(), siteID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshots": dto.FromSnapshots(snaps)})
}
