package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/application/dto"
	"github.com/vsinha/fieldflow/pkg/application/services/conflict"
	"github.com/vsinha/fieldflow/pkg/application/services/forecast"
	"github.com/vsinha/fieldflow/pkg/application/services/planning"
	"github.com/vsinha/fieldflow/pkg/application/services/scheduling"
	"github.com/vsinha/fieldflow/pkg/application/services/suggestion"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

// PlanningHandler serves the scheduling, forecasting and advisory endpoints
type PlanningHandler struct {
	scheduler   *scheduling.Scheduler
	conflicts   *conflict.Detector
	forecaster  *forecast.MaterialForecaster
	planner     *planning.Planner
	suggestions *suggestion.Engine
}

func NewPlanningHandler(
	scheduler *scheduling.Scheduler,
	conflicts *conflict.Detector,
	forecaster *forecast.MaterialForecaster,
	planner *planning.Planner,
	suggestions *suggestion.Engine,
) *PlanningHandler {
	return &PlanningHandler{
		scheduler:   scheduler,
		conflicts:   conflicts,
		forecaster:  forecaster,
		planner:     planner,
		suggestions: suggestions,
	}
}

// GET /api/v1/jobs/:id/critical-path
func (h *PlanningHandler) CriticalPath(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	analysis, err := h.scheduler.GetCriticalPath(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromCriticalPath(analysis))
}

// GET /api/v1/jobs/:id/planning
func (h *PlanningHandler) GeneratePlanning(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.planner.GeneratePlanning(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromPlanning(res))
}

// POST /api/v1/jobs/:id/reschedule
func (h *PlanningHandler) Reschedule(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	moved, err := h.scheduler.RescheduleUnlocked(c.Request.Context(), jobID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if moved == nil {
		moved = []uuid.UUID{}
	}
	RespondOK(c, gin.H{"moved": moved})
}

// GET /api/v1/tasks/:id/conflicts
func (h *PlanningHandler) Conflicts(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cs, err := h.conflicts.CheckConflicts(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"conflicts": dto.FromConflicts(cs)})
}

// GET /api/v1/tasks/:id/forecast
func (h *PlanningHandler) Forecast(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	issues, err := h.forecaster.ForecastMaterialForJob(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"issues": dto.FromForecastIssues(issues)})
}

// GET /api/v1/tasks/:id/validation
func (h *PlanningHandler) ValidateSchedule(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.scheduler.ValidateSchedule(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromScheduleValidation(v))
}

// GET /api/v1/tasks/:id/optimal-start
func (h *PlanningHandler) OptimalStart(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	start, err := h.scheduler.FindOptimalStartDate(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"task_id": taskID, "optimal_start": start})
}

// GET /api/v1/tasks/:id/available-technician
func (h *PlanningHandler) AvailableTechnician(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	tech, err := h.scheduler.FindEarliestAvailableTechnician(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if tech == nil {
		RespondOK(c, gin.H{"task_id": taskID, "technician": nil})
		return
	}
	RespondOK(c, gin.H{"task_id": taskID, "technician": gin.H{"id": tech.ID, "name": tech.Name}})
}

// PUT /api/v1/tasks/:id/technician
func (h *PlanningHandler) AssignTechnician(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignTechnicianRequest
	if !bindJSON(c, &req) {
		return
	}
	assigned, err := h.scheduler.AssignTechnician(c.Request.Context(), taskID, req.TechnicianID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"task_id": taskID, "assigned": assigned})
}

// POST /api/v1/tasks/:id/dependencies
func (h *PlanningHandler) AddDependency(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddDependencyRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.scheduler.AddDependency(c.Request.Context(), taskID, req.PrerequisiteTaskID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/tasks/:id/slot
func (h *PlanningHandler) CreateSlot(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	slot, err := h.scheduler.CreateSlot(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, dto.FromSlot(slot))
}

// POST /api/v1/slots/:id/lock and /unlock
func (h *PlanningHandler) SetSlotLock(locked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		slotID, ok := pathID(c, "id")
		if !ok {
			return
		}
		lock := h.scheduler.UnlockSlot
		if locked {
			lock = h.scheduler.LockSlot
		}
		slot, err := lock(c.Request.Context(), slotID)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		RespondOK(c, dto.FromSlot(slot))
	}
}

// GET /api/v1/tasks/:id/suggestions
func (h *PlanningHandler) Suggestions(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ss, err := h.suggestions.GenerateSuggestions(c.Request.Context(), taskID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": dto.FromSuggestions(ss)})
}

// GET /api/v1/materials/:id/availability?qty=
func (h *PlanningHandler) MaterialAvailability(c *gin.Context) {
	materialID, ok := pathID(c, "id")
	if !ok {
		return
	}
	qty, err := decimal.NewFromString(c.Query("qty"))
	if err != nil {
		RespondDomainError(c, errs.Validation("qty must be a decimal, got %q", c.Query("qty")))
		return
	}
	date, found, err := h.forecaster.FindEarliestAvailabilityDate(c.Request.Context(), materialID, qty)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := dto.Availability{MaterialID: materialID, Quantity: qty, Available: found}
	if found {
		out.Date = &date
	}
	RespondOK(c, out)
}
