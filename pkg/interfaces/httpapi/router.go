// Package httpapi exposes the fieldflow services over a gin JSON API.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	Gatherer        prometheus.Gatherer // nil disables /metrics
	WorkflowHandler *WorkflowHandler
	PlanningHandler *PlanningHandler
	ToolHandler     *ToolHandler
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Log != nil {
		r.Use(RequestLogger(cfg.Log))
	}

	r.GET("/health", HealthCheck)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")

	if h := cfg.WorkflowHandler; h != nil {
		api.POST("/jobs/:id/accept", h.AcceptJob)
		api.GET("/jobs/:id/workflow", h.GetWorkflowStatus)
		api.GET("/jobs/:id/events", h.JobEvents)
		api.POST("/jobs/:id/close", h.CloseJob)
		api.POST("/batches/:id/receive", h.ReceiveBatch)
		api.POST("/batches/:id/ship", h.ShipBatch)
		api.GET("/batches/:id/discrepancies", h.ListDiscrepancies)
		api.POST("/tasks/:id/equipment-lines", h.AssignEquipmentLine)
		api.POST("/tasks/:id/complete", h.CompleteTask)
		api.POST("/snapshots/rebuild", h.RebuildSnapshots)
		api.GET("/sites/:id/equipment", h.SiteEquipment)
	}

	if h := cfg.PlanningHandler; h != nil {
		api.GET("/jobs/:id/critical-path", h.CriticalPath)
		api.GET("/jobs/:id/planning", h.GeneratePlanning)
		api.POST("/jobs/:id/reschedule", h.Reschedule)
		api.GET("/tasks/:id/conflicts", h.Conflicts)
		api.GET("/tasks/:id/forecast", h.Forecast)
		api.GET("/tasks/:id/validation", h.ValidateSchedule)
		api.GET("/tasks/:id/optimal-start", h.OptimalStart)
		api.GET("/tasks/:id/available-technician", h.AvailableTechnician)
		api.PUT("/tasks/:id/technician", h.AssignTechnician)
		api.POST("/tasks/:id/dependencies", h.AddDependency)
		api.POST("/tasks/:id/slot", h.CreateSlot)
		api.GET("/tasks/:id/suggestions", h.Suggestions)
		api.POST("/slots/:id/lock", h.SetSlotLock(true))
		api.POST("/slots/:id/unlock", h.SetSlotLock(false))
		api.GET("/materials/:id/availability", h.MaterialAvailability)
	}

	if h := cfg.ToolHandler; h != nil {
		api.GET("/tools", h.List)
		api.POST("/tools", h.AddBatch)
		api.POST("/tools/:id/checkout", h.CheckOut)
		api.POST("/tools/:id/return", h.Return)
	}

	return r
}
