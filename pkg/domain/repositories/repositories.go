package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

// JobRepository provides access to jobs and their equipment requirements.
// GetJob returns the job with Requirements loaded.
type JobRepository interface {
	GetJob(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	ListJobs(ctx context.Context) ([]*entities.Job, error)
	CreateJob(ctx context.Context, job *entities.Job) error
	UpdateJob(ctx context.Context, job *entities.Job) error
	AddRequirement(ctx context.Context, req *entities.JobRequirement) error
}

// TaskFilter narrows ListTasks. Zero-valued fields are ignored.
type TaskFilter struct {
	JobID        *uuid.UUID
	TechnicianID *uuid.UUID
	// OverlapFrom and OverlapTo select tasks whose window intersects [from,to]
	OverlapFrom *time.Time
	OverlapTo   *time.Time
	// StartsBy selects tasks whose start date is on or before the given time
	StartsBy *time.Time
}

// TaskRepository provides access to tasks, their dependency graph and slots.
// Returned tasks carry Prerequisites, Materials and EquipmentLines.
type TaskRepository interface {
	GetTask(ctx context.Context, id uuid.UUID) (*entities.JobTask, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*entities.JobTask, error)
	CreateTask(ctx context.Context, task *entities.JobTask) error
	UpdateTask(ctx context.Context, task *entities.JobTask) error

	AddDependency(ctx context.Context, dep entities.TaskDependency) error
	ListDependencies(ctx context.Context, jobID uuid.UUID) ([]entities.TaskDependency, error)

	AddMaterialRequirement(ctx context.Context, req *entities.MaterialRequirement) error

	LinkEquipmentLine(ctx context.Context, link entities.TaskEquipmentLine) error
	// ListTaskLinksForLine returns every task link that consumes the line
	ListTaskLinksForLine(ctx context.Context, lineID uuid.UUID) ([]entities.TaskEquipmentLine, error)

	GetSlot(ctx context.Context, id uuid.UUID) (*entities.ScheduleSlot, error)
	GetSlotForTask(ctx context.Context, taskID uuid.UUID) (*entities.ScheduleSlot, error)
	SaveSlot(ctx context.Context, slot *entities.ScheduleSlot) error
}

// ResourceRepository provides access to technicians, tools and materials.
// ListTechnicians orders by name then id so first-fit searches are stable.
type ResourceRepository interface {
	GetTechnician(ctx context.Context, id uuid.UUID) (*entities.Technician, error)
	ListTechnicians(ctx context.Context) ([]*entities.Technician, error)
	CreateTechnician(ctx context.Context, tech *entities.Technician) error

	ListCalendarEntries(ctx context.Context, technicianID uuid.UUID, from, to time.Time) ([]entities.CalendarEntry, error)
	CreateCalendarEntry(ctx context.Context, entry *entities.CalendarEntry) error

	GetTool(ctx context.Context, id uuid.UUID) (*entities.Tool, error)
	ListTools(ctx context.Context) ([]*entities.Tool, error)
	CreateTool(ctx context.Context, tool *entities.Tool) error
	UpdateTool(ctx context.Context, tool *entities.Tool) error

	ListOpenToolAssignments(ctx context.Context) ([]*entities.ToolAssignment, error)
	CreateToolAssignment(ctx context.Context, a *entities.ToolAssignment) error
	UpdateToolAssignment(ctx context.Context, a *entities.ToolAssignment) error

	GetMaterial(ctx context.Context, id uuid.UUID) (*entities.Material, error)
	ListMaterials(ctx context.Context) ([]*entities.Material, error)
	CreateMaterial(ctx context.Context, m *entities.Material) error
}

// EquipmentRepository provides access to equipment types, batches, lines and stock pools.
// Batches are returned with Lines loaded and EquipmentName filled from the type.
type EquipmentRepository interface {
	GetEquipmentType(ctx context.Context, id uuid.UUID) (*entities.EquipmentType, error)
	ListEquipmentTypes(ctx context.Context) ([]*entities.EquipmentType, error)
	CreateEquipmentType(ctx context.Context, et *entities.EquipmentType) error

	CreateBatch(ctx context.Context, batch *entities.EquipmentBatch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*entities.EquipmentBatch, error)
	GetBatchByJob(ctx context.Context, jobID uuid.UUID) (*entities.EquipmentBatch, error)
	UpdateBatch(ctx context.Context, batch *entities.EquipmentBatch) error
	GetLine(ctx context.Context, id uuid.UUID) (*entities.EquipmentLine, error)
	UpdateLine(ctx context.Context, line *entities.EquipmentLine) error

	AddDiscrepancy(ctx context.Context, d *entities.EquipmentDiscrepancy) error
	ListDiscrepancies(ctx context.Context, batchID uuid.UUID) ([]entities.EquipmentDiscrepancy, error)

	// FindInventoryRecord returns the pool for (type, site, location) or an ErrNotFound error
	FindInventoryRecord(ctx context.Context, equipmentTypeID uuid.UUID, siteID *uuid.UUID, location entities.InventoryLocation) (*entities.InventoryRecord, error)
	// AddInventory creates the pool if absent, otherwise increments it
	AddInventory(ctx context.Context, rec *entities.InventoryRecord) (*entities.InventoryRecord, error)
	UpdateInventoryRecord(ctx context.Context, rec *entities.InventoryRecord) error
	ListInventoryRecords(ctx context.Context) ([]*entities.InventoryRecord, error)
}

// LedgerRepository provides access to the site equipment ledger and its snapshots
type LedgerRepository interface {
	AppendLedgerEntries(ctx context.Context, entries []entities.SiteEquipmentLedgerEntry) error
	ListLedgerEntries(ctx context.Context) ([]entities.SiteEquipmentLedgerEntry, error)
	// LockLedgerForRebuild blocks concurrent ledger appends until the transaction ends
	LockLedgerForRebuild(ctx context.Context) error
	ReplaceSnapshots(ctx context.Context, snapshots []entities.SiteEquipmentSnapshot) error
	ListSnapshots(ctx context.Context, siteID *uuid.UUID) ([]entities.SiteEquipmentSnapshot, error)
}

// Repositories bundles the repositories bound to one unit of work
type Repositories interface {
	Jobs() JobRepository
	Tasks() TaskRepository
	Resources() ResourceRepository
	Equipment() EquipmentRepository
	Ledger() LedgerRepository
}

// UnitOfWork runs operations against a consistent view of the store.
// WithinTx commits when fn returns nil and rolls back every write otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	ReadOnly(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
