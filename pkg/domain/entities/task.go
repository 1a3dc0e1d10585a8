package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

// TaskStatus represents the progress state of a job task
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "Not Started"
	TaskInProgress TaskStatus = "In Progress"
	TaskCompleted  TaskStatus = "Completed"
	TaskOnHold     TaskStatus = "On Hold"
)

// String method for TaskStatus enum
func (s TaskStatus) String() string {
	return string(s)
}

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskCompleted, TaskOnHold:
		return true
	}
	return false
}

// JobTask is one schedulable unit of work within a job
type JobTask struct {
	ID           uuid.UUID
	JobID        uuid.UUID
	Name         string
	Status       TaskStatus
	Progress     int
	StartDate    time.Time
	EndDate      time.Time
	DurationDays int
	TechnicianID *uuid.UUID
	CompletedAt  *time.Time

	// Loaded with the task by the repositories
	Prerequisites  []uuid.UUID
	Materials      []MaterialRequirement
	EquipmentLines []TaskEquipmentLine
}

// NewJobTask creates a validated task covering [start,end]
func NewJobTask(jobID uuid.UUID, name string, start, end time.Time) (*JobTask, error) {
	if jobID == uuid.Nil {
		return nil, errs.Validation("task job cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("task name cannot be empty")
	}
	if end.Before(start) {
		return nil, errs.Validation("task end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return &JobTask{
		ID:           uuid.New(),
		JobID:        jobID,
		Name:         name,
		Status:       TaskNotStarted,
		StartDate:    start,
		EndDate:      end,
		DurationDays: DurationDays(start, end),
	}, nil
}

// Validate checks the task invariants
func (t *JobTask) Validate() error {
	if t.EndDate.Before(t.StartDate) {
		return errs.Validation("task %s end date is before start date", t.ID)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return errs.Validation("task progress must be within [0,100], got %d", t.Progress)
	}
	if !t.Status.Valid() {
		return errs.Validation("unknown task status %q", t.Status)
	}
	return nil
}

// OverlapsTask reports whether t and other share any calendar time
func (t *JobTask) OverlapsTask(other *JobTask) bool {
	return Overlaps(t.StartDate, t.EndDate, other.StartDate, other.EndDate)
}

// IsCompleted reports whether the task is done
func (t *JobTask) IsCompleted() bool {
	return t.Status == TaskCompleted
}

// HasTechnician reports whether technicianID is assigned to t
func (t *JobTask) HasTechnician(technicianID uuid.UUID) bool {
	return t.TechnicianID != nil && *t.TechnicianID == technicianID
}

// DurationDays returns the whole days between start and end, minimum one
func DurationDays(start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// TaskDependency is a directed edge: Prerequisite must finish before Parent starts
type TaskDependency struct {
	ParentTaskID       uuid.UUID
	PrerequisiteTaskID uuid.UUID
}

// NewTaskDependency creates a validated TaskDependency
func NewTaskDependency(parentTaskID, prerequisiteTaskID uuid.UUID) (*TaskDependency, error) {
	if parentTaskID == uuid.Nil || prerequisiteTaskID == uuid.Nil {
		return nil, errs.Validation("dependency tasks cannot be empty")
	}
	if parentTaskID == prerequisiteTaskID {
		return nil, errs.Validation("task %s cannot depend on itself", parentTaskID)
	}
	return &TaskDependency{
		ParentTaskID:       parentTaskID,
		PrerequisiteTaskID: prerequisiteTaskID,
	}, nil
}

// MaterialRequirement records demand for a material by a task. It never reserves stock.
type MaterialRequirement struct {
	ID         uuid.UUID
	MaterialID uuid.UUID
	JobTaskID  uuid.UUID
	Quantity   decimal.Decimal
}

// NewMaterialRequirement creates a validated MaterialRequirement
func NewMaterialRequirement(materialID, taskID uuid.UUID, quantity decimal.Decimal) (*MaterialRequirement, error) {
	if materialID == uuid.Nil || taskID == uuid.Nil {
		return nil, errs.Validation("material requirement needs a material and a task")
	}
	if !quantity.IsPositive() {
		return nil, errs.Validation("material quantity must be positive, got %s", quantity)
	}
	return &MaterialRequirement{
		ID:         uuid.New(),
		MaterialID: materialID,
		JobTaskID:  taskID,
		Quantity:   quantity,
	}, nil
}

// TaskEquipmentLine links a task to the equipment line it installs
type TaskEquipmentLine struct {
	TaskID   uuid.UUID
	LineID   uuid.UUID
	Quantity Quantity
	Notes    string
}

// ScheduleSlot pins a task window; locked slots are skipped by the rescheduler
type ScheduleSlot struct {
	ID           uuid.UUID
	TaskID       uuid.UUID
	TechnicianID *uuid.UUID
	Start        time.Time
	End          time.Time
	Locked       bool
}
