package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// TaskRepository provides in-memory task, dependency and slot storage
type TaskRepository struct {
	st *state
}

// Verify interface compliance
var _ repositories.TaskRepository = (*TaskRepository)(nil)

// load copies a stored task and attaches its prerequisites, materials and lines
func (r *TaskRepository) load(task entities.JobTask) *entities.JobTask {
	task.Prerequisites = nil
	task.Materials = nil
	task.EquipmentLines = nil
	for _, dep := range r.st.dependencies {
		if dep.ParentTaskID == task.ID {
			task.Prerequisites = append(task.Prerequisites, dep.PrerequisiteTaskID)
		}
	}
	for _, req := range r.st.materialReqs {
		if req.JobTaskID == task.ID {
			task.Materials = append(task.Materials, req)
		}
	}
	for _, link := range r.st.taskLines {
		if link.TaskID == task.ID {
			task.EquipmentLines = append(task.EquipmentLines, link)
		}
	}
	return &task
}

// GetTask returns a task with its relations loaded
func (r *TaskRepository) GetTask(_ context.Context, id uuid.UUID) (*entities.JobTask, error) {
	task, ok := r.st.tasks[id]
	if !ok {
		return nil, errs.NotFound("task", id)
	}
	return r.load(task), nil
}

// ListTasks returns the tasks matching filter ordered by start date
func (r *TaskRepository) ListTasks(_ context.Context, filter repositories.TaskFilter) ([]*entities.JobTask, error) {
	var tasks []*entities.JobTask
	for _, task := range r.st.tasks {
		if filter.JobID != nil && task.JobID != *filter.JobID {
			continue
		}
		if filter.TechnicianID != nil && !task.HasTechnician(*filter.TechnicianID) {
			continue
		}
		if filter.OverlapFrom != nil && filter.OverlapTo != nil &&
			!entities.Overlaps(task.StartDate, task.EndDate, *filter.OverlapFrom, *filter.OverlapTo) {
			continue
		}
		if filter.StartsBy != nil && task.StartDate.After(*filter.StartsBy) {
			continue
		}
		tasks = append(tasks, r.load(task))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].StartDate.Equal(tasks[j].StartDate) {
			return tasks[i].StartDate.Before(tasks[j].StartDate)
		}
		return tasks[i].ID.String() < tasks[j].ID.String()
	})
	return tasks, nil
}

// CreateTask stores a new task; relation slices are ignored
func (r *TaskRepository) CreateTask(_ context.Context, task *entities.JobTask) error {
	if _, ok := r.st.jobs[task.JobID]; !ok {
		return errs.NotFound("job", task.JobID)
	}
	if _, exists := r.st.tasks[task.ID]; exists {
		return errs.Validation("task %s already exists", task.ID)
	}
	r.st.tasks[task.ID] = strip(*task)
	return nil
}

// UpdateTask overwrites the task's scalar fields
func (r *TaskRepository) UpdateTask(_ context.Context, task *entities.JobTask) error {
	if _, ok := r.st.tasks[task.ID]; !ok {
		return errs.NotFound("task", task.ID)
	}
	r.st.tasks[task.ID] = strip(*task)
	return nil
}

func strip(task entities.JobTask) entities.JobTask {
	task.Prerequisites = nil
	task.Materials = nil
	task.EquipmentLines = nil
	return task
}

// AddDependency stores a unique prerequisite edge
func (r *TaskRepository) AddDependency(_ context.Context, dep entities.TaskDependency) error {
	for _, existing := range r.st.dependencies {
		if existing == dep {
			return errs.Validation("dependency %s -> %s already exists", dep.PrerequisiteTaskID, dep.ParentTaskID)
		}
	}
	r.st.dependencies = append(r.st.dependencies, dep)
	return nil
}

// ListDependencies returns the edges whose parent task belongs to jobID
func (r *TaskRepository) ListDependencies(_ context.Context, jobID uuid.UUID) ([]entities.TaskDependency, error) {
	var deps []entities.TaskDependency
	for _, dep := range r.st.dependencies {
		if parent, ok := r.st.tasks[dep.ParentTaskID]; ok && parent.JobID == jobID {
			deps = append(deps, dep)
		}
	}
	return deps, nil
}

// AddMaterialRequirement stores a demand record for a task
func (r *TaskRepository) AddMaterialRequirement(_ context.Context, req *entities.MaterialRequirement) error {
	if _, ok := r.st.tasks[req.JobTaskID]; !ok {
		return errs.NotFound("task", req.JobTaskID)
	}
	if _, ok := r.st.materials[req.MaterialID]; !ok {
		return errs.NotFound("material", req.MaterialID)
	}
	r.st.materialReqs = append(r.st.materialReqs, *req)
	return nil
}

// LinkEquipmentLine assigns an equipment line to a task
func (r *TaskRepository) LinkEquipmentLine(_ context.Context, link entities.TaskEquipmentLine) error {
	if _, ok := r.st.tasks[link.TaskID]; !ok {
		return errs.NotFound("task", link.TaskID)
	}
	if _, ok := r.st.lines[link.LineID]; !ok {
		return errs.NotFound("equipment line", link.LineID)
	}
	for i, existing := range r.st.taskLines {
		if existing.TaskID == link.TaskID && existing.LineID == link.LineID {
			r.st.taskLines[i] = link
			return nil
		}
	}
	r.st.taskLines = append(r.st.taskLines, link)
	return nil
}

// ListTaskLinksForLine returns every task link that consumes lineID
func (r *TaskRepository) ListTaskLinksForLine(_ context.Context, lineID uuid.UUID) ([]entities.TaskEquipmentLine, error) {
	var links []entities.TaskEquipmentLine
	for _, link := range r.st.taskLines {
		if link.LineID == lineID {
			links = append(links, link)
		}
	}
	return links, nil
}

// GetSlot returns a schedule slot by id
func (r *TaskRepository) GetSlot(_ context.Context, id uuid.UUID) (*entities.ScheduleSlot, error) {
	slot, ok := r.st.slots[id]
	if !ok {
		return nil, errs.NotFound("schedule slot", id)
	}
	return &slot, nil
}

// GetSlotForTask returns the slot pinned to a task
func (r *TaskRepository) GetSlotForTask(_ context.Context, taskID uuid.UUID) (*entities.ScheduleSlot, error) {
	for _, slot := range r.st.slots {
		if slot.TaskID == taskID {
			return &slot, nil
		}
	}
	return nil, errs.NotFound("schedule slot for task", taskID)
}

// SaveSlot creates or replaces a schedule slot
func (r *TaskRepository) SaveSlot(_ context.Context, slot *entities.ScheduleSlot) error {
	if _, ok := r.st.tasks[slot.TaskID]; !ok {
		return errs.NotFound("task", slot.TaskID)
	}
	r.st.slots[slot.ID] = *slot
	return nil
}
