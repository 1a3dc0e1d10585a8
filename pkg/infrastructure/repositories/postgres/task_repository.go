package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// TaskRepository stores tasks, the dependency graph and schedule slots
type TaskRepository struct {
	*conn
}

// Verify interface compliance
var _ repositories.TaskRepository = (*TaskRepository)(nil)

const taskColumns = `id, job_id, name, status, progress, start_date, end_date, duration_days, technician_id, completed_at`

func scanTask(row pgx.Row) (*entities.JobTask, error) {
	var t entities.JobTask
	err := row.Scan(&t.ID, &t.JobID, &t.Name, &t.Status, &t.Progress,
		&t.StartDate, &t.EndDate, &t.DurationDays, &t.TechnicianID, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// exists reports whether a row with the given id is present in table
func (c *conn) exists(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	var found bool
	err := c.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check %s %s: %w", table, id, err)
	}
	return found, nil
}

// mustExist returns NotFound when the referenced row is absent
func (c *conn) mustExist(ctx context.Context, table, entity string, id uuid.UUID) error {
	found, err := c.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !found {
		return lookupErr(pgx.ErrNoRows, entity, id)
	}
	return nil
}

// GetTask returns a task with its relations loaded
func (r *TaskRepository) GetTask(ctx context.Context, id uuid.UUID) (*entities.JobTask, error) {
	task, err := scanTask(r.tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM job_tasks WHERE id = $1`, id))
	if err != nil {
		return nil, lookupErr(err, "task", id)
	}
	if err := r.loadRelations(ctx, []*entities.JobTask{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns the tasks matching filter ordered by start date
func (r *TaskRepository) ListTasks(ctx context.Context, filter repositories.TaskFilter) ([]*entities.JobTask, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.JobID != nil {
		where = append(where, "job_id = "+arg(*filter.JobID))
	}
	if filter.TechnicianID != nil {
		where = append(where, "technician_id = "+arg(*filter.TechnicianID))
	}
	if filter.OverlapFrom != nil && filter.OverlapTo != nil {
		where = append(where, "start_date <= "+arg(*filter.OverlapTo)+" AND end_date >= "+arg(*filter.OverlapFrom))
	}
	if filter.StartsBy != nil {
		where = append(where, "start_date <= "+arg(*filter.StartsBy))
	}

	query := `SELECT ` + taskColumns + ` FROM job_tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"

	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.JobTask, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	if err := r.loadRelations(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// loadRelations attaches prerequisites, materials and equipment lines
func (r *TaskRepository) loadRelations(ctx context.Context, tasks []*entities.JobTask) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*entities.JobTask, len(tasks))
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	deps, err := r.queryDependencies(ctx, `
		SELECT parent_task_id, prerequisite_task_id FROM task_dependencies
		WHERE parent_task_id = ANY($1) ORDER BY position`, ids)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		t := byID[dep.ParentTaskID]
		t.Prerequisites = append(t.Prerequisites, dep.PrerequisiteTaskID)
	}

	rows, err := r.tx.Query(ctx, `
		SELECT id, material_id, job_task_id, quantity FROM material_requirements
		WHERE job_task_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("load material requirements: %w", err)
	}
	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.MaterialRequirement, error) {
		var req entities.MaterialRequirement
		err := row.Scan(&req.ID, &req.MaterialID, &req.JobTaskID, &req.Quantity)
		return req, err
	})
	if err != nil {
		return fmt.Errorf("scan material requirements: %w", err)
	}
	for _, req := range reqs {
		t := byID[req.JobTaskID]
		t.Materials = append(t.Materials, req)
	}

	links, err := r.queryLinks(ctx, `WHERE task_id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	for _, link := range links {
		t := byID[link.TaskID]
		t.EquipmentLines = append(t.EquipmentLines, link)
	}
	return nil
}

func (r *TaskRepository) queryDependencies(ctx context.Context, query string, args ...any) ([]entities.TaskDependency, error) {
	rows, err := r.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}
	deps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.TaskDependency, error) {
		var dep entities.TaskDependency
		err := row.Scan(&dep.ParentTaskID, &dep.PrerequisiteTaskID)
		return dep, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan dependencies: %w", err)
	}
	return deps, nil
}

func (r *TaskRepository) queryLinks(ctx context.Context, where string, args ...any) ([]entities.TaskEquipmentLine, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT tl.task_id, tl.line_id, tl.quantity, tl.notes
		FROM task_equipment_lines tl
		JOIN equipment_lines l ON l.id = tl.line_id
		`+where+`
		ORDER BY l.position, tl.task_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load task equipment lines: %w", err)
	}
	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.TaskEquipmentLine, error) {
		var link entities.TaskEquipmentLine
		err := row.Scan(&link.TaskID, &link.LineID, &link.Quantity, &link.Notes)
		return link, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan task equipment lines: %w", err)
	}
	return links, nil
}

// CreateTask stores a new task; relation slices are ignored
func (r *TaskRepository) CreateTask(ctx context.Context, task *entities.JobTask) error {
	if err := r.mustExist(ctx, "jobs", "job", task.JobID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO job_tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.JobID, task.Name, task.Status, task.Progress,
		task.StartDate, task.EndDate, task.DurationDays, task.TechnicianID, task.CompletedAt)
	if err != nil {
		return writeErr(err, "task "+task.ID.String())
	}
	return nil
}

// UpdateTask overwrites the task's scalar fields
func (r *TaskRepository) UpdateTask(ctx context.Context, task *entities.JobTask) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE job_tasks
		SET name = $2, status = $3, progress = $4, start_date = $5, end_date = $6,
		    duration_days = $7, technician_id = $8, completed_at = $9
		WHERE id = $1`,
		task.ID, task.Name, task.Status, task.Progress, task.StartDate, task.EndDate,
		task.DurationDays, task.TechnicianID, task.CompletedAt)
	return expectOne(tag, err, "task", task.ID)
}

// AddDependency stores a unique prerequisite edge
func (r *TaskRepository) AddDependency(ctx context.Context, dep entities.TaskDependency) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO task_dependencies (parent_task_id, prerequisite_task_id) VALUES ($1, $2)`,
		dep.ParentTaskID, dep.PrerequisiteTaskID)
	if err != nil {
		return writeErr(err, fmt.Sprintf("dependency %s -> %s", dep.PrerequisiteTaskID, dep.ParentTaskID))
	}
	return nil
}

// ListDependencies returns the edges whose parent task belongs to jobID
func (r *TaskRepository) ListDependencies(ctx context.Context, jobID uuid.UUID) ([]entities.TaskDependency, error) {
	return r.queryDependencies(ctx, `
		SELECT d.parent_task_id, d.prerequisite_task_id
		FROM task_dependencies d
		JOIN job_tasks t ON t.id = d.parent_task_id
		WHERE t.job_id = $1
		ORDER BY d.position`, jobID)
}

// AddMaterialRequirement stores a demand record for a task
func (r *TaskRepository) AddMaterialRequirement(ctx context.Context, req *entities.MaterialRequirement) error {
	if err := r.mustExist(ctx, "job_tasks", "task", req.JobTaskID); err != nil {
		return err
	}
	if err := r.mustExist(ctx, "materials", "material", req.MaterialID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO material_requirements (id, material_id, job_task_id, quantity)
		VALUES ($1, $2, $3, $4)`,
		req.ID, req.MaterialID, req.JobTaskID, req.Quantity)
	if err != nil {
		return writeErr(err, "material requirement")
	}
	return nil
}

// LinkEquipmentLine assigns an equipment line to a task, replacing an existing link
func (r *TaskRepository) LinkEquipmentLine(ctx context.Context, link entities.TaskEquipmentLine) error {
	if err := r.mustExist(ctx, "job_tasks", "task", link.TaskID); err != nil {
		return err
	}
	if err := r.mustExist(ctx, "equipment_lines", "equipment line", link.LineID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO task_equipment_lines (task_id, line_id, quantity, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (task_id, line_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, notes = EXCLUDED.notes`,
		link.TaskID, link.LineID, link.Quantity, link.Notes)
	if err != nil {
		return writeErr(err, "task equipment line")
	}
	return nil
}

// ListTaskLinksForLine returns every task link that consumes lineID
func (r *TaskRepository) ListTaskLinksForLine(ctx context.Context, lineID uuid.UUID) ([]entities.TaskEquipmentLine, error) {
	return r.queryLinks(ctx, `WHERE tl.line_id = $1`, lineID)
}

const slotColumns = `id, task_id, technician_id, start_at, end_at, locked`

func scanSlot(row pgx.Row) (*entities.ScheduleSlot, error) {
	var s entities.ScheduleSlot
	if err := row.Scan(&s.ID, &s.TaskID, &s.TechnicianID, &s.Start, &s.End, &s.Locked); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSlot returns a schedule slot by id
func (r *TaskRepository) GetSlot(ctx context.Context, id uuid.UUID) (*entities.ScheduleSlot, error) {
	slot, err := scanSlot(r.tx.QueryRow(ctx, `SELECT `+slotColumns+` FROM schedule_slots WHERE id = $1`, id))
	if err != nil {
		return nil, lookupErr(err, "schedule slot", id)
	}
	return slot, nil
}

// GetSlotForTask returns the slot pinned to a task
func (r *TaskRepository) GetSlotForTask(ctx context.Context, taskID uuid.UUID) (*entities.ScheduleSlot, error) {
	slot, err := scanSlot(r.tx.QueryRow(ctx, `SELECT `+slotColumns+` FROM schedule_slots WHERE task_id = $1`, taskID))
	if err != nil {
		return nil, lookupErr(err, "schedule slot for task", taskID)
	}
	return slot, nil
}

// SaveSlot creates or replaces a schedule slot
func (r *TaskRepository) SaveSlot(ctx context.Context, slot *entities.ScheduleSlot) error {
	if err := r.mustExist(ctx, "job_tasks", "task", slot.TaskID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `
		INSERT INTO schedule_slots (`+slotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET task_id = EXCLUDED.task_id, technician_id = EXCLUDED.technician_id,
		    start_at = EXCLUDED.start_at, end_at = EXCLUDED.end_at, locked = EXCLUDED.locked`,
		slot.ID, slot.TaskID, slot.TechnicianID, slot.Start, slot.End, slot.Locked)
	if err != nil {
		return writeErr(err, "schedule slot")
	}
	return nil
}
