// Package conflict finds technician and material overlaps for a task.
package conflict

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// Detector derives resource conflicts from the current schedule. It never writes.
type Detector struct {
	uow repositories.UnitOfWork
	log *logger.Logger
}

// NewDetector creates a new conflict detector
func NewDetector(uow repositories.UnitOfWork, log *logger.Logger) *Detector {
	return &Detector{
		uow: uow,
		log: log.With("service", "ConflictDetector"),
	}
}

// CheckConflicts returns the technician and material conflicts of a stored task
func (d *Detector) CheckConflicts(ctx context.Context, taskID uuid.UUID) ([]entities.ResourceConflict, error) {
	var conflicts []entities.ResourceConflict
	err := d.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		conflicts, err = d.CheckConflictsForTask(ctx, repos, task)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("CheckConflicts", err)
	}
	d.log.Debug("conflicts checked", "task_id", taskID, "conflicts", len(conflicts))
	return conflicts, nil
}

// CheckConflictsForTask evaluates task as given, which may differ from the
// stored row (a what-if window). The stored copy of the task is ignored.
func (d *Detector) CheckConflictsForTask(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) ([]entities.ResourceConflict, error) {
	technician, err := d.TechnicianConflicts(ctx, repos, task)
	if err != nil {
		return nil, err
	}
	material, err := d.MaterialConflicts(ctx, repos, task)
	if err != nil {
		return nil, err
	}
	return append(technician, material...), nil
}

// TechnicianConflicts reports one conflict per other task that holds the same
// technician in an overlapping window
func (d *Detector) TechnicianConflicts(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) ([]entities.ResourceConflict, error) {
	if task.TechnicianID == nil {
		return nil, nil
	}
	techID := *task.TechnicianID
	others, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{
		TechnicianID: &techID,
		OverlapFrom:  &task.StartDate,
		OverlapTo:    &task.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list technician tasks: %w", err)
	}

	var conflicts []entities.ResourceConflict
	for _, other := range others {
		if other.ID == task.ID {
			continue
		}
		otherID := other.ID
		conflicts = append(conflicts, entities.ResourceConflict{
			Kind:         entities.TechnicianDoubleBooking,
			TaskID:       task.ID,
			OtherTaskID:  &otherID,
			TechnicianID: &techID,
			Message: fmt.Sprintf("technician %s is also assigned to task %q (%s to %s)",
				techID, other.Name, other.StartDate.Format("2006-01-02"), other.EndDate.Format("2006-01-02")),
		})
	}
	return conflicts, nil
}

// MaterialConflicts reports one conflict per material whose demand across
// all overlapping tasks exceeds its stock
func (d *Detector) MaterialConflicts(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) ([]entities.ResourceConflict, error) {
	if len(task.Materials) == 0 {
		return nil, nil
	}

	own := make(map[uuid.UUID]decimal.Decimal)
	var order []uuid.UUID
	for _, req := range task.Materials {
		if _, seen := own[req.MaterialID]; !seen {
			order = append(order, req.MaterialID)
		}
		own[req.MaterialID] = own[req.MaterialID].Add(req.Quantity)
	}

	overlapping, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{
		OverlapFrom: &task.StartDate,
		OverlapTo:   &task.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list overlapping tasks: %w", err)
	}

	var conflicts []entities.ResourceConflict
	for _, materialID := range order {
		material, err := repos.Resources().GetMaterial(ctx, materialID)
		if err != nil {
			return nil, err
		}

		demand := own[materialID]
		for _, other := range overlapping {
			if other.ID == task.ID {
				continue
			}
			for _, req := range other.Materials {
				if req.MaterialID == materialID {
					demand = demand.Add(req.Quantity)
				}
			}
		}

		if demand.GreaterThan(material.StockQuantity) {
			id := materialID
			conflicts = append(conflicts, entities.ResourceConflict{
				Kind:       entities.MaterialShortage,
				TaskID:     task.ID,
				MaterialID: &id,
				Demand:     demand,
				Available:  material.StockQuantity,
				Message: fmt.Sprintf("material %q demand %s exceeds stock %s by %s",
					material.Name, demand, material.StockQuantity, demand.Sub(material.StockQuantity)),
			})
		}
	}
	return conflicts, nil
}
