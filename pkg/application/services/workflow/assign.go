package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
)

// AssignEquipmentLine records that the task consumes qty units of a line of
// its job's batch. Assigning the same pair again replaces the quantity and
// notes. Installed lines and completed tasks cannot be assigned.
func (o *Orchestrator) AssignEquipmentLine(ctx context.Context, taskID, lineID uuid.UUID, qty entities.Quantity, notes string) (*entities.TaskEquipmentLine, error) {
	if qty <= 0 {
		return nil, errs.Wrap(OpAssignLine, errs.Validation("quantity must be positive, got %d", qty))
	}

	var link *entities.TaskEquipmentLine
	err := o.run(ctx, OpAssignLine, o.forTask(taskID), func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == entities.TaskCompleted {
			return nil, errs.InvalidState(OpAssignLine, "task is already completed", "task "+task.ID.String())
		}

		line, err := repos.Equipment().GetLine(ctx, lineID)
		if err != nil {
			return nil, err
		}
		batch, err := repos.Equipment().GetBatch(ctx, line.BatchID)
		if err != nil {
			return nil, err
		}
		if batch.JobID != task.JobID {
			return nil, errs.Validation("line %s belongs to another job's batch", line.ID)
		}
		if line.Status == entities.LineOnSiteInstalled {
			return nil, errs.InvalidState(OpAssignLine, "equipment already installed", line.Label())
		}
		if qty > line.PlannedQty {
			return nil, errs.Validation("quantity %d exceeds the %d planned on line %s", qty, line.PlannedQty, line.ID)
		}

		link = &entities.TaskEquipmentLine{TaskID: task.ID, LineID: line.ID, Quantity: qty, Notes: notes}
		if err := repos.Tasks().LinkEquipmentLine(ctx, *link); err != nil {
			return nil, err
		}
		return []events.Event{
			events.NewEvent(events.LineAssignedEvent, events.JobStream(task.JobID), events.LineAssigned{
				TaskID:   task.ID,
				LineID:   line.ID,
				Quantity: qty,
			}, o.now()),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("equipment line assigned", "task_id", taskID, "line_id", lineID, "qty", int64(qty))
	return link, nil
}
