package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
)

// ReceiveResult is the batch after receiving plus the discrepancies logged
type ReceiveResult struct {
	Batch         *entities.EquipmentBatch
	Discrepancies []entities.EquipmentDiscrepancy
}

// TaskCompletion reports what completing a task did to its equipment lines
type TaskCompletion struct {
	Task *entities.JobTask
	// Installed lines had no other open consumer and moved to OnSiteInstalled
	Installed []uuid.UUID
	// Waiting lines are still consumed by another open task
	Waiting []uuid.UUID
	// NotShipped lines are still in a warehouse and were left untouched
	NotShipped []uuid.UUID
}

// AcceptJob creates the job's equipment batch, one line per requirement, and
// marks the job Accepted
func (o *Orchestrator) AcceptJob(ctx context.Context, jobID uuid.UUID) (*entities.EquipmentBatch, error) {
	var batch *entities.EquipmentBatch
	err := o.run(ctx, OpAcceptJob, forJob(jobID), func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		job, err := repos.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if !job.Status.CanTransitionTo(entities.JobAccepted) {
			return nil, errs.InvalidState(OpAcceptJob,
				fmt.Sprintf("job status is %s, expected Pending or Created", job.Status), "job "+job.ID.String())
		}
		if len(job.Requirements) == 0 {
			return nil, errs.InvalidState(OpAcceptJob, "job has no equipment requirements", "job "+job.ID.String())
		}

		now := o.now()
		batch = &entities.EquipmentBatch{
			ID:        uuid.New(),
			JobID:     job.ID,
			SiteID:    job.SiteID,
			Status:    entities.BatchCreated,
			CreatedAt: now,
		}
		for _, req := range job.Requirements {
			et, err := repos.Equipment().GetEquipmentType(ctx, req.EquipmentTypeID)
			if err != nil {
				return nil, err
			}
			batch.Lines = append(batch.Lines, &entities.EquipmentLine{
				ID:              uuid.New(),
				BatchID:         batch.ID,
				EquipmentTypeID: et.ID,
				EquipmentName:   et.Name,
				PlannedQty:      req.PlannedQty,
				Status:          entities.LineClientWarehouse,
			})
		}
		if err := repos.Equipment().CreateBatch(ctx, batch); err != nil {
			return nil, err
		}

		job.Status = entities.JobAccepted
		if err := repos.Jobs().UpdateJob(ctx, job); err != nil {
			return nil, err
		}

		return []events.Event{
			events.NewEvent(events.JobAcceptedEvent, events.JobStream(job.ID), events.JobAccepted{
				JobID:   job.ID,
				BatchID: batch.ID,
				Lines:   len(batch.Lines),
			}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("job accepted", "job_id", jobID, "batch_id", batch.ID, "lines", len(batch.Lines))
	return batch, nil
}

// ReceiveEquipmentBatch records the received quantity of each named line and
// moves it to the SDS warehouse. A quantity differing from plan logs a
// discrepancy. The batch becomes Ready for Shipping once every line is in.
func (o *Orchestrator) ReceiveEquipmentBatch(ctx context.Context, batchID uuid.UUID, received map[uuid.UUID]entities.Quantity) (*ReceiveResult, error) {
	if len(received) == 0 {
		return nil, errs.Wrap(OpReceiveBatch, errs.Validation("no line quantities given"))
	}
	for lineID, qty := range received {
		if qty < 0 {
			return nil, errs.Wrap(OpReceiveBatch, errs.Validation("received quantity for line %s cannot be negative, got %d", lineID, qty))
		}
	}

	result := &ReceiveResult{}
	err := o.run(ctx, OpReceiveBatch, o.forBatch(batchID), func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		batch, err := repos.Equipment().GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if err := requireLines(OpReceiveBatch, batch); err != nil {
			return nil, err
		}
		if batch.Status != entities.BatchCreated {
			return nil, errs.InvalidState(OpReceiveBatch,
				fmt.Sprintf("batch status is %s, expected %s", batch.Status, entities.BatchCreated), "batch "+batch.ID.String())
		}
		for lineID := range received {
			line := batch.Line(lineID)
			if line == nil {
				return nil, errs.NotFound("equipment line in batch", lineID)
			}
			if line.Status != entities.LineClientWarehouse {
				return nil, errs.InvalidState(OpReceiveBatch, "equipment line was already received", line.Label())
			}
		}

		now := o.now()
		var evts []events.Event
		stream := events.JobStream(batch.JobID)
		for _, line := range batch.Lines {
			qty, ok := received[line.ID]
			if !ok {
				continue
			}
			line.ReceivedQty = qty
			if err := line.Advance(entities.LineSDSWarehouse, now); err != nil {
				return nil, err
			}
			if err := repos.Equipment().UpdateLine(ctx, line); err != nil {
				return nil, err
			}

			if line.HasDiscrepancy() {
				d := entities.EquipmentDiscrepancy{
					ID:          uuid.New(),
					BatchID:     batch.ID,
					LineID:      line.ID,
					PlannedQty:  line.PlannedQty,
					ReceivedQty: qty,
					RecordedAt:  now,
					Note:        fmt.Sprintf("%s: planned %d, received %d", line.Label(), line.PlannedQty, qty),
				}
				if err := repos.Equipment().AddDiscrepancy(ctx, &d); err != nil {
					return nil, err
				}
				result.Discrepancies = append(result.Discrepancies, d)
				evts = append(evts, events.NewEvent(events.DiscrepancyLoggedEvent, stream, events.DiscrepancyLogged{Discrepancy: d}, now))
			}

			siteID := batch.SiteID
			if _, err := repos.Equipment().AddInventory(ctx, &entities.InventoryRecord{
				EquipmentTypeID: line.EquipmentTypeID,
				SiteID:          &siteID,
				Location:        entities.LocationSDSWarehouse,
				Quantity:        qty,
				ReservedForSite: true,
			}); err != nil {
				return nil, err
			}
		}

		if batch.AllLinesAt(entities.LineSDSWarehouse) {
			batch.Status = entities.BatchReadyForShipping
			if err := repos.Equipment().UpdateBatch(ctx, batch); err != nil {
				return nil, err
			}
		}
		result.Batch = batch

		evts = append([]events.Event{
			events.NewEvent(events.BatchReceivedEvent, stream, events.BatchReceived{
				BatchID:     batch.ID,
				LinesMoved:  len(received),
				ReadyToShip: batch.Status == entities.BatchReadyForShipping,
			}, now),
		}, evts...)
		return evts, nil
	})
	if err != nil {
		return nil, err
	}
	o.metrics.Discrepancies.Add(float64(len(result.Discrepancies)))
	o.log.Info("batch received", "batch_id", batchID, "lines", len(received), "discrepancies", len(result.Discrepancies), "status", result.Batch.Status)
	return result, nil
}

// ShipEquipmentBatch sends a fully received batch to site. Every line moves to
// OnSiteInstalling and its stock moves from the SDS warehouse to the site.
func (o *Orchestrator) ShipEquipmentBatch(ctx context.Context, batchID uuid.UUID) (*entities.EquipmentBatch, error) {
	var batch *entities.EquipmentBatch
	err := o.run(ctx, OpShipBatch, o.forBatch(batchID), func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		var err error
		batch, err = repos.Equipment().GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if err := requireLines(OpShipBatch, batch); err != nil {
			return nil, err
		}
		if pending := batch.LinesNotAt(entities.LineSDSWarehouse); len(pending) > 0 {
			return nil, errs.InvalidState(OpShipBatch, "equipment not yet received at the SDS warehouse", labels(pending)...)
		}
		if batch.Status != entities.BatchReadyForShipping {
			return nil, errs.InvalidState(OpShipBatch,
				fmt.Sprintf("batch status is %s, expected %s", batch.Status, entities.BatchReadyForShipping), "batch "+batch.ID.String())
		}

		now := o.now()
		for _, line := range batch.Lines {
			if err := line.Advance(entities.LineOnSiteInstalling, now); err != nil {
				return nil, err
			}
			if err := repos.Equipment().UpdateLine(ctx, line); err != nil {
				return nil, err
			}
			if err := o.relocate(ctx, repos, batch.SiteID, line, entities.LocationSDSWarehouse, entities.LocationSite); err != nil {
				return nil, err
			}
		}

		batch.Status = entities.BatchShipped
		if err := repos.Equipment().UpdateBatch(ctx, batch); err != nil {
			return nil, err
		}
		return []events.Event{
			events.NewEvent(events.BatchShippedEvent, events.JobStream(batch.JobID), events.BatchShipped{
				BatchID: batch.ID,
				Lines:   len(batch.Lines),
			}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("batch shipped", "batch_id", batchID, "lines", len(batch.Lines))
	return batch, nil
}

// CompleteTaskWithEquipment completes the task and installs every shipped
// line it consumes once no other consuming task is still open. The first
// completed task moves an Accepted job to In Progress.
func (o *Orchestrator) CompleteTaskWithEquipment(ctx context.Context, taskID uuid.UUID) (*TaskCompletion, error) {
	completion := &TaskCompletion{}
	err := o.run(ctx, OpCompleteTask, o.forTask(taskID), func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}

		now := o.now()
		task.Status = entities.TaskCompleted
		task.Progress = 100
		if task.CompletedAt == nil {
			task.CompletedAt = &now
		}
		if err := repos.Tasks().UpdateTask(ctx, task); err != nil {
			return nil, err
		}
		completion.Task = task

		job, err := repos.Jobs().GetJob(ctx, task.JobID)
		if err != nil {
			return nil, err
		}
		if job.Status == entities.JobAccepted {
			job.Status = entities.JobInProgress
			if err := repos.Jobs().UpdateJob(ctx, job); err != nil {
				return nil, err
			}
		}

		stream := events.JobStream(task.JobID)
		evts := []events.Event{
			events.NewEvent(events.TaskCompletedEvent, stream, events.TaskCompleted{TaskID: task.ID, JobID: task.JobID}, now),
		}
		for _, link := range task.EquipmentLines {
			open, err := otherOpenConsumer(ctx, repos, link.LineID, task.ID)
			if err != nil {
				return nil, err
			}
			if open {
				completion.Waiting = append(completion.Waiting, link.LineID)
				continue
			}

			line, err := repos.Equipment().GetLine(ctx, link.LineID)
			if err != nil {
				return nil, err
			}
			switch line.Status {
			case entities.LineOnSiteInstalled:
				continue
			case entities.LineOnSiteInstalling:
			default:
				completion.NotShipped = append(completion.NotShipped, line.ID)
				o.log.Warn("task completed before its equipment was shipped", "task_id", task.ID, "line_id", line.ID, "status", line.Status)
				continue
			}

			if err := line.Advance(entities.LineOnSiteInstalled, now); err != nil {
				return nil, err
			}
			if err := repos.Equipment().UpdateLine(ctx, line); err != nil {
				return nil, err
			}
			completion.Installed = append(completion.Installed, line.ID)
			evts = append(evts, events.NewEvent(events.LineInstalledEvent, stream, events.LineInstalled{LineID: line.ID, BatchID: line.BatchID}, now))
		}
		return evts, nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("task completed", "task_id", taskID, "installed", len(completion.Installed), "waiting", len(completion.Waiting))
	return completion, nil
}

// otherOpenConsumer reports whether a task other than taskID still needs the line
func otherOpenConsumer(ctx context.Context, repos repositories.Repositories, lineID, taskID uuid.UUID) (bool, error) {
	links, err := repos.Tasks().ListTaskLinksForLine(ctx, lineID)
	if err != nil {
		return false, fmt.Errorf("list consumers of line %s: %w", lineID, err)
	}
	for _, link := range links {
		if link.TaskID == taskID {
			continue
		}
		other, err := repos.Tasks().GetTask(ctx, link.TaskID)
		if err != nil {
			return false, err
		}
		if !other.IsCompleted() {
			return true, nil
		}
	}
	return false, nil
}

// relocate moves a line's received quantity between stock pools of the site.
// The source pool is decremented, never deleted; a short pool is logged and
// drained.
func (o *Orchestrator) relocate(
	ctx context.Context,
	repos repositories.Repositories,
	siteID uuid.UUID,
	line *entities.EquipmentLine,
	from, to entities.InventoryLocation,
) error {
	qty := line.ReceivedQty
	source, err := repos.Equipment().FindInventoryRecord(ctx, line.EquipmentTypeID, &siteID, from)
	switch {
	case err == nil:
		moved := min(qty, source.Quantity)
		if moved < qty {
			o.log.Warn("inventory pool short during relocation",
				"equipment_type_id", line.EquipmentTypeID, "from", from, "have", source.Quantity, "need", qty)
		}
		source.Quantity -= moved
		if err := repos.Equipment().UpdateInventoryRecord(ctx, source); err != nil {
			return err
		}
	case errs.KindOf(err) == errs.KindNotFound:
		o.log.Warn("no inventory pool to relocate from", "equipment_type_id", line.EquipmentTypeID, "from", from)
	default:
		return err
	}

	_, err = repos.Equipment().AddInventory(ctx, &entities.InventoryRecord{
		EquipmentTypeID: line.EquipmentTypeID,
		SiteID:          &siteID,
		Location:        to,
		Quantity:        qty,
		ReservedForSite: true,
	})
	return err
}

func requireLines(op string, batch *entities.EquipmentBatch) error {
	if len(batch.Lines) == 0 {
		return errs.InvalidState(op, "batch has no equipment lines", "batch "+batch.ID.String())
	}
	return nil
}

func labels(lines []*entities.EquipmentLine) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, line.Label())
	}
	return out
}
