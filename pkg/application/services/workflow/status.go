package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
)

// GetWorkflowStatus projects the job's pipeline state and which operations
// are currently legal. It never writes.
func (o *Orchestrator) GetWorkflowStatus(ctx context.Context, jobID uuid.UUID) (*entities.WorkflowStatus, error) {
	var status *entities.WorkflowStatus
	err := o.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		job, err := repos.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		status = &entities.WorkflowStatus{
			JobID:      job.ID,
			JobStatus:  job.Status,
			LineCounts: make(map[entities.LineStatus]int),
			TaskCounts: make(map[entities.TaskStatus]int),
		}

		tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{JobID: &job.ID})
		if err != nil {
			return err
		}
		for _, task := range tasks {
			status.TaskCounts[task.Status]++
		}

		batch, err := repos.Equipment().GetBatchByJob(ctx, job.ID)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			batch = nil
		case err != nil:
			return err
		}

		jobOpen := job.Status == entities.JobAccepted || job.Status == entities.JobInProgress
		status.CanAccept = batch == nil && job.Status.CanTransitionTo(entities.JobAccepted) && len(job.Requirements) > 0
		if batch == nil {
			return nil
		}

		batchID, batchStatus := batch.ID, batch.Status
		status.BatchID = &batchID
		status.BatchStatus = &batchStatus
		status.TotalLines = len(batch.Lines)
		for _, line := range batch.Lines {
			status.LineCounts[line.Status]++
		}
		discrepancies, err := repos.Equipment().ListDiscrepancies(ctx, batch.ID)
		if err != nil {
			return err
		}
		status.Discrepancies = len(discrepancies)

		// receivable while some line is still at the client warehouse
		status.CanReceive = batch.Status == entities.BatchCreated && len(batch.LinesNotAt(entities.LineClientWarehouse)) < len(batch.Lines)
		status.CanShip = batch.Status == entities.BatchReadyForShipping && batch.AllLinesAt(entities.LineSDSWarehouse)
		status.CanClose = jobOpen && batch.Status == entities.BatchShipped && batch.AllLinesAt(entities.LineOnSiteInstalled)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("GetWorkflowStatus", err)
	}
	return status, nil
}

// ListDiscrepancies returns the receiving discrepancies of a batch
func (o *Orchestrator) ListDiscrepancies(ctx context.Context, batchID uuid.UUID) ([]entities.EquipmentDiscrepancy, error) {
	var out []entities.EquipmentDiscrepancy
	err := o.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Equipment().GetBatch(ctx, batchID); err != nil {
			return err
		}
		var err error
		out, err = repos.Equipment().ListDiscrepancies(ctx, batchID)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("ListDiscrepancies", err)
	}
	return out, nil
}

// JobEvents returns the workflow events still retained for the job, oldest
// first. A job without a configured event store has no history.
func (o *Orchestrator) JobEvents(ctx context.Context, jobID uuid.UUID) ([]events.Event, error) {
	err := o.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		_, err := repos.Jobs().GetJob(ctx, jobID)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("JobEvents", err)
	}
	if o.events == nil {
		return []events.Event{}, nil
	}
	history, err := o.events.ReadEvents(events.JobStream(jobID), 0)
	if err != nil {
		return nil, errs.Wrap("JobEvents", err)
	}
	return history, nil
}
