package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
)

// CloseResult is the closed job plus the ledger rows it appended
type CloseResult struct {
	Job           *entities.Job
	Batch         *entities.EquipmentBatch
	LedgerEntries []entities.SiteEquipmentLedgerEntry
}

// CloseJobWithValidation completes a job whose equipment is fully installed.
// Stock moves to the site's permanent pool and one ledger row is appended per
// line. Nothing changes when any line is still pending.
func (o *Orchestrator) CloseJobWithValidation(ctx context.Context, jobID uuid.UUID) (*CloseResult, error) {
	ctx, leave, err := o.enterLedger(ctx, OpCloseJob, false)
	if err != nil {
		return nil, err
	}
	defer leave()

	result := &CloseResult{}
	err = o.run(ctx, OpCloseJob, forJob(jobID), func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		job, err := repos.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status != entities.JobAccepted && job.Status != entities.JobInProgress {
			return nil, errs.InvalidState(OpCloseJob,
				fmt.Sprintf("job status is %s, expected Accepted or In Progress", job.Status), "job "+job.ID.String())
		}

		batch, err := repos.Equipment().GetBatchByJob(ctx, job.ID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.InvalidState(OpCloseJob, "job has no equipment batch", "job "+job.ID.String())
		}
		if err != nil {
			return nil, err
		}
		if err := requireLines(OpCloseJob, batch); err != nil {
			return nil, err
		}
		if pending := batch.LinesNotAt(entities.LineOnSiteInstalled); len(pending) > 0 {
			return nil, errs.InvalidState(OpCloseJob, "equipment not yet installed", labels(pending)...)
		}

		now := o.now()
		entries := make([]entities.SiteEquipmentLedgerEntry, 0, len(batch.Lines))
		for _, line := range batch.Lines {
			if err := o.relocate(ctx, repos, batch.SiteID, line, entities.LocationSite, entities.LocationSitePermanent); err != nil {
				return nil, err
			}
			installed := now
			if line.InstalledDate != nil {
				installed = *line.InstalledDate
			}
			entries = append(entries, entities.SiteEquipmentLedgerEntry{
				ID:                uuid.New(),
				SiteID:            batch.SiteID,
				EquipmentTypeID:   line.EquipmentTypeID,
				QuantityInstalled: line.ReceivedQty,
				InstallationDate:  installed,
				SourceJobID:       job.ID,
				BatchID:           batch.ID,
				LineID:            line.ID,
			})
		}

		batch.Status = entities.BatchClosed
		if err := repos.Equipment().UpdateBatch(ctx, batch); err != nil {
			return nil, err
		}
		job.Status = entities.JobCompleted
		job.CompletedAt = &now
		if err := repos.Jobs().UpdateJob(ctx, job); err != nil {
			return nil, err
		}
		if err := repos.Ledger().AppendLedgerEntries(ctx, entries); err != nil {
			return nil, err
		}

		result.Job = job
		result.Batch = batch
		result.LedgerEntries = entries
		return []events.Event{
			events.NewEvent(events.JobClosedEvent, events.JobStream(job.ID), events.JobClosed{
				JobID:         job.ID,
				BatchID:       batch.ID,
				LedgerEntries: len(entries),
			}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	o.log.Info("job closed", "job_id", jobID, "ledger_entries", len(result.LedgerEntries))
	return result, nil
}

// RebuildSiteEquipmentSnapshots replaces every snapshot with the per site and
// equipment type sum of the ledger. Ledger appends wait until it finishes.
func (o *Orchestrator) RebuildSiteEquipmentSnapshots(ctx context.Context) ([]entities.SiteEquipmentSnapshot, error) {
	ctx, leave, err := o.enterLedger(ctx, OpRebuildSnapshots, true)
	if err != nil {
		return nil, err
	}
	defer leave()

	var snapshots []entities.SiteEquipmentSnapshot
	err = o.run(ctx, OpRebuildSnapshots, nil, func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error) {
		if err := repos.Ledger().LockLedgerForRebuild(ctx); err != nil {
			return nil, err
		}
		entries, err := repos.Ledger().ListLedgerEntries(ctx)
		if err != nil {
			return nil, err
		}
		now := o.now()
		snapshots = entities.AggregateLedger(entries, now)
		if err := repos.Ledger().ReplaceSnapshots(ctx, snapshots); err != nil {
			return nil, err
		}
		return []events.Event{
			events.NewEvent(events.SnapshotsRebuiltEvent, events.LedgerStream, events.SnapshotsRebuilt{Rows: len(snapshots)}, now),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	o.metrics.SnapshotRows.Set(float64(len(snapshots)))
	o.log.Info("site equipment snapshots rebuilt", "rows", len(snapshots))
	return snapshots, nil
}

// SiteEquipment returns the current snapshot rows for a site
func (o *Orchestrator) SiteEquipment(ctx context.Context, siteID uuid.UUID) ([]entities.SiteEquipmentSnapshot, error) {
	var snapshots []entities.SiteEquipmentSnapshot
	err := o.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		snapshots, err = repos.Ledger().ListSnapshots(ctx, &siteID)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("SiteEquipment", err)
	}
	return snapshots, nil
}
