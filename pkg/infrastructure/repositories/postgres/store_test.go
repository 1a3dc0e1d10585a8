package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// openStore migrates and opens the database named by TEST_POSTGRES_DSN
func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, dsn))
	store, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func seedJob(t *testing.T, store *Store) (*entities.Job, *entities.EquipmentType) {
	t.Helper()
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	job, err := entities.NewJob("Tower 7", uuid.New(), uuid.New(), start, start.AddDate(0, 0, 14))
	require.NoError(t, err)
	router, err := entities.NewEquipmentType("Router", "RT-100", "network")
	require.NoError(t, err)
	req, err := entities.NewJobRequirement(job.ID, router.ID, 4)
	require.NoError(t, err)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Equipment().CreateEquipmentType(ctx, router); err != nil {
			return err
		}
		if err := repos.Jobs().CreateJob(ctx, job); err != nil {
			return err
		}
		return repos.Jobs().AddRequirement(ctx, req)
	}))
	return job, router
}

func TestStore_CommitAndRollback(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	job, _ := seedJob(t, store)

	require.NoError(t, store.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		got, err := repos.Jobs().GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.Name, got.Name)
		assert.Equal(t, entities.JobCreated, got.Status)
		require.Len(t, got.Requirements, 1)
		assert.Equal(t, entities.Quantity(4), got.Requirements[0].PlannedQty)
		return nil
	}))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		stored, err := repos.Jobs().GetJob(ctx, job.ID)
		require.NoError(t, err)
		stored.Status = entities.JobAccepted
		require.NoError(t, repos.Jobs().UpdateJob(ctx, stored))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		got, err := repos.Jobs().GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.JobCreated, got.Status)
		return nil
	}))
}

func TestStore_MissingRowsAreNotFound(t *testing.T) {
	store := openStore(t)
	err := store.ReadOnly(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
		_, err := repos.Jobs().GetJob(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	err = store.WithinTx(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Jobs().UpdateJob(ctx, &entities.Job{ID: uuid.New(), Status: entities.JobCreated})
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEquipmentRepository_BatchAndInventory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	job, router := seedJob(t, store)

	batch := &entities.EquipmentBatch{
		ID: uuid.New(), JobID: job.ID, SiteID: job.SiteID,
		Status: entities.BatchCreated, CreatedAt: time.Now().UTC(),
		Lines: []*entities.EquipmentLine{{
			ID: uuid.New(), EquipmentTypeID: router.ID, PlannedQty: 4, Status: entities.LineClientWarehouse,
		}},
	}
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Equipment().CreateBatch(ctx, batch); err != nil {
			return err
		}
		for range 2 {
			if _, err := repos.Equipment().AddInventory(ctx, &entities.InventoryRecord{
				EquipmentTypeID: router.ID,
				SiteID:          &job.SiteID,
				Location:        entities.LocationSDSWarehouse,
				Quantity:        3,
			}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		got, err := repos.Equipment().GetBatchByJob(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, "Router", got.Lines[0].EquipmentName)

		rec, err := repos.Equipment().FindInventoryRecord(ctx, router.ID, &job.SiteID, entities.LocationSDSWarehouse)
		require.NoError(t, err)
		assert.Equal(t, entities.Quantity(6), rec.Quantity)
		return nil
	}))

	err := store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Equipment().CreateBatch(ctx, &entities.EquipmentBatch{ID: uuid.New(), JobID: job.ID})
	})
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestLedgerRepository_AppendAndRebuild(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	job, router := seedJob(t, store)
	lineID := uuid.New()
	batch := &entities.EquipmentBatch{
		ID: uuid.New(), JobID: job.ID, SiteID: job.SiteID,
		Status: entities.BatchShipped, CreatedAt: time.Now().UTC(),
		Lines: []*entities.EquipmentLine{{
			ID: lineID, EquipmentTypeID: router.ID, PlannedQty: 4, Status: entities.LineOnSiteInstalled,
		}},
	}
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Equipment().CreateBatch(ctx, batch); err != nil {
			return err
		}
		return repos.Ledger().AppendLedgerEntries(ctx, []entities.SiteEquipmentLedgerEntry{
			{SiteID: job.SiteID, EquipmentTypeID: router.ID, QuantityInstalled: 4, InstallationDate: now,
				SourceJobID: job.ID, BatchID: batch.ID, LineID: lineID},
			{SiteID: job.SiteID, EquipmentTypeID: router.ID, QuantityInstalled: -1, InstallationDate: now,
				SourceJobID: job.ID, BatchID: batch.ID, LineID: lineID},
		})
	}))

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Ledger().LockLedgerForRebuild(ctx); err != nil {
			return err
		}
		entries, err := repos.Ledger().ListLedgerEntries(ctx)
		if err != nil {
			return err
		}
		return repos.Ledger().ReplaceSnapshots(ctx, entities.AggregateLedger(entries, now))
	}))

	require.NoError(t, store.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		snaps, err := repos.Ledger().ListSnapshots(ctx, &job.SiteID)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, entities.Quantity(3), snaps[0].CurrentQty)
		return nil
	}))
}

func TestTaskRepository_RelationsRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	job, _ := seedJob(t, store)

	survey, err := entities.NewJobTask(job.ID, "Survey", job.StartDate, job.StartDate.AddDate(0, 0, 2))
	require.NoError(t, err)
	install, err := entities.NewJobTask(job.ID, "Install", job.StartDate.AddDate(0, 0, 3), job.StartDate.AddDate(0, 0, 5))
	require.NoError(t, err)
	cable, err := entities.NewMaterial("Cable", decimal.NewFromInt(100))
	require.NoError(t, err)
	req, err := entities.NewMaterialRequirement(cable.ID, install.ID, decimal.RequireFromString("12.5"))
	require.NoError(t, err)

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		for _, task := range []*entities.JobTask{survey, install} {
			if err := repos.Tasks().CreateTask(ctx, task); err != nil {
				return err
			}
		}
		if err := repos.Resources().CreateMaterial(ctx, cable); err != nil {
			return err
		}
		if err := repos.Tasks().AddDependency(ctx, entities.TaskDependency{ParentTaskID: install.ID, PrerequisiteTaskID: survey.ID}); err != nil {
			return err
		}
		return repos.Tasks().AddMaterialRequirement(ctx, req)
	}))

	require.NoError(t, store.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{JobID: &job.ID})
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, survey.ID, tasks[0].ID)
		assert.Equal(t, []uuid.UUID{survey.ID}, tasks[1].Prerequisites)
		require.Len(t, tasks[1].Materials, 1)
		assert.True(t, tasks[1].Materials[0].Quantity.Equal(decimal.RequireFromString("12.5")))
		return nil
	}))

	err = store.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Tasks().AddDependency(ctx, entities.TaskDependency{ParentTaskID: install.ID, PrerequisiteTaskID: survey.ID})
	})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
