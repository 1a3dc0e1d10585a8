package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// LedgerRepository stores the site equipment ledger and its snapshots
type LedgerRepository struct {
	*conn
}

// Verify interface compliance
var _ repositories.LedgerRepository = (*LedgerRepository)(nil)

// AppendLedgerEntries appends journal rows
func (r *LedgerRepository) AppendLedgerEntries(ctx context.Context, entries []entities.SiteEquipmentLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.tx.CopyFrom(ctx,
		pgx.Identifier{"site_equipment_ledger"},
		[]string{"id", "site_id", "equipment_type_id", "quantity_installed", "installation_date", "source_job_id", "batch_id", "line_id"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			return []any{e.ID, e.SiteID, e.EquipmentTypeID, int64(e.QuantityInstalled), e.InstallationDate, e.SourceJobID, e.BatchID, e.LineID}, nil
		}))
	if err != nil {
		return writeErr(err, "ledger entries")
	}
	return nil
}

// ListLedgerEntries returns the journal in append order
func (r *LedgerRepository) ListLedgerEntries(ctx context.Context) ([]entities.SiteEquipmentLedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, site_id, equipment_type_id, quantity_installed, installation_date, source_job_id, batch_id, line_id
		FROM site_equipment_ledger
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.SiteEquipmentLedgerEntry, error) {
		var e entities.SiteEquipmentLedgerEntry
		err := row.Scan(&e.ID, &e.SiteID, &e.EquipmentTypeID, &e.QuantityInstalled, &e.InstallationDate,
			&e.SourceJobID, &e.BatchID, &e.LineID)
		return e, err
	})
}

// LockLedgerForRebuild takes a SHARE lock, which conflicts with inserts until commit
func (r *LedgerRepository) LockLedgerForRebuild(ctx context.Context) error {
	if _, err := r.tx.Exec(ctx, `LOCK TABLE site_equipment_ledger IN SHARE MODE`); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	return nil
}

// ReplaceSnapshots drops every snapshot and stores the given ones
func (r *LedgerRepository) ReplaceSnapshots(ctx context.Context, snapshots []entities.SiteEquipmentSnapshot) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM site_equipment_snapshots`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return nil
	}
	_, err := r.tx.CopyFrom(ctx,
		pgx.Identifier{"site_equipment_snapshots"},
		[]string{"site_id", "equipment_type_id", "current_qty", "last_update_utc"},
		pgx.CopyFromSlice(len(snapshots), func(i int) ([]any, error) {
			s := snapshots[i]
			return []any{s.SiteID, s.EquipmentTypeID, int64(s.CurrentQty), s.LastUpdateUTC}, nil
		}))
	if err != nil {
		return writeErr(err, "snapshots")
	}
	return nil
}

// ListSnapshots returns snapshots, optionally for one site
func (r *LedgerRepository) ListSnapshots(ctx context.Context, siteID *uuid.UUID) ([]entities.SiteEquipmentSnapshot, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT site_id, equipment_type_id, current_qty, last_update_utc
		FROM site_equipment_snapshots
		WHERE $1::uuid IS NULL OR site_id = $1
		ORDER BY site_id, equipment_type_id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.SiteEquipmentSnapshot, error) {
		var s entities.SiteEquipmentSnapshot
		err := row.Scan(&s.SiteID, &s.EquipmentTypeID, &s.CurrentQty, &s.LastUpdateUTC)
		return s, err
	})
}
