package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// EquipmentRepository stores equipment types, batches, lines and stock pools
type EquipmentRepository struct {
	*conn
}

// Verify interface compliance
var _ repositories.EquipmentRepository = (*EquipmentRepository)(nil)

const equipmentTypeColumns = `id, name, model_number, status, condition, category`

func scanEquipmentType(row pgx.Row) (*entities.EquipmentType, error) {
	var et entities.EquipmentType
	if err := row.Scan(&et.ID, &et.Name, &et.ModelNumber, &et.Status, &et.Condition, &et.Category); err != nil {
		return nil, err
	}
	return &et, nil
}

// GetEquipmentType returns an equipment type by id
func (r *EquipmentRepository) GetEquipmentType(ctx context.Context, id uuid.UUID) (*entities.EquipmentType, error) {
	et, err := scanEquipmentType(r.tx.QueryRow(ctx,
		`SELECT `+equipmentTypeColumns+` FROM equipment_types WHERE id = $1`, id))
	if err != nil {
		return nil, lookupErr(err, "equipment type", id)
	}
	return et, nil
}

// ListEquipmentTypes returns equipment types ordered by name
func (r *EquipmentRepository) ListEquipmentTypes(ctx context.Context) ([]*entities.EquipmentType, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+equipmentTypeColumns+` FROM equipment_types ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list equipment types: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.EquipmentType, error) {
		return scanEquipmentType(row)
	})
}

// CreateEquipmentType stores an equipment type
func (r *EquipmentRepository) CreateEquipmentType(ctx context.Context, et *entities.EquipmentType) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO equipment_types (`+equipmentTypeColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		et.ID, et.Name, et.ModelNumber, et.Status, et.Condition, et.Category)
	if err != nil {
		return writeErr(err, "equipment type "+et.ID.String())
	}
	return nil
}

// CreateBatch stores a batch and its lines; one batch per job
func (r *EquipmentRepository) CreateBatch(ctx context.Context, batch *entities.EquipmentBatch) error {
	var taken bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM equipment_batches WHERE job_id = $1)`, batch.JobID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check batch for job %s: %w", batch.JobID, err)
	}
	if taken {
		return errs.InvalidState("", "job already has an equipment batch", "job "+batch.JobID.String())
	}

	_, err = r.tx.Exec(ctx, `
		INSERT INTO equipment_batches (id, job_id, site_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		batch.ID, batch.JobID, batch.SiteID, batch.Status, batch.CreatedAt)
	if err != nil {
		return writeErr(err, "equipment batch")
	}

	lines := &pgx.Batch{}
	for i, line := range batch.Lines {
		lines.Queue(`
			INSERT INTO equipment_lines (id, batch_id, position, equipment_type_id, planned_qty,
			    received_qty, status, received_date, shipped_date, installed_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			line.ID, batch.ID, i, line.EquipmentTypeID, line.PlannedQty,
			line.ReceivedQty, line.Status, line.ReceivedDate, line.ShippedDate, line.InstalledDate)
	}
	if err := r.tx.SendBatch(ctx, lines).Close(); err != nil {
		return writeErr(err, "equipment line")
	}
	return nil
}

const batchColumns = `id, job_id, site_id, status, created_at`

func (r *EquipmentRepository) getBatch(ctx context.Context, where string, arg uuid.UUID, entity string) (*entities.EquipmentBatch, error) {
	var b entities.EquipmentBatch
	err := r.tx.QueryRow(ctx, `SELECT `+batchColumns+` FROM equipment_batches WHERE `+where+r.forUpdate(), arg).
		Scan(&b.ID, &b.JobID, &b.SiteID, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, lookupErr(err, entity, arg)
	}
	lines, err := r.queryLines(ctx, `WHERE l.batch_id = $1`, b.ID)
	if err != nil {
		return nil, err
	}
	b.Lines = lines
	return &b, nil
}

func (r *EquipmentRepository) queryLines(ctx context.Context, where string, arg uuid.UUID) ([]*entities.EquipmentLine, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT l.id, l.batch_id, l.equipment_type_id, et.name, l.planned_qty, l.received_qty,
		       l.status, l.received_date, l.shipped_date, l.installed_date
		FROM equipment_lines l
		JOIN equipment_types et ON et.id = l.equipment_type_id
		`+where+`
		ORDER BY l.position`, arg)
	if err != nil {
		return nil, fmt.Errorf("load equipment lines: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.EquipmentLine, error) {
		var l entities.EquipmentLine
		err := row.Scan(&l.ID, &l.BatchID, &l.EquipmentTypeID, &l.EquipmentName, &l.PlannedQty, &l.ReceivedQty,
			&l.Status, &l.ReceivedDate, &l.ShippedDate, &l.InstalledDate)
		return &l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan equipment lines: %w", err)
	}
	return lines, nil
}

// GetBatch returns a batch with its lines, row-locked in write transactions
func (r *EquipmentRepository) GetBatch(ctx context.Context, id uuid.UUID) (*entities.EquipmentBatch, error) {
	return r.getBatch(ctx, "id = $1", id, "equipment batch")
}

// GetBatchByJob returns the batch created when the job was accepted
func (r *EquipmentRepository) GetBatchByJob(ctx context.Context, jobID uuid.UUID) (*entities.EquipmentBatch, error) {
	return r.getBatch(ctx, "job_id = $1", jobID, "equipment batch for job")
}

// UpdateBatch overwrites the batch status; lines are updated separately
func (r *EquipmentRepository) UpdateBatch(ctx context.Context, batch *entities.EquipmentBatch) error {
	tag, err := r.tx.Exec(ctx, `UPDATE equipment_batches SET status = $2 WHERE id = $1`, batch.ID, batch.Status)
	return expectOne(tag, err, "equipment batch", batch.ID)
}

// GetLine returns a line by id
func (r *EquipmentRepository) GetLine(ctx context.Context, id uuid.UUID) (*entities.EquipmentLine, error) {
	lines, err := r.queryLines(ctx, `WHERE l.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errs.NotFound("equipment line", id)
	}
	return lines[0], nil
}

// UpdateLine overwrites a line's quantities, status and dates
func (r *EquipmentRepository) UpdateLine(ctx context.Context, line *entities.EquipmentLine) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE equipment_lines
		SET planned_qty = $2, received_qty = $3, status = $4,
		    received_date = $5, shipped_date = $6, installed_date = $7
		WHERE id = $1`,
		line.ID, line.PlannedQty, line.ReceivedQty, line.Status,
		line.ReceivedDate, line.ShippedDate, line.InstalledDate)
	return expectOne(tag, err, "equipment line", line.ID)
}

// AddDiscrepancy stores a receiving discrepancy
func (r *EquipmentRepository) AddDiscrepancy(ctx context.Context, d *entities.EquipmentDiscrepancy) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO equipment_discrepancies (id, batch_id, line_id, planned_qty, received_qty, recorded_at, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.BatchID, d.LineID, d.PlannedQty, d.ReceivedQty, d.RecordedAt, d.Note)
	if err != nil {
		return writeErr(err, "equipment discrepancy")
	}
	return nil
}

// ListDiscrepancies returns the discrepancies logged for a batch
func (r *EquipmentRepository) ListDiscrepancies(ctx context.Context, batchID uuid.UUID) ([]entities.EquipmentDiscrepancy, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, batch_id, line_id, planned_qty, received_qty, recorded_at, note
		FROM equipment_discrepancies
		WHERE batch_id = $1
		ORDER BY recorded_at, id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list discrepancies: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.EquipmentDiscrepancy, error) {
		var d entities.EquipmentDiscrepancy
		err := row.Scan(&d.ID, &d.BatchID, &d.LineID, &d.PlannedQty, &d.ReceivedQty, &d.RecordedAt, &d.Note)
		return d, err
	})
}

const inventoryColumns = `id, equipment_type_id, site_id, location, quantity, reserved_for_site`

func scanInventory(row pgx.Row) (*entities.InventoryRecord, error) {
	var rec entities.InventoryRecord
	if err := row.Scan(&rec.ID, &rec.EquipmentTypeID, &rec.SiteID, &rec.Location, &rec.Quantity, &rec.ReservedForSite); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindInventoryRecord returns the pool for (type, site, location), row-locked in write transactions
func (r *EquipmentRepository) FindInventoryRecord(ctx context.Context, equipmentTypeID uuid.UUID, siteID *uuid.UUID, location entities.InventoryLocation) (*entities.InventoryRecord, error) {
	rec, err := scanInventory(r.tx.QueryRow(ctx, `
		SELECT `+inventoryColumns+` FROM equipment_inventory
		WHERE equipment_type_id = $1 AND site_id IS NOT DISTINCT FROM $2 AND location = $3`+r.forUpdate(),
		equipmentTypeID, siteID, location))
	if err != nil {
		return nil, lookupErr(err, "inventory record for equipment type", equipmentTypeID)
	}
	return rec, nil
}

// AddInventory creates the pool if absent, otherwise increments it
func (r *EquipmentRepository) AddInventory(ctx context.Context, rec *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	stored, err := scanInventory(r.tx.QueryRow(ctx, `
		INSERT INTO equipment_inventory (`+inventoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (equipment_type_id, site_id, location) DO UPDATE
		SET quantity = equipment_inventory.quantity + EXCLUDED.quantity,
		    reserved_for_site = equipment_inventory.reserved_for_site OR EXCLUDED.reserved_for_site
		RETURNING `+inventoryColumns,
		id, rec.EquipmentTypeID, rec.SiteID, rec.Location, rec.Quantity, rec.ReservedForSite))
	if err != nil {
		return nil, writeErr(err, "inventory record")
	}
	return stored, nil
}

// UpdateInventoryRecord overwrites a pool
func (r *EquipmentRepository) UpdateInventoryRecord(ctx context.Context, rec *entities.InventoryRecord) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE equipment_inventory SET quantity = $2, reserved_for_site = $3 WHERE id = $1`,
		rec.ID, rec.Quantity, rec.ReservedForSite)
	return expectOne(tag, err, "inventory record", rec.ID)
}

// ListInventoryRecords returns all pools ordered by location
func (r *EquipmentRepository) ListInventoryRecords(ctx context.Context) ([]*entities.InventoryRecord, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+inventoryColumns+` FROM equipment_inventory ORDER BY location, id`)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entities.InventoryRecord, error) {
		return scanInventory(row)
	})
}
