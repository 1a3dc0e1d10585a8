package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// EquipmentRepository provides in-memory equipment, batch and stock storage
type EquipmentRepository struct {
	st *state
}

// Verify interface compliance
var _ repositories.EquipmentRepository = (*EquipmentRepository)(nil)

// GetEquipmentType returns an equipment type by id
func (r *EquipmentRepository) GetEquipmentType(_ context.Context, id uuid.UUID) (*entities.EquipmentType, error) {
	et, ok := r.st.equipmentTypes[id]
	if !ok {
		return nil, errs.NotFound("equipment type", id)
	}
	return &et, nil
}

// ListEquipmentTypes returns equipment types ordered by name
func (r *EquipmentRepository) ListEquipmentTypes(_ context.Context) ([]*entities.EquipmentType, error) {
	types := make([]*entities.EquipmentType, 0, len(r.st.equipmentTypes))
	for _, et := range r.st.equipmentTypes {
		types = append(types, &et)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].Name < types[j].Name
	})
	return types, nil
}

// CreateEquipmentType stores an equipment type
func (r *EquipmentRepository) CreateEquipmentType(_ context.Context, et *entities.EquipmentType) error {
	r.st.equipmentTypes[et.ID] = *et
	return nil
}

// CreateBatch stores a batch and its lines; one batch per job
func (r *EquipmentRepository) CreateBatch(_ context.Context, batch *entities.EquipmentBatch) error {
	for _, existing := range r.st.batches {
		if existing.JobID == batch.JobID {
			return errs.InvalidState("", "job already has an equipment batch", "job "+batch.JobID.String())
		}
	}
	stored := *batch
	stored.Lines = nil
	r.st.batches[batch.ID] = stored

	lineIDs := make([]uuid.UUID, 0, len(batch.Lines))
	for _, line := range batch.Lines {
		l := *line
		l.BatchID = batch.ID
		r.st.lines[l.ID] = l
		lineIDs = append(lineIDs, l.ID)
	}
	r.st.batchLines[batch.ID] = lineIDs
	return nil
}

func (r *EquipmentRepository) loadBatch(batch entities.EquipmentBatch) *entities.EquipmentBatch {
	batch.Lines = make([]*entities.EquipmentLine, 0, len(r.st.batchLines[batch.ID]))
	for _, id := range r.st.batchLines[batch.ID] {
		batch.Lines = append(batch.Lines, r.loadLine(r.st.lines[id]))
	}
	return &batch
}

func (r *EquipmentRepository) loadLine(line entities.EquipmentLine) *entities.EquipmentLine {
	if et, ok := r.st.equipmentTypes[line.EquipmentTypeID]; ok {
		line.EquipmentName = et.Name
	}
	return &line
}

// GetBatch returns a batch with its lines
func (r *EquipmentRepository) GetBatch(_ context.Context, id uuid.UUID) (*entities.EquipmentBatch, error) {
	batch, ok := r.st.batches[id]
	if !ok {
		return nil, errs.NotFound("equipment batch", id)
	}
	return r.loadBatch(batch), nil
}

// GetBatchByJob returns the batch created when the job was accepted
func (r *EquipmentRepository) GetBatchByJob(_ context.Context, jobID uuid.UUID) (*entities.EquipmentBatch, error) {
	for _, batch := range r.st.batches {
		if batch.JobID == jobID {
			return r.loadBatch(batch), nil
		}
	}
	return nil, errs.NotFound("equipment batch for job", jobID)
}

// UpdateBatch overwrites the batch status; lines are updated separately
func (r *EquipmentRepository) UpdateBatch(_ context.Context, batch *entities.EquipmentBatch) error {
	if _, ok := r.st.batches[batch.ID]; !ok {
		return errs.NotFound("equipment batch", batch.ID)
	}
	stored := *batch
	stored.Lines = nil
	r.st.batches[batch.ID] = stored
	return nil
}

// GetLine returns a line by id
func (r *EquipmentRepository) GetLine(_ context.Context, id uuid.UUID) (*entities.EquipmentLine, error) {
	line, ok := r.st.lines[id]
	if !ok {
		return nil, errs.NotFound("equipment line", id)
	}
	return r.loadLine(line), nil
}

// UpdateLine overwrites a line
func (r *EquipmentRepository) UpdateLine(_ context.Context, line *entities.EquipmentLine) error {
	if _, ok := r.st.lines[line.ID]; !ok {
		return errs.NotFound("equipment line", line.ID)
	}
	r.st.lines[line.ID] = *line
	return nil
}

// AddDiscrepancy stores a receiving discrepancy
func (r *EquipmentRepository) AddDiscrepancy(_ context.Context, d *entities.EquipmentDiscrepancy) error {
	r.st.discrepancies = append(r.st.discrepancies, *d)
	return nil
}

// ListDiscrepancies returns the discrepancies logged for a batch
func (r *EquipmentRepository) ListDiscrepancies(_ context.Context, batchID uuid.UUID) ([]entities.EquipmentDiscrepancy, error) {
	var out []entities.EquipmentDiscrepancy
	for _, d := range r.st.discrepancies {
		if d.BatchID == batchID {
			out = append(out, d)
		}
	}
	return out, nil
}

func sameSite(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FindInventoryRecord returns the pool for (type, site, location)
func (r *EquipmentRepository) FindInventoryRecord(_ context.Context, equipmentTypeID uuid.UUID, siteID *uuid.UUID, location entities.InventoryLocation) (*entities.InventoryRecord, error) {
	for _, rec := range r.st.inventory {
		if rec.EquipmentTypeID == equipmentTypeID && rec.Location == location && sameSite(rec.SiteID, siteID) {
			return &rec, nil
		}
	}
	return nil, errs.NotFound("inventory record for equipment type", equipmentTypeID)
}

// AddInventory creates the pool if absent, otherwise increments it
func (r *EquipmentRepository) AddInventory(ctx context.Context, rec *entities.InventoryRecord) (*entities.InventoryRecord, error) {
	existing, err := r.FindInventoryRecord(ctx, rec.EquipmentTypeID, rec.SiteID, rec.Location)
	if err == nil {
		existing.Quantity += rec.Quantity
		existing.ReservedForSite = existing.ReservedForSite || rec.ReservedForSite
		r.st.inventory[existing.ID] = *existing
		return existing, nil
	}
	created := *rec
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	r.st.inventory[created.ID] = created
	return &created, nil
}

// UpdateInventoryRecord overwrites a pool
func (r *EquipmentRepository) UpdateInventoryRecord(_ context.Context, rec *entities.InventoryRecord) error {
	if _, ok := r.st.inventory[rec.ID]; !ok {
		return errs.NotFound("inventory record", rec.ID)
	}
	r.st.inventory[rec.ID] = *rec
	return nil
}

// ListInventoryRecords returns all pools ordered by location
func (r *EquipmentRepository) ListInventoryRecords(_ context.Context) ([]*entities.InventoryRecord, error) {
	out := make([]*entities.InventoryRecord, 0, len(r.st.inventory))
	for _, rec := range r.st.inventory {
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
