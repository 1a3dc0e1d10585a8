package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// LedgerRepository provides in-memory ledger and snapshot storage
type LedgerRepository struct {
	st *state
}

// Verify interface compliance
var _ repositories.LedgerRepository = (*LedgerRepository)(nil)

// AppendLedgerEntries appends journal rows
func (r *LedgerRepository) AppendLedgerEntries(_ context.Context, entries []entities.SiteEquipmentLedgerEntry) error {
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		r.st.ledger = append(r.st.ledger, e)
	}
	return nil
}

// ListLedgerEntries returns the journal in append order
func (r *LedgerRepository) ListLedgerEntries(_ context.Context) ([]entities.SiteEquipmentLedgerEntry, error) {
	return slices.Clone(r.st.ledger), nil
}

// LockLedgerForRebuild is a no-op; store writers are already serialized
func (r *LedgerRepository) LockLedgerForRebuild(_ context.Context) error {
	return nil
}

// ReplaceSnapshots drops every snapshot and stores the given ones
func (r *LedgerRepository) ReplaceSnapshots(_ context.Context, snapshots []entities.SiteEquipmentSnapshot) error {
	r.st.snapshots = slices.Clone(snapshots)
	return nil
}

// ListSnapshots returns snapshots, optionally for one site
func (r *LedgerRepository) ListSnapshots(_ context.Context, siteID *uuid.UUID) ([]entities.SiteEquipmentSnapshot, error) {
	var out []entities.SiteEquipmentSnapshot
	for _, s := range r.st.snapshots {
		if siteID == nil || s.SiteID == *siteID {
			out = append(out, s)
		}
	}
	return out, nil
}
