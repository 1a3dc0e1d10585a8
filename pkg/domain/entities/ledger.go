package entities

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// SiteEquipmentLedgerEntry is an immutable journal row of net installs per site
type SiteEquipmentLedgerEntry struct {
	ID                uuid.UUID
	SiteID            uuid.UUID
	EquipmentTypeID   uuid.UUID
	QuantityInstalled Quantity // signed; removals are negative
	InstallationDate  time.Time
	SourceJobID       uuid.UUID
	BatchID           uuid.UUID
	LineID            uuid.UUID
}

// SiteEquipmentSnapshot is the derived current quantity for a site and type
type SiteEquipmentSnapshot struct {
	SiteID          uuid.UUID
	EquipmentTypeID uuid.UUID
	CurrentQty      Quantity
	LastUpdateUTC   time.Time
}

type snapshotKey struct {
	site uuid.UUID
	kind uuid.UUID
}

// AggregateLedger sums ledger rows per (site, equipment type). Output is sorted
// by site then type so repeated runs produce identical rows.
func AggregateLedger(entries []SiteEquipmentLedgerEntry, now time.Time) []SiteEquipmentSnapshot {
	totals := make(map[snapshotKey]Quantity)
	for _, e := range entries {
		totals[snapshotKey{e.SiteID, e.EquipmentTypeID}] += e.QuantityInstalled
	}

	snapshots := make([]SiteEquipmentSnapshot, 0, len(totals))
	for k, qty := range totals {
		snapshots = append(snapshots, SiteEquipmentSnapshot{
			SiteID:          k.site,
			EquipmentTypeID: k.kind,
			CurrentQty:      qty,
			LastUpdateUTC:   now.UTC(),
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].SiteID != snapshots[j].SiteID {
			return snapshots[i].SiteID.String() < snapshots[j].SiteID.String()
		}
		return snapshots[i].EquipmentTypeID.String() < snapshots[j].EquipmentTypeID.String()
	})
	return snapshots
}
