package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

// EquipmentType is a kind of equipment, not a serialized unit
type EquipmentType struct {
	ID          uuid.UUID
	Name        string
	ModelNumber string
	Status      ToolStatus
	Condition   Condition
	Category    string
}

// NewEquipmentType creates a validated EquipmentType
func NewEquipmentType(name, modelNumber, category string) (*EquipmentType, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("equipment type name cannot be empty")
	}
	return &EquipmentType{
		ID:          uuid.New(),
		Name:        name,
		ModelNumber: modelNumber,
		Status:      ToolAvailable,
		Condition:   ConditionNew,
		Category:    category,
	}, nil
}

// BatchStatus represents the shipment state of an equipment batch
type BatchStatus string

const (
	BatchCreated          BatchStatus = "Created"
	BatchReadyForShipping BatchStatus = "Ready for Shipping"
	BatchShipped          BatchStatus = "Shipped"
	BatchClosed           BatchStatus = "Closed"
)

// String method for BatchStatus enum
func (s BatchStatus) String() string {
	return string(s)
}

// LineStatus represents where the equipment of a line physically is
type LineStatus string

const (
	LineClientWarehouse  LineStatus = "ClientWarehouse"
	LineSDSWarehouse     LineStatus = "SDSWarehouse"
	LineOnSiteInstalling LineStatus = "OnSiteInstalling"
	LineOnSiteInstalled  LineStatus = "OnSiteInstalled"
)

// String method for LineStatus enum
func (s LineStatus) String() string {
	return string(s)
}

// Rank orders line statuses along the pipeline; unknown statuses rank -1
func (s LineStatus) Rank() int {
	switch s {
	case LineClientWarehouse:
		return 0
	case LineSDSWarehouse:
		return 1
	case LineOnSiteInstalling:
		return 2
	case LineOnSiteInstalled:
		return 3
	}
	return -1
}

// CanAdvanceTo allows only the next step forward
func (s LineStatus) CanAdvanceTo(next LineStatus) bool {
	return s.Rank() >= 0 && next.Rank() == s.Rank()+1
}

// EquipmentBatch is one shipment-worth of lines for a job acceptance
type EquipmentBatch struct {
	ID        uuid.UUID
	JobID     uuid.UUID
	SiteID    uuid.UUID
	Status    BatchStatus
	CreatedAt time.Time
	Lines     []*EquipmentLine
}

// AllLinesAt reports whether every line has the given status. Empty batches report false.
func (b *EquipmentBatch) AllLinesAt(status LineStatus) bool {
	if len(b.Lines) == 0 {
		return false
	}
	for _, line := range b.Lines {
		if line.Status != status {
			return false
		}
	}
	return true
}

// LinesNotAt returns the lines whose status differs from status
func (b *EquipmentBatch) LinesNotAt(status LineStatus) []*EquipmentLine {
	var pending []*EquipmentLine
	for _, line := range b.Lines {
		if line.Status != status {
			pending = append(pending, line)
		}
	}
	return pending
}

// Line returns the line with the given id, or nil
func (b *EquipmentBatch) Line(id uuid.UUID) *EquipmentLine {
	for _, line := range b.Lines {
		if line.ID == id {
			return line
		}
	}
	return nil
}

// EquipmentLine tracks planned vs received quantity of one equipment type
type EquipmentLine struct {
	ID              uuid.UUID
	BatchID         uuid.UUID
	EquipmentTypeID uuid.UUID
	EquipmentName   string
	PlannedQty      Quantity
	ReceivedQty     Quantity
	Status          LineStatus
	ReceivedDate    *time.Time
	ShippedDate     *time.Time
	InstalledDate   *time.Time
}

// Advance moves the line one step along the pipeline and stamps the date of
// that step. Skipping a step or moving backwards fails InvalidState.
func (l *EquipmentLine) Advance(next LineStatus, at time.Time) error {
	if !l.Status.CanAdvanceTo(next) {
		return errs.InvalidState("", fmt.Sprintf("equipment line cannot move from %s to %s", l.Status, next), l.Label())
	}
	l.Status = next
	switch next {
	case LineSDSWarehouse:
		l.ReceivedDate = &at
	case LineOnSiteInstalling:
		l.ShippedDate = &at
	case LineOnSiteInstalled:
		l.InstalledDate = &at
	}
	return nil
}

// HasDiscrepancy reports whether the received quantity differs from plan
func (l *EquipmentLine) HasDiscrepancy() bool {
	return l.ReceivedQty != l.PlannedQty
}

// Label names the line by equipment type for error messages
func (l *EquipmentLine) Label() string {
	if l.EquipmentName != "" {
		return l.EquipmentName
	}
	return l.EquipmentTypeID.String()
}

// EquipmentDiscrepancy is an informational record of a receiving mismatch
type EquipmentDiscrepancy struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	LineID      uuid.UUID
	PlannedQty  Quantity
	ReceivedQty Quantity
	RecordedAt  time.Time
	Note        string
}

// InventoryLocation is where a stock pool currently sits
type InventoryLocation string

const (
	LocationSDSWarehouse  InventoryLocation = "SDSWarehouse"
	LocationSite          InventoryLocation = "Site"
	LocationSitePermanent InventoryLocation = "SitePermanent"
)

// InventoryRecord is a movable stock pool; relocated or incremented, never deleted
type InventoryRecord struct {
	ID              uuid.UUID
	EquipmentTypeID uuid.UUID
	SiteID          *uuid.UUID
	Location        InventoryLocation
	Quantity        Quantity
	ReservedForSite bool
}
