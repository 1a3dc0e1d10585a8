package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

// Technician is a field worker who can be assigned to tasks
type Technician struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Roles string // free text, e.g. "splicer, climber"
}

// NewTechnician creates a validated Technician
func NewTechnician(name, phone, roles string) (*Technician, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("technician name cannot be empty")
	}
	return &Technician{
		ID:    uuid.New(),
		Name:  name,
		Phone: phone,
		Roles: roles,
	}, nil
}

// HasRoles reports whether any role text is set
func (t *Technician) HasRoles() bool {
	return strings.TrimSpace(t.Roles) != ""
}

// CalendarEntry blocks a technician's time outside task assignments
type CalendarEntry struct {
	ID           uuid.UUID
	TechnicianID uuid.UUID
	Start        time.Time
	End          time.Time
	Reason       string
}

// ToolStatus represents tool availability
type ToolStatus string

const (
	ToolAvailable        ToolStatus = "Available"
	ToolCheckedOut       ToolStatus = "Checked Out"
	ToolUnderMaintenance ToolStatus = "Under Maintenance"
	ToolRetired          ToolStatus = "Retired"
)

// Condition represents the physical condition of a tool or equipment type
type Condition string

const (
	ConditionNew  Condition = "New"
	ConditionGood Condition = "Good"
	ConditionFair Condition = "Fair"
	ConditionPoor Condition = "Poor"
)

// Valid reports whether c is a known condition
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Tool is a single serialized tool
type Tool struct {
	ID          uuid.UUID
	Name        string
	ItemType    string
	ModelNumber string
	Status      ToolStatus
	Condition   Condition
}

// ToolModelNumber builds the model number for the nth tool of an item type
func ToolModelNumber(itemType string, n int) string {
	return fmt.Sprintf("%s%d", itemType, n)
}

// ToolAssignment records a tool checkout; no ActualReturn means still out
type ToolAssignment struct {
	ID             uuid.UUID
	ToolID         uuid.UUID
	TechnicianID   uuid.UUID
	JobID          *uuid.UUID
	CheckoutDate   time.Time
	ExpectedReturn time.Time
	ActualReturn   *time.Time
}

// NewToolAssignment creates a validated open ToolAssignment
func NewToolAssignment(toolID, technicianID uuid.UUID, jobID *uuid.UUID, checkout, expectedReturn time.Time) (*ToolAssignment, error) {
	if toolID == uuid.Nil || technicianID == uuid.Nil {
		return nil, errs.Validation("tool assignment needs a tool and a technician")
	}
	if expectedReturn.Before(checkout) {
		return nil, errs.Validation("expected return is before checkout")
	}
	return &ToolAssignment{
		ID:             uuid.New(),
		ToolID:         toolID,
		TechnicianID:   technicianID,
		JobID:          jobID,
		CheckoutDate:   checkout,
		ExpectedReturn: expectedReturn,
	}, nil
}

// IsOpen reports whether the tool has not come back yet
func (a *ToolAssignment) IsOpen() bool {
	return a.ActualReturn == nil
}

// Material is a pooled consumable with a mutable stock quantity
type Material struct {
	ID            uuid.UUID
	Name          string
	StockQuantity decimal.Decimal
}

// NewMaterial creates a validated Material
func NewMaterial(name string, stock decimal.Decimal) (*Material, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("material name cannot be empty")
	}
	if stock.IsNegative() {
		return nil, errs.Validation("stock quantity cannot be negative, got %s", stock)
	}
	return &Material{
		ID:            uuid.New(),
		Name:          name,
		StockQuantity: stock,
	}, nil
}
