package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkflowStatus is a read-only projection of a job's equipment pipeline
type WorkflowStatus struct {
	JobID         uuid.UUID
	JobStatus     JobStatus
	BatchID       *uuid.UUID
	BatchStatus   *BatchStatus
	LineCounts    map[LineStatus]int
	TotalLines    int
	TaskCounts    map[TaskStatus]int
	Discrepancies int
	CanAccept     bool
	CanReceive    bool
	CanShip       bool
	CanClose      bool
}

// ConflictKind classifies a resource conflict
type ConflictKind string

const (
	TechnicianDoubleBooking ConflictKind = "TechnicianDoubleBooking"
	MaterialShortage        ConflictKind = "MaterialShortage"
	ToolUnavailable         ConflictKind = "ToolUnavailable"
)

// ResourceConflict describes one resource overlap found for a task or job
type ResourceConflict struct {
	Kind         ConflictKind
	TaskID       uuid.UUID
	OtherTaskID  *uuid.UUID
	TechnicianID *uuid.UUID
	MaterialID   *uuid.UUID
	ToolID       *uuid.UUID
	Demand       decimal.Decimal
	Available    decimal.Decimal
	Message      string
}
