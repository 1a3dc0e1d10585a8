package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

// Quantity represents a discrete count of equipment units
type Quantity int64

// JobStatus represents where a job is in its lifecycle
type JobStatus string

const (
	JobPending    JobStatus = "Pending"
	JobCreated    JobStatus = "Created"
	JobAccepted   JobStatus = "Accepted"
	JobInProgress JobStatus = "In Progress"
	JobCompleted  JobStatus = "Completed"
)

// String method for JobStatus enum
func (s JobStatus) String() string {
	return string(s)
}

// Valid reports whether s is a known job status
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobCreated, JobAccepted, JobInProgress, JobCompleted:
		return true
	}
	return false
}

// CanTransitionTo encodes Pending/Created -> Accepted -> (In Progress) -> Completed
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobPending, JobCreated:
		return next == JobAccepted
	case JobAccepted:
		return next == JobInProgress || next == JobCompleted
	case JobInProgress:
		return next == JobCompleted
	}
	return false
}

// Job is a field deployment at one site for one client
type Job struct {
	ID           uuid.UUID
	Name         string
	SiteID       uuid.UUID
	ClientID     uuid.UUID
	Status       JobStatus
	StartDate    time.Time
	EndDate      time.Time
	CompletedAt  *time.Time
	Requirements []JobRequirement
}

// NewJob creates a validated Job in the Created status
func NewJob(name string, siteID, clientID uuid.UUID, start, end time.Time) (*Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errs.Validation("job name cannot be empty")
	}
	if siteID == uuid.Nil {
		return nil, errs.Validation("job site cannot be empty")
	}
	if end.Before(start) {
		return nil, errs.Validation("job end date %s is before start date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return &Job{
		ID:        uuid.New(),
		Name:      name,
		SiteID:    siteID,
		ClientID:  clientID,
		Status:    JobCreated,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// JobRequirement is the planned quantity of one equipment type for a job
type JobRequirement struct {
	ID              uuid.UUID
	JobID           uuid.UUID
	EquipmentTypeID uuid.UUID
	PlannedQty      Quantity
}

// NewJobRequirement creates a validated JobRequirement
func NewJobRequirement(jobID, equipmentTypeID uuid.UUID, plannedQty Quantity) (*JobRequirement, error) {
	if jobID == uuid.Nil {
		return nil, errs.Validation("requirement job cannot be empty")
	}
	if equipmentTypeID == uuid.Nil {
		return nil, errs.Validation("requirement equipment type cannot be empty")
	}
	if plannedQty <= 0 {
		return nil, errs.Validation("planned quantity must be positive, got %d", plannedQty)
	}
	return &JobRequirement{
		ID:              uuid.New(),
		JobID:           jobID,
		EquipmentTypeID: equipmentTypeID,
		PlannedQty:      plannedQty,
	}, nil
}

// Overlaps reports whether [aStart,aEnd] and [bStart,bEnd] intersect, inclusive of endpoints
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !bStart.After(aEnd) && !bEnd.Before(aStart)
}
