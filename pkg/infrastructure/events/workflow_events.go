package events

import (
	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

const (
	JobAcceptedEvent       = "job.accepted"
	BatchReceivedEvent     = "batch.received"
	DiscrepancyLoggedEvent = "discrepancy.logged"
	BatchShippedEvent      = "batch.shipped"
	LineAssignedEvent      = "line.assigned"
	TaskCompletedEvent     = "task.completed"
	LineInstalledEvent     = "line.installed"
	JobClosedEvent         = "job.closed"
	SnapshotsRebuiltEvent  = "snapshots.rebuilt"
)

// WorkflowEventTypes lists every event the workflow emits
var WorkflowEventTypes = []string{
	JobAcceptedEvent,
	BatchReceivedEvent,
	DiscrepancyLoggedEvent,
	BatchShippedEvent,
	LineAssignedEvent,
	TaskCompletedEvent,
	LineInstalledEvent,
	JobClosedEvent,
	SnapshotsRebuiltEvent,
}

// JobStream names the stream holding a job's workflow events
func JobStream(jobID uuid.UUID) string {
	return "job:" + jobID.String()
}

// LedgerStream is the stream for system-wide ledger events
const LedgerStream = "ledger"

type JobAccepted struct {
	JobID   uuid.UUID `json:"job_id"`
	BatchID uuid.UUID `json:"batch_id"`
	Lines   int       `json:"lines"`
}

type BatchReceived struct {
	BatchID     uuid.UUID `json:"batch_id"`
	LinesMoved  int       `json:"lines_moved"`
	ReadyToShip bool      `json:"ready_to_ship"`
}

type DiscrepancyLogged struct {
	Discrepancy entities.EquipmentDiscrepancy `json:"discrepancy"`
}

type BatchShipped struct {
	BatchID uuid.UUID `json:"batch_id"`
	Lines   int       `json:"lines"`
}

type LineAssigned struct {
	TaskID   uuid.UUID         `json:"task_id"`
	LineID   uuid.UUID         `json:"line_id"`
	Quantity entities.Quantity `json:"quantity"`
}

type TaskCompleted struct {
	TaskID uuid.UUID `json:"task_id"`
	JobID  uuid.UUID `json:"job_id"`
}

type LineInstalled struct {
	LineID  uuid.UUID `json:"line_id"`
	BatchID uuid.UUID `json:"batch_id"`
}

type JobClosed struct {
	JobID         uuid.UUID `json:"job_id"`
	BatchID       uuid.UUID `json:"batch_id"`
	LedgerEntries int       `json:"ledger_entries"`
}

type SnapshotsRebuilt struct {
	Rows int `json:"rows"`
}
