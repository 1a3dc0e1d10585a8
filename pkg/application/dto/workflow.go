// Package dto holds the JSON payloads of the HTTP API and the CLI's JSON output.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/services/workflow"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
)

type Job struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	SiteID       uuid.UUID        `json:"site_id"`
	ClientID     uuid.UUID        `json:"client_id"`
	Status       string           `json:"status"`
	StartDate    time.Time        `json:"start_date"`
	EndDate      time.Time        `json:"end_date"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	Requirements []JobRequirement `json:"requirements,omitempty"`
}

type JobRequirement struct {
	EquipmentTypeID uuid.UUID `json:"equipment_type_id"`
	PlannedQty      int64     `json:"planned_qty"`
}

func FromJob(j *entities.Job) Job {
	out := Job{
		ID:          j.ID,
		Name:        j.Name,
		SiteID:      j.SiteID,
		ClientID:    j.ClientID,
		Status:      string(j.Status),
		StartDate:   j.StartDate,
		EndDate:     j.EndDate,
		CompletedAt: j.CompletedAt,
	}
	for _, r := range j.Requirements {
		out.Requirements = append(out.Requirements, JobRequirement{
			EquipmentTypeID: r.EquipmentTypeID,
			PlannedQty:      int64(r.PlannedQty),
		})
	}
	return out
}

type Task struct {
	ID            uuid.UUID   `json:"id"`
	JobID         uuid.UUID   `json:"job_id"`
	Name          string      `json:"name"`
	Status        string      `json:"status"`
	Progress      int         `json:"progress"`
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	DurationDays  int         `json:"duration_days"`
	TechnicianID  *uuid.UUID  `json:"technician_id,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	Prerequisites []uuid.UUID `json:"prerequisites,omitempty"`
}

func FromTask(t *entities.JobTask) Task {
	return Task{
		ID:            t.ID,
		JobID:         t.JobID,
		Name:          t.Name,
		Status:        string(t.Status),
		Progress:      t.Progress,
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		DurationDays:  t.DurationDays,
		TechnicianID:  t.TechnicianID,
		CompletedAt:   t.CompletedAt,
		Prerequisites: t.Prerequisites,
	}
}

type Batch struct {
	ID        uuid.UUID `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	SiteID    uuid.UUID `json:"site_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Lines     []Line    `json:"lines"`
}

type Line struct {
	ID              uuid.UUID  `json:"id"`
	EquipmentTypeID uuid.UUID  `json:"equipment_type_id"`
	EquipmentName   string     `json:"equipment_name"`
	PlannedQty      int64      `json:"planned_qty"`
	ReceivedQty     int64      `json:"received_qty"`
	Status          string     `json:"status"`
	ReceivedDate    *time.Time `json:"received_date,omitempty"`
	ShippedDate     *time.Time `json:"shipped_date,omitempty"`
	InstalledDate   *time.Time `json:"installed_date,omitempty"`
}

func FromBatch(b *entities.EquipmentBatch) Batch {
	out := Batch{
		ID:        b.ID,
		JobID:     b.JobID,
		SiteID:    b.SiteID,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
		Lines:     make([]Line, 0, len(b.Lines)),
	}
	for _, l := range b.Lines {
		out.Lines = append(out.Lines, Line{
			ID:              l.ID,
			EquipmentTypeID: l.EquipmentTypeID,
			EquipmentName:   l.EquipmentName,
			PlannedQty:      int64(l.PlannedQty),
			ReceivedQty:     int64(l.ReceivedQty),
			Status:          string(l.Status),
			ReceivedDate:    l.ReceivedDate,
			ShippedDate:     l.ShippedDate,
			InstalledDate:   l.InstalledDate,
		})
	}
	return out
}

type Discrepancy struct {
	ID          uuid.UUID `json:"id"`
	LineID      uuid.UUID `json:"line_id"`
	PlannedQty  int64     `json:"planned_qty"`
	ReceivedQty int64     `json:"received_qty"`
	RecordedAt  time.Time `json:"recorded_at"`
	Note        string    `json:"note,omitempty"`
}

func FromDiscrepancies(ds []entities.EquipmentDiscrepancy) []Discrepancy {
	out := make([]Discrepancy, 0, len(ds))
	for _, d := range ds {
		out = append(out, Discrepancy{
			ID:          d.ID,
			LineID:      d.LineID,
			PlannedQty:  int64(d.PlannedQty),
			ReceivedQty: int64(d.ReceivedQty),
			RecordedAt:  d.RecordedAt,
			Note:        d.Note,
		})
	}
	return out
}

// ReceiveBatchRequest maps line ids to the quantity counted at the warehouse
type ReceiveBatchRequest struct {
	Received map[uuid.UUID]int64 `json:"received" binding:"required"`
}

// Quantities converts the request for the orchestrator
func (r ReceiveBatchRequest) Quantities() map[uuid.UUID]entities.Quantity {
	out := make(map[uuid.UUID]entities.Quantity, len(r.Received))
	for id, qty := range r.Received {
		out[id] = entities.Quantity(qty)
	}
	return out
}

type ReceiveResult struct {
	Batch         Batch         `json:"batch"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

func FromReceiveResult(r *workflow.ReceiveResult) ReceiveResult {
	return ReceiveResult{Batch: FromBatch(r.Batch), Discrepancies: FromDiscrepancies(r.Discrepancies)}
}

type TaskCompletion struct {
	Task       Task        `json:"task"`
	Installed  []uuid.UUID `json:"installed"`
	Waiting    []uuid.UUID `json:"waiting"`
	NotShipped []uuid.UUID `json:"not_shipped"`
}

func FromTaskCompletion(c *workflow.TaskCompletion) TaskCompletion {
	return TaskCompletion{
		Task:       FromTask(c.Task),
		Installed:  nonNil(c.Installed),
		Waiting:    nonNil(c.Waiting),
		NotShipped: nonNil(c.NotShipped),
	}
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

type LedgerEntry struct {
	ID                uuid.UUID `json:"id"`
	SiteID            uuid.UUID `json:"site_id"`
	EquipmentTypeID   uuid.UUID `json:"equipment_type_id"`
	QuantityInstalled int64     `json:"quantity_installed"`
	InstallationDate  time.Time `json:"installation_date"`
	LineID            uuid.UUID `json:"line_id"`
}

type CloseResult struct {
	Job           Job           `json:"job"`
	Batch         Batch         `json:"batch"`
	LedgerEntries []LedgerEntry `json:"ledger_entries"`
}

func FromCloseResult(r *workflow.CloseResult) CloseResult {
	out := CloseResult{Job: FromJob(r.Job), Batch: FromBatch(r.Batch), LedgerEntries: []LedgerEntry{}}
	for _, e := range r.LedgerEntries {
		out.LedgerEntries = append(out.LedgerEntries, LedgerEntry{
			ID:                e.ID,
			SiteID:            e.SiteID,
			EquipmentTypeID:   e.EquipmentTypeID,
			QuantityInstalled: int64(e.QuantityInstalled),
			InstallationDate:  e.InstallationDate,
			LineID:            e.LineID,
		})
	}
	return out
}

type Snapshot struct {
	SiteID          uuid.UUID `json:"site_id"`
	EquipmentTypeID uuid.UUID `json:"equipment_type_id"`
	CurrentQty      int64     `json:"current_qty"`
	LastUpdateUTC   time.Time `json:"last_update_utc"`
}

func FromSnapshots(snaps []entities.SiteEquipmentSnapshot) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Snapshot{
			SiteID:          s.SiteID,
			EquipmentTypeID: s.EquipmentTypeID,
			CurrentQty:      int64(s.CurrentQty),
			LastUpdateUTC:   s.LastUpdateUTC,
		})
	}
	return out
}

type WorkflowStatus struct {
	JobID         uuid.UUID      `json:"job_id"`
	JobStatus     string         `json:"job_status"`
	BatchID       *uuid.UUID     `json:"batch_id,omitempty"`
	BatchStatus   string         `json:"batch_status,omitempty"`
	LineCounts    map[string]int `json:"line_counts"`
	TotalLines    int            `json:"total_lines"`
	TaskCounts    map[string]int `json:"task_counts"`
	Discrepancies int            `json:"discrepancies"`
	CanAccept     bool           `json:"can_accept"`
	CanReceive    bool           `json:"can_receive"`
	CanShip       bool           `json:"can_ship"`
	CanClose      bool           `json:"can_close"`
}

func FromWorkflowStatus(s *entities.WorkflowStatus) WorkflowStatus {
	out := WorkflowStatus{
		JobID:         s.JobID,
		JobStatus:     string(s.JobStatus),
		BatchID:       s.BatchID,
		LineCounts:    make(map[string]int, len(s.LineCounts)),
		TotalLines:    s.TotalLines,
		TaskCounts:    make(map[string]int, len(s.TaskCounts)),
		Discrepancies: s.Discrepancies,
		CanAccept:     s.CanAccept,
		CanReceive:    s.CanReceive,
		CanShip:       s.CanShip,
		CanClose:      s.CanClose,
	}
	if s.BatchStatus != nil {
		out.BatchStatus = string(*s.BatchStatus)
	}
	for k, v := range s.LineCounts {
		out.LineCounts[string(k)] = v
	}
	for k, v := range s.TaskCounts {
		out.TaskCounts[string(k)] = v
	}
	return out
}

type AssignEquipmentLineRequest struct {
	LineID   uuid.UUID `json:"line_id" binding:"required"`
	Quantity int64     `json:"quantity" binding:"required"`
	Notes    string    `json:"notes"`
}

type TaskEquipmentLine struct {
	TaskID   uuid.UUID `json:"task_id"`
	LineID   uuid.UUID `json:"line_id"`
	Quantity int64     `json:"quantity"`
	Notes    string    `json:"notes,omitempty"`
}

func FromTaskEquipmentLine(l *entities.TaskEquipmentLine) TaskEquipmentLine {
	return TaskEquipmentLine{TaskID: l.TaskID, LineID: l.LineID, Quantity: int64(l.Quantity), Notes: l.Notes}
}

type Event struct {
	Type      string    `json:"type"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func FromEvents(evts []events.Event) []Event {
	out := make([]Event, 0, len(evts))
	for _, e := range evts {
		out = append(out, Event{
			Type:      e.Type(),
			Version:   e.Version(),
			Timestamp: e.Timestamp(),
			Data:      e.Data(),
		})
	}
	return out
}
