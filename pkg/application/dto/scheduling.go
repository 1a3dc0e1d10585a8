package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/application/services/forecast"
	"github.com/vsinha/fieldflow/pkg/application/services/planning"
	"github.com/vsinha/fieldflow/pkg/application/services/scheduling"
	"github.com/vsinha/fieldflow/pkg/application/services/suggestion"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
)

type Conflict struct {
	Kind         string           `json:"kind"`
	TaskID       uuid.UUID        `json:"task_id"`
	OtherTaskID  *uuid.UUID       `json:"other_task_id,omitempty"`
	TechnicianID *uuid.UUID       `json:"technician_id,omitempty"`
	MaterialID   *uuid.UUID       `json:"material_id,omitempty"`
	ToolID       *uuid.UUID       `json:"tool_id,omitempty"`
	Demand       *decimal.Decimal `json:"demand,omitempty"`
	Available    *decimal.Decimal `json:"available,omitempty"`
	Message      string           `json:"message"`
}

func FromConflicts(cs []entities.ResourceConflict) []Conflict {
	out := make([]Conflict, 0, len(cs))
	for _, c := range cs {
		dc := Conflict{
			Kind:         string(c.Kind),
			TaskID:       c.TaskID,
			OtherTaskID:  c.OtherTaskID,
			TechnicianID: c.TechnicianID,
			MaterialID:   c.MaterialID,
			ToolID:       c.ToolID,
			Message:      c.Message,
		}
		if c.Kind == entities.MaterialShortage {
			demand, available := c.Demand, c.Available
			dc.Demand, dc.Available = &demand, &available
		}
		out = append(out, dc)
	}
	return out
}

type ScheduleValidation struct {
	TaskID              uuid.UUID   `json:"task_id"`
	Valid               bool        `json:"valid"`
	MaterialConflicts   []Conflict  `json:"material_conflicts"`
	TechnicianAvailable bool        `json:"technician_available"`
	UnmetPrerequisites  []uuid.UUID `json:"unmet_prerequisites"`
	Reasons             []string    `json:"reasons"`
}

func FromScheduleValidation(v *scheduling.ScheduleValidation) ScheduleValidation {
	out := ScheduleValidation{
		TaskID:              v.TaskID,
		Valid:               v.Valid,
		MaterialConflicts:   FromConflicts(v.MaterialConflicts),
		TechnicianAvailable: v.TechnicianAvailable,
		UnmetPrerequisites:  nonNil(v.UnmetPrerequisites),
		Reasons:             v.Reasons,
	}
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	return out
}

type CriticalPathNode struct {
	TaskID        uuid.UUID `json:"task_id"`
	TaskName      string    `json:"task_name"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	EarliestStart time.Time `json:"earliest_start"`
	LatestStart   time.Time `json:"latest_start"`
	SlackDays     float64   `json:"slack_days"`
	Critical      bool      `json:"critical"`
	Violated      bool      `json:"violated"`
}

type CriticalPath struct {
	JobID        uuid.UUID          `json:"job_id"`
	AnalysisDate time.Time          `json:"analysis_date"`
	Nodes        []CriticalPathNode `json:"nodes"`
	CriticalPath []CriticalPathNode `json:"critical_path"`
	Violations   []CriticalPathNode `json:"violations"`
}

func fromNodes(nodes []entities.CriticalPathNode) []CriticalPathNode {
	out := make([]CriticalPathNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CriticalPathNode(n))
	}
	return out
}

func FromCriticalPath(a *entities.CriticalPathAnalysis) CriticalPath {
	return CriticalPath{
		JobID:        a.JobID,
		AnalysisDate: a.AnalysisDate,
		Nodes:        fromNodes(a.Nodes),
		CriticalPath: fromNodes(a.CriticalPath),
		Violations:   fromNodes(a.Violations),
	}
}

type Slot struct {
	ID           uuid.UUID  `json:"id"`
	TaskID       uuid.UUID  `json:"task_id"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	Start        time.Time  `json:"start"`
	End          time.Time  `json:"end"`
	Locked       bool       `json:"locked"`
}

func FromSlot(s *entities.ScheduleSlot) Slot {
	return Slot(*s)
}

type AssignTechnicianRequest struct {
	TechnicianID uuid.UUID `json:"technician_id" binding:"required"`
}

type AddDependencyRequest struct {
	PrerequisiteTaskID uuid.UUID `json:"prerequisite_task_id" binding:"required"`
}

type ForecastIssue struct {
	MaterialID       uuid.UUID       `json:"material_id"`
	MaterialName     string          `json:"material_name"`
	Stock            decimal.Decimal `json:"stock"`
	CumulativeDemand decimal.Decimal `json:"cumulative_demand"`
	Shortfall        decimal.Decimal `json:"shortfall"`
}

func FromForecastIssues(issues []forecast.ForecastIssue) []ForecastIssue {
	out := make([]ForecastIssue, 0, len(issues))
	for _, i := range issues {
		out = append(out, ForecastIssue(i))
	}
	return out
}

type Availability struct {
	MaterialID uuid.UUID       `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Available  bool            `json:"available"`
	Date       *time.Time      `json:"date,omitempty"`
}

type Suggestion struct {
	Kind           string     `json:"kind"`
	Priority       string     `json:"priority"`
	TaskID         uuid.UUID  `json:"task_id"`
	Message        string     `json:"message"`
	MaterialID     *uuid.UUID `json:"material_id,omitempty"`
	TechnicianID   *uuid.UUID `json:"technician_id,omitempty"`
	RelatedTaskID  *uuid.UUID `json:"related_task_id,omitempty"`
	SuggestedStart *time.Time `json:"suggested_start,omitempty"`
	SuggestedEnd   *time.Time `json:"suggested_end,omitempty"`
}

func FromSuggestions(ss []suggestion.Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(ss))
	for _, s := range ss {
		out = append(out, Suggestion{
			Kind:           string(s.Kind),
			Priority:       string(s.Priority),
			TaskID:         s.TaskID,
			Message:        s.Message,
			MaterialID:     s.MaterialID,
			TechnicianID:   s.TechnicianID,
			RelatedTaskID:  s.RelatedTaskID,
			SuggestedStart: s.SuggestedStart,
			SuggestedEnd:   s.SuggestedEnd,
		})
	}
	return out
}

type Candidate struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Score int       `json:"score"`
}

type TaskPlan struct {
	TaskID      uuid.UUID   `json:"task_id"`
	TaskName    string      `json:"task_name"`
	Technicians []Candidate `json:"technicians"`
}

type PlanningConflict struct {
	Kind         string     `json:"kind"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	ToolID       *uuid.UUID `json:"tool_id,omitempty"`
	OtherJobID   *uuid.UUID `json:"other_job_id,omitempty"`
	Message      string     `json:"message"`
}

type Planning struct {
	JobID         uuid.UUID          `json:"job_id"`
	GeneratedAt   time.Time          `json:"generated_at"`
	Tasks         []TaskPlan         `json:"tasks"`
	Tools         []Candidate        `json:"tools"`
	Equipment     []Candidate        `json:"equipment"`
	TechnicianAvg decimal.Decimal    `json:"technician_avg"`
	ToolAvg       decimal.Decimal    `json:"tool_avg"`
	EquipmentAvg  decimal.Decimal    `json:"equipment_avg"`
	Conflicts     []PlanningConflict `json:"conflicts"`
	OverallScore  decimal.Decimal    `json:"overall_score"`
}

func fromCandidates(cs []planning.Candidate) []Candidate {
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		out = append(out, Candidate(c))
	}
	return out
}

func FromPlanning(r *planning.PlanningResult) Planning {
	out := Planning{
		JobID:         r.JobID,
		GeneratedAt:   r.GeneratedAt,
		Tasks:         make([]TaskPlan, 0, len(r.Tasks)),
		Tools:         fromCandidates(r.Tools),
		Equipment:     fromCandidates(r.Equipment),
		TechnicianAvg: r.TechnicianAvg,
		ToolAvg:       r.ToolAvg,
		EquipmentAvg:  r.EquipmentAvg,
		Conflicts:     make([]PlanningConflict, 0, len(r.Conflicts)),
		OverallScore:  r.OverallScore,
	}
	for _, t := range r.Tasks {
		out.Tasks = append(out.Tasks, TaskPlan{TaskID: t.TaskID, TaskName: t.TaskName, Technicians: fromCandidates(t.Technicians)})
	}
	for _, c := range r.Conflicts {
		out.Conflicts = append(out.Conflicts, PlanningConflict{
			Kind:         string(c.Kind),
			TechnicianID: c.TechnicianID,
			ToolID:       c.ToolID,
			OtherJobID:   c.OtherJobID,
			Message:      c.Message,
		})
	}
	return out
}
