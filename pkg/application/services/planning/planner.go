// Package planning aggregates technician, tool and equipment suggestions for
// a whole job and scores the plan.
package planning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// MaxCandidates bounds each shortlist
const MaxCandidates = 5

var (
	technicianWeight = decimal.RequireFromString("0.4")
	toolWeight       = decimal.RequireFromString("0.3")
	equipmentWeight  = decimal.RequireFromString("0.3")
	conflictPenalty  = decimal.NewFromInt(10)
)

// Candidate is one scored suggestion
type Candidate struct {
	ID    uuid.UUID
	Name  string
	Score int
}

// TaskPlan holds the technician shortlist for one task
type TaskPlan struct {
	TaskID      uuid.UUID
	TaskName    string
	Technicians []Candidate
}

// ConflictKind classifies a planning conflict
type ConflictKind string

const (
	TechnicianDoubleBooked ConflictKind = "TechnicianDoubleBooked"
	ToolUnavailable        ConflictKind = "ToolUnavailable"
)

// PlanningConflict is a resource overlap across the whole job window
type PlanningConflict struct {
	Kind         ConflictKind
	TechnicianID *uuid.UUID
	ToolID       *uuid.UUID
	OtherJobID   *uuid.UUID
	Message      string
}

// PlanningResult is the advisory plan for a job
type PlanningResult struct {
	JobID         uuid.UUID
	GeneratedAt   time.Time
	Tasks         []TaskPlan
	Tools         []Candidate
	Equipment     []Candidate
	TechnicianAvg decimal.Decimal
	ToolAvg       decimal.Decimal
	EquipmentAvg  decimal.Decimal
	Conflicts     []PlanningConflict
	OverallScore  decimal.Decimal
}

// Planner builds PlanningResults. It never writes.
type Planner struct {
	uow    repositories.UnitOfWork
	scorer Scorer
	log    *logger.Logger
	now    shared.Clock
}

// NewPlanner creates a planner; a nil scorer uses a time-seeded HeuristicScorer
func NewPlanner(uow repositories.UnitOfWork, scorer Scorer, log *logger.Logger, now shared.Clock) *Planner {
	if now == nil {
		now = shared.SystemClock
	}
	if scorer == nil {
		scorer = NewHeuristicScorer(uint64(time.Now().UnixNano()))
	}
	return &Planner{
		uow:    uow,
		scorer: scorer,
		log:    log.With("service", "Planner"),
		now:    now,
	}
}

// GeneratePlanning shortlists and scores resources for every task of the job
// and detects conflicts across the job window. Missing data yields empty
// shortlists and zero averages.
func (p *Planner) GeneratePlanning(ctx context.Context, jobID uuid.UUID) (*PlanningResult, error) {
	var result *PlanningResult
	err := p.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		job, err := repos.Jobs().GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		result = &PlanningResult{JobID: job.ID, GeneratedAt: p.now()}

		if err := p.planTechnicians(ctx, repos, job, result); err != nil {
			return err
		}
		if err := p.planTools(ctx, repos, result); err != nil {
			return err
		}
		if err := p.planEquipment(ctx, repos, job, result); err != nil {
			return err
		}
		if err := p.detectConflicts(ctx, repos, job, result); err != nil {
			return err
		}
		result.OverallScore = overallScore(result)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("GeneratePlanning", err)
	}
	p.log.Info("planning generated", "job_id", jobID, "tasks", len(result.Tasks), "conflicts", len(result.Conflicts), "score", result.OverallScore.String())
	return result, nil
}

func (p *Planner) planTechnicians(ctx context.Context, repos repositories.Repositories, job *entities.Job, result *PlanningResult) error {
	tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{JobID: &job.ID})
	if err != nil {
		return fmt.Errorf("list job tasks: %w", err)
	}
	technicians, err := repos.Resources().ListTechnicians(ctx)
	if err != nil {
		return fmt.Errorf("list technicians: %w", err)
	}
	shortlist := technicians[:min(len(technicians), MaxCandidates)]

	var scores []int
	for _, task := range tasks {
		plan := TaskPlan{TaskID: task.ID, TaskName: task.Name}
		for _, tech := range shortlist {
			score := p.scorer.ScoreTechnician(tech)
			plan.Technicians = append(plan.Technicians, Candidate{ID: tech.ID, Name: tech.Name, Score: score})
			scores = append(scores, score)
		}
		sortCandidates(plan.Technicians)
		result.Tasks = append(result.Tasks, plan)
	}
	result.TechnicianAvg = average(scores)
	return nil
}

func (p *Planner) planTools(ctx context.Context, repos repositories.Repositories, result *PlanningResult) error {
	tools, err := repos.Resources().ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	var scores []int
	for _, tool := range tools {
		if tool.Status == entities.ToolRetired {
			continue
		}
		if len(result.Tools) == MaxCandidates {
			break
		}
		score := p.scorer.ScoreTool(tool)
		result.Tools = append(result.Tools, Candidate{ID: tool.ID, Name: tool.ModelNumber, Score: score})
		scores = append(scores, score)
	}
	sortCandidates(result.Tools)
	result.ToolAvg = average(scores)
	return nil
}

// planEquipment scores the job's required equipment types, or the whole
// catalogue when the job has no requirements yet
func (p *Planner) planEquipment(ctx context.Context, repos repositories.Repositories, job *entities.Job, result *PlanningResult) error {
	var types []*entities.EquipmentType
	if len(job.Requirements) > 0 {
		for _, req := range job.Requirements {
			et, err := repos.Equipment().GetEquipmentType(ctx, req.EquipmentTypeID)
			if err != nil {
				return err
			}
			types = append(types, et)
		}
	} else {
		all, err := repos.Equipment().ListEquipmentTypes(ctx)
		if err != nil {
			return fmt.Errorf("list equipment types: %w", err)
		}
		types = all
	}

	var scores []int
	for _, et := range types[:min(len(types), MaxCandidates)] {
		score := p.scorer.ScoreEquipment(et)
		result.Equipment = append(result.Equipment, Candidate{ID: et.ID, Name: et.Name, Score: score})
		scores = append(scores, score)
	}
	sortCandidates(result.Equipment)
	result.EquipmentAvg = average(scores)
	return nil
}

// detectConflicts finds technicians of this job booked on other jobs inside
// the job window, and every open tool checkout overlapping it, including
// checkouts already made for this job
func (p *Planner) detectConflicts(ctx context.Context, repos repositories.Repositories, job *entities.Job, result *PlanningResult) error {
	tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{JobID: &job.ID})
	if err != nil {
		return fmt.Errorf("list job tasks: %w", err)
	}

	type booking struct{ tech, job uuid.UUID }
	seen := make(map[booking]bool)
	for _, task := range tasks {
		if task.TechnicianID == nil {
			continue
		}
		techID := *task.TechnicianID
		others, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{
			TechnicianID: &techID,
			OverlapFrom:  &job.StartDate,
			OverlapTo:    &job.EndDate,
		})
		if err != nil {
			return fmt.Errorf("list technician tasks: %w", err)
		}
		for _, other := range others {
			key := booking{techID, other.JobID}
			if other.JobID == job.ID || seen[key] {
				continue
			}
			seen[key] = true
			otherJob := other.JobID
			result.Conflicts = append(result.Conflicts, PlanningConflict{
				Kind:         TechnicianDoubleBooked,
				TechnicianID: &techID,
				OtherJobID:   &otherJob,
				Message:      fmt.Sprintf("technician %s is booked on job %s during this job", techID, otherJob),
			})
		}
	}

	assignments, err := repos.Resources().ListOpenToolAssignments(ctx)
	if err != nil {
		return fmt.Errorf("list open tool assignments: %w", err)
	}
	for _, a := range assignments {
		if !entities.Overlaps(a.CheckoutDate, a.ExpectedReturn, job.StartDate, job.EndDate) {
			continue
		}
		toolID := a.ToolID
		result.Conflicts = append(result.Conflicts, PlanningConflict{
			Kind:    ToolUnavailable,
			ToolID:  &toolID,
			Message: fmt.Sprintf("tool %s is checked out until %s", toolID, a.ExpectedReturn.Format(time.DateOnly)),
		})
	}
	return nil
}

// overallScore is 0.4 tech + 0.3 tool + 0.3 equipment minus 10 per conflict, floored at 0
func overallScore(r *PlanningResult) decimal.Decimal {
	score := r.TechnicianAvg.Mul(technicianWeight).
		Add(r.ToolAvg.Mul(toolWeight)).
		Add(r.EquipmentAvg.Mul(equipmentWeight)).
		Sub(conflictPenalty.Mul(decimal.NewFromInt(int64(len(r.Conflicts)))))
	if score.IsNegative() {
		return decimal.Zero
	}
	return score.Round(2)
}

func average(scores []int) decimal.Decimal {
	if len(scores) == 0 {
		return decimal.Zero
	}
	total := 0
	for _, s := range scores {
		total += s
	}
	return decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(scores)))).Round(2)
}

func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		return c[i].Score > c[j].Score
	})
}
