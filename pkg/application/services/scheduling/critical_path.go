package scheduling

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/domain/services"
)

// GetCriticalPath runs the two-pass analysis over the job's dependency graph.
// Earliest start is the latest prerequisite end, or the task's own start
// without prerequisites. Latest start is the earliest dependent start, or the
// task's own end without dependents. Tasks with exactly zero slack form the
// path; negative slack is reported as a violation instead.
func (s *Scheduler) GetCriticalPath(ctx context.Context, jobID uuid.UUID) (*entities.CriticalPathAnalysis, error) {
	var analysis *entities.CriticalPathAnalysis
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Jobs().GetJob(ctx, jobID); err != nil {
			return err
		}
		tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{JobID: &jobID})
		if err != nil {
			return fmt.Errorf("list job tasks: %w", err)
		}
		deps, err := repos.Tasks().ListDependencies(ctx, jobID)
		if err != nil {
			return fmt.Errorf("list dependencies: %w", err)
		}

		ids := make([]uuid.UUID, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		order, err := s.validator.TopologicalOrder(ids, deps)
		if err != nil {
			path := err.Error()
			if result := s.validator.Validate(deps); result.HasCycles {
				path = services.FormatPath(result.CyclePaths[0])
			}
			return errs.InvalidState("", "dependency graph has a cycle", path)
		}

		analysis = analyzeCriticalPath(jobID, tasks, order, deps, s.now())
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("GetCriticalPath", err)
	}
	return analysis, nil
}

// slackEpsilon absorbs float rounding of day fractions
const slackEpsilon = 1e-9

// analyzeCriticalPath builds nodes in order, which must list prerequisites
// before their parents, so ties in earliest start keep dependency order
func analyzeCriticalPath(jobID uuid.UUID, tasks []*entities.JobTask, order []uuid.UUID, deps []entities.TaskDependency, now time.Time) *entities.CriticalPathAnalysis {
	byID := make(map[uuid.UUID]*entities.JobTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	// Forward pass: prerequisites bound the earliest start
	earliest := make(map[uuid.UUID]time.Time, len(tasks))
	for _, t := range tasks {
		earliest[t.ID] = t.StartDate
	}
	hasPrereq := make(map[uuid.UUID]bool)
	for _, d := range deps {
		prereq, ok := byID[d.PrerequisiteTaskID]
		if !ok || byID[d.ParentTaskID] == nil {
			continue
		}
		if !hasPrereq[d.ParentTaskID] || prereq.EndDate.After(earliest[d.ParentTaskID]) {
			earliest[d.ParentTaskID] = prereq.EndDate
		}
		hasPrereq[d.ParentTaskID] = true
	}

	// Backward pass: dependents bound the latest start
	latest := make(map[uuid.UUID]time.Time, len(tasks))
	for _, t := range tasks {
		latest[t.ID] = t.EndDate
	}
	hasDependent := make(map[uuid.UUID]bool)
	for _, d := range deps {
		parent, ok := byID[d.ParentTaskID]
		if !ok || byID[d.PrerequisiteTaskID] == nil {
			continue
		}
		if !hasDependent[d.PrerequisiteTaskID] || parent.StartDate.Before(latest[d.PrerequisiteTaskID]) {
			latest[d.PrerequisiteTaskID] = parent.StartDate
		}
		hasDependent[d.PrerequisiteTaskID] = true
	}

	analysis := &entities.CriticalPathAnalysis{
		JobID:        jobID,
		AnalysisDate: now,
		Nodes:        make([]entities.CriticalPathNode, 0, len(tasks)),
	}
	for _, id := range order {
		t := byID[id]
		slack := latest[t.ID].Sub(earliest[t.ID]).Hours() / 24
		analysis.Nodes = append(analysis.Nodes, entities.CriticalPathNode{
			TaskID:        t.ID,
			TaskName:      t.Name,
			StartDate:     t.StartDate,
			EndDate:       t.EndDate,
			EarliestStart: earliest[t.ID],
			LatestStart:   latest[t.ID],
			SlackDays:     slack,
			Critical:      math.Abs(slack) < slackEpsilon,
			Violated:      slack <= -slackEpsilon,
		})
	}

	sort.SliceStable(analysis.Nodes, func(i, j int) bool {
		a, b := analysis.Nodes[i], analysis.Nodes[j]
		if !a.EarliestStart.Equal(b.EarliestStart) {
			return a.EarliestStart.Before(b.EarliestStart)
		}
		return a.StartDate.Before(b.StartDate)
	})
	for _, n := range analysis.Nodes {
		switch {
		case n.Critical:
			analysis.CriticalPath = append(analysis.CriticalPath, n)
		case n.Violated:
			analysis.Violations = append(analysis.Violations, n)
		}
	}
	return analysis
}
