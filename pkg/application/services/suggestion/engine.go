// Package suggestion produces advisory messages about a task's schedule.
// Suggestions never block an operation.
package suggestion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/services/scheduling"
	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// DefaultWindowDays is how far ahead the optimal-window scan looks
const DefaultWindowDays = 30

// Kind classifies a suggestion
type Kind string

const (
	MaterialUnavailable      Kind = "MaterialUnavailable"
	TechnicianUnavailable    Kind = "TechnicianUnavailable"
	DependencyConflict       Kind = "DependencyConflict"
	ResourceCalendarConflict Kind = "ResourceCalendarConflict"
	OptimalWindow            Kind = "OptimalWindow"
)

// Priority orders suggestions for display
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

// Suggestion is one advisory message about a task
type Suggestion struct {
	Kind           Kind
	Priority       Priority
	TaskID         uuid.UUID
	Message        string
	MaterialID     *uuid.UUID
	TechnicianID   *uuid.UUID
	RelatedTaskID  *uuid.UUID
	SuggestedStart *time.Time
	SuggestedEnd   *time.Time
}

// Engine generates suggestions from the scheduler's window checks and the
// technician calendars
type Engine struct {
	uow        repositories.UnitOfWork
	scheduler  *scheduling.Scheduler
	log        *logger.Logger
	now        shared.Clock
	windowDays int
}

// NewEngine creates a suggestion engine; windowDays <= 0 uses DefaultWindowDays
func NewEngine(uow repositories.UnitOfWork, scheduler *scheduling.Scheduler, log *logger.Logger, now shared.Clock, windowDays int) *Engine {
	if now == nil {
		now = shared.SystemClock
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Engine{
		uow:        uow,
		scheduler:  scheduler,
		log:        log.With("service", "SuggestionEngine"),
		now:        now,
		windowDays: windowDays,
	}
}

// GenerateSuggestions returns the suggestions for a task, highest priority
// first. Only a missing task or a store failure is an error.
func (e *Engine) GenerateSuggestions(ctx context.Context, taskID uuid.UUID) ([]Suggestion, error) {
	var suggestions []Suggestion
	err := e.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}

		validation, err := e.scheduler.CheckWindow(ctx, repos, task)
		if err != nil {
			return err
		}
		suggestions = append(suggestions, fromValidation(task, validation)...)

		calendar, err := e.calendarConflicts(ctx, repos, task)
		if err != nil {
			return err
		}
		suggestions = append(suggestions, calendar...)

		window, err := e.optimalWindow(ctx, repos, task)
		if err != nil {
			return err
		}
		if window != nil {
			suggestions = append(suggestions, *window)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("GenerateSuggestions", err)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority.rank() > suggestions[j].Priority.rank()
	})
	e.log.Debug("suggestions generated", "task_id", taskID, "count", len(suggestions))
	return suggestions, nil
}

func fromValidation(task *entities.JobTask, v *scheduling.ScheduleValidation) []Suggestion {
	var out []Suggestion
	for _, c := range v.MaterialConflicts {
		out = append(out, Suggestion{
			Kind:       MaterialUnavailable,
			Priority:   PriorityHigh,
			TaskID:     task.ID,
			MaterialID: c.MaterialID,
			Message:    c.Message,
		})
	}
	if !v.TechnicianAvailable {
		msg := "no technician is free for the task window"
		if task.TechnicianID != nil {
			msg = fmt.Sprintf("technician %s is booked on another task in this window", *task.TechnicianID)
		}
		out = append(out, Suggestion{
			Kind:         TechnicianUnavailable,
			Priority:     PriorityHigh,
			TaskID:       task.ID,
			TechnicianID: task.TechnicianID,
			Message:      msg,
		})
	}
	for _, prereqID := range v.UnmetPrerequisites {
		id := prereqID
		out = append(out, Suggestion{
			Kind:          DependencyConflict,
			Priority:      PriorityHigh,
			TaskID:        task.ID,
			RelatedTaskID: &id,
			Message:       fmt.Sprintf("prerequisite task %s ends after this task starts", prereqID),
		})
	}
	return out
}

// calendarConflicts reports calendar entries of the assigned technician that
// fall inside the task window
func (e *Engine) calendarConflicts(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) ([]Suggestion, error) {
	if task.TechnicianID == nil {
		return nil, nil
	}
	entries, err := repos.Resources().ListCalendarEntries(ctx, *task.TechnicianID, task.StartDate, task.EndDate)
	if err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}

	var out []Suggestion
	for _, entry := range entries {
		out = append(out, Suggestion{
			Kind:         ResourceCalendarConflict,
			Priority:     PriorityMedium,
			TaskID:       task.ID,
			TechnicianID: task.TechnicianID,
			Message: fmt.Sprintf("technician is unavailable %s to %s: %s",
				entry.Start.Format(time.DateOnly), entry.End.Format(time.DateOnly), entry.Reason),
		})
	}
	return out, nil
}

// optimalWindow scans forward from today for the first window of the task's
// length that passes every check. A window equal to the current one, or no
// window at all, yields nothing.
func (e *Engine) optimalWindow(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) (*Suggestion, error) {
	span := task.EndDate.Sub(task.StartDate)
	today := shared.StartOfDay(e.now())

	for i := 0; i < e.windowDays; i++ {
		start := today.AddDate(0, 0, i)
		candidate := *task
		candidate.StartDate = start
		candidate.EndDate = start.Add(span)

		v, err := e.scheduler.CheckWindow(ctx, repos, &candidate)
		if err != nil {
			return nil, err
		}
		if !v.Valid {
			continue
		}
		if start.Equal(task.StartDate) {
			return nil, nil
		}
		end := candidate.EndDate
		return &Suggestion{
			Kind:           OptimalWindow,
			Priority:       PriorityLow,
			TaskID:         task.ID,
			SuggestedStart: &start,
			SuggestedEnd:   &end,
			Message: fmt.Sprintf("all checks pass for %s to %s",
				start.Format(time.DateOnly), end.Format(time.DateOnly)),
		}, nil
	}
	return nil, nil
}
