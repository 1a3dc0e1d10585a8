// Package app wires the fieldflow services onto one store.
package app

import (
	"time"

	"github.com/vsinha/fieldflow/pkg/application/services/conflict"
	"github.com/vsinha/fieldflow/pkg/application/services/forecast"
	"github.com/vsinha/fieldflow/pkg/application/services/planning"
	"github.com/vsinha/fieldflow/pkg/application/services/scheduling"
	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/application/services/suggestion"
	"github.com/vsinha/fieldflow/pkg/application/services/tools"
	"github.com/vsinha/fieldflow/pkg/application/services/workflow"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
	"github.com/vsinha/fieldflow/pkg/infrastructure/locking"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	"github.com/vsinha/fieldflow/pkg/infrastructure/metrics"
	"github.com/vsinha/fieldflow/pkg/interfaces/httpapi"
)

// Options tunes the services. Zero values fall back to service defaults.
type Options struct {
	Clock            shared.Clock
	OperationTimeout time.Duration
	HorizonDays      int
	PlanningSeed     uint64 // zero seeds from the clock
	Metrics          *metrics.Metrics
	Events           events.EventStore
}

// Services is every application service bound to the same store
type Services struct {
	Workflow    *workflow.Orchestrator
	Scheduler   *scheduling.Scheduler
	Conflicts   *conflict.Detector
	Forecaster  *forecast.MaterialForecaster
	Planner     *planning.Planner
	Suggestions *suggestion.Engine
	Tools       *tools.Service
}

func New(uow repositories.UnitOfWork, locker locking.Locker, log *logger.Logger, opts Options) *Services {
	var scorer planning.Scorer
	if opts.PlanningSeed != 0 {
		scorer = planning.NewHeuristicScorer(opts.PlanningSeed)
	}

	wfOpts := []workflow.Option{workflow.WithMetrics(opts.Metrics)}
	if opts.Clock != nil {
		wfOpts = append(wfOpts, workflow.WithClock(opts.Clock))
	}
	if opts.OperationTimeout > 0 {
		wfOpts = append(wfOpts, workflow.WithOperationTimeout(opts.OperationTimeout))
	}
	if opts.Events != nil {
		wfOpts = append(wfOpts, workflow.WithEvents(opts.Events))
	}

	conflicts := conflict.NewDetector(uow, log)
	scheduler := scheduling.NewScheduler(uow, conflicts, locker, log, opts.Clock)
	return &Services{
		Workflow:    workflow.NewOrchestrator(uow, locker, log, wfOpts...),
		Scheduler:   scheduler,
		Conflicts:   conflicts,
		Forecaster:  forecast.NewMaterialForecaster(uow, log, opts.Clock, opts.HorizonDays),
		Planner:     planning.NewPlanner(uow, scorer, log, opts.Clock),
		Suggestions: suggestion.NewEngine(uow, scheduler, log, opts.Clock, 0),
		Tools:       tools.NewService(uow, log, opts.Clock),
	}
}

// RouterConfig binds the services to the HTTP handlers
func (s *Services) RouterConfig() httpapi.RouterConfig {
	return httpapi.RouterConfig{
		WorkflowHandler: httpapi.NewWorkflowHandler(s.Workflow),
		PlanningHandler: httpapi.NewPlanningHandler(s.Scheduler, s.Conflicts, s.Forecaster, s.Planner, s.Suggestions),
		ToolHandler:     httpapi.NewToolHandler(s.Tools),
	}
}
