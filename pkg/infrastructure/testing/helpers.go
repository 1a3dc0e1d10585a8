// Package testing builds seeded in-memory stores for service tests.
package testing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/memory"
)

// Day returns midnight UTC of the given day in April 2025
func Day(d int) time.Time {
	return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
}

// MustCreateJob is a helper for tests - panics on validation error
func MustCreateJob(name string, siteID uuid.UUID, start, end time.Time) *entities.Job {
	job, err := entities.NewJob(name, siteID, uuid.New(), start, end)
	if err != nil {
		panic(err)
	}
	return job
}

// MustCreateTask is a helper for tests - panics on validation error
func MustCreateTask(jobID uuid.UUID, name string, start, end time.Time) *entities.JobTask {
	task, err := entities.NewJobTask(jobID, name, start, end)
	if err != nil {
		panic(err)
	}
	return task
}

// MustCreateTechnician is a helper for tests - panics on validation error
func MustCreateTechnician(name, roles string) *entities.Technician {
	tech, err := entities.NewTechnician(name, "+1-555-0100", roles)
	if err != nil {
		panic(err)
	}
	return tech
}

// MustCreateMaterial is a helper for tests - panics on validation error
func MustCreateMaterial(name string, stock string) *entities.Material {
	m, err := entities.NewMaterial(name, decimal.RequireFromString(stock))
	if err != nil {
		panic(err)
	}
	return m
}

// MustCreateEquipmentType is a helper for tests - panics on validation error
func MustCreateEquipmentType(name, model string) *entities.EquipmentType {
	et, err := entities.NewEquipmentType(name, model, "network")
	if err != nil {
		panic(err)
	}
	return et
}

// Scenario is one site upgrade: a Created job needing 10 routers, a survey
// task followed by an install task, two technicians, cable stock and a drill.
type Scenario struct {
	Store   *memory.Store
	SiteID  uuid.UUID
	Router  *entities.EquipmentType
	Job     *entities.Job
	Survey  *entities.JobTask
	Install *entities.JobTask
	Alice   *entities.Technician
	Bob     *entities.Technician
	Cable   *entities.Material
	Drill   *entities.Tool
}

// BuildTowerScenario seeds a fresh store with the scenario
func BuildTowerScenario() *Scenario {
	s := &Scenario{
		Store:  memory.NewStore(),
		SiteID: uuid.New(),
		Router: MustCreateEquipmentType("Router", "RT-100"),
		Alice:  MustCreateTechnician("Alice", "splicer"),
		Bob:    MustCreateTechnician("Bob", ""),
		Cable:  MustCreateMaterial("Fibre cable", "100"),
	}
	s.Job = MustCreateJob("Tower 12 upgrade", s.SiteID, Day(1), Day(10))
	s.Survey = MustCreateTask(s.Job.ID, "Site survey", Day(1), Day(3))
	s.Install = MustCreateTask(s.Job.ID, "Router install", Day(4), Day(6))
	s.Drill = &entities.Tool{
		ID:          uuid.New(),
		Name:        "DRILL",
		ItemType:    "DRILL",
		ModelNumber: entities.ToolModelNumber("DRILL", 1),
		Status:      entities.ToolAvailable,
		Condition:   entities.ConditionGood,
	}

	req, err := entities.NewJobRequirement(s.Job.ID, s.Router.ID, 10)
	if err != nil {
		panic(err)
	}
	cableReq, err := entities.NewMaterialRequirement(s.Cable.ID, s.Install.ID, decimal.NewFromInt(60))
	if err != nil {
		panic(err)
	}

	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		for _, step := range []func() error{
			func() error { return repos.Equipment().CreateEquipmentType(ctx, s.Router) },
			func() error { return repos.Resources().CreateTechnician(ctx, s.Alice) },
			func() error { return repos.Resources().CreateTechnician(ctx, s.Bob) },
			func() error { return repos.Resources().CreateMaterial(ctx, s.Cable) },
			func() error { return repos.Resources().CreateTool(ctx, s.Drill) },
			func() error { return repos.Jobs().CreateJob(ctx, s.Job) },
			func() error { return repos.Jobs().AddRequirement(ctx, req) },
			func() error { return repos.Tasks().CreateTask(ctx, s.Survey) },
			func() error { return repos.Tasks().CreateTask(ctx, s.Install) },
			func() error {
				return repos.Tasks().AddDependency(ctx, entities.TaskDependency{
					ParentTaskID:       s.Install.ID,
					PrerequisiteTaskID: s.Survey.ID,
				})
			},
			func() error { return repos.Tasks().AddMaterialRequirement(ctx, cableReq) },
		} {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	return s
}

// MustWrite runs fn in a transaction and panics on error
func (s *Scenario) MustWrite(fn func(ctx context.Context, repos repositories.Repositories) error) {
	if err := s.Store.WithinTx(context.Background(), fn); err != nil {
		panic(err)
	}
}

// Read runs fn against a read-only view and panics on error
func (s *Scenario) Read(fn func(ctx context.Context, repos repositories.Repositories) error) {
	if err := s.Store.ReadOnly(context.Background(), fn); err != nil {
		panic(err)
	}
}

// AddTask stores an extra task, creating its job at another site if needed
func (s *Scenario) AddTask(task *entities.JobTask) {
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Jobs().GetJob(ctx, task.JobID); err != nil {
			job := MustCreateJob("Other job", uuid.New(), task.StartDate, task.EndDate)
			job.ID = task.JobID
			if err := repos.Jobs().CreateJob(ctx, job); err != nil {
				return err
			}
		}
		return repos.Tasks().CreateTask(ctx, task)
	})
}

// AddMaterialRequirement stores demand for material by task
func (s *Scenario) AddMaterialRequirement(task *entities.JobTask, material *entities.Material, qty int64) {
	req, err := entities.NewMaterialRequirement(material.ID, task.ID, decimal.NewFromInt(qty))
	if err != nil {
		panic(err)
	}
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Tasks().AddMaterialRequirement(ctx, req)
	})
}

// AssignTechnician sets the task's technician directly in the store
func (s *Scenario) AssignTechnician(task *entities.JobTask, tech *entities.Technician) {
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		stored, err := repos.Tasks().GetTask(ctx, task.ID)
		if err != nil {
			return err
		}
		id := tech.ID
		stored.TechnicianID = &id
		return repos.Tasks().UpdateTask(ctx, stored)
	})
	id := tech.ID
	task.TechnicianID = &id
}

// LinkInstallToBatch assigns every line of the job's batch to the given
// tasks, or to the install task when none are given
func (s *Scenario) LinkInstallToBatch(tasks ...*entities.JobTask) {
	if len(tasks) == 0 {
		tasks = []*entities.JobTask{s.Install}
	}
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		batch, err := repos.Equipment().GetBatchByJob(ctx, s.Job.ID)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			for _, line := range batch.Lines {
				if err := repos.Tasks().LinkEquipmentLine(ctx, entities.TaskEquipmentLine{
					TaskID:   task.ID,
					LineID:   line.ID,
					Quantity: line.PlannedQty,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Batch returns the job's batch as currently stored
func (s *Scenario) Batch() *entities.EquipmentBatch {
	var batch *entities.EquipmentBatch
	s.Read(func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		batch, err = repos.Equipment().GetBatchByJob(ctx, s.Job.ID)
		return err
	})
	return batch
}

// FixedClock returns a clock pinned to t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
