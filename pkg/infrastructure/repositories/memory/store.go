package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// state holds every table of the in-memory store. Values are stored by copy,
// so callers only change the store through repository writes.
type state struct {
	jobs           map[uuid.UUID]entities.Job
	tasks          map[uuid.UUID]entities.JobTask
	dependencies   []entities.TaskDependency
	materialReqs   []entities.MaterialRequirement
	taskLines      []entities.TaskEquipmentLine
	slots          map[uuid.UUID]entities.ScheduleSlot
	technicians    map[uuid.UUID]entities.Technician
	calendar       []entities.CalendarEntry
	tools          map[uuid.UUID]entities.Tool
	assignments    map[uuid.UUID]entities.ToolAssignment
	materials      map[uuid.UUID]entities.Material
	equipmentTypes map[uuid.UUID]entities.EquipmentType
	batches        map[uuid.UUID]entities.EquipmentBatch
	batchLines     map[uuid.UUID][]uuid.UUID
	lines          map[uuid.UUID]entities.EquipmentLine
	discrepancies  []entities.EquipmentDiscrepancy
	inventory      map[uuid.UUID]entities.InventoryRecord
	ledger         []entities.SiteEquipmentLedgerEntry
	snapshots      []entities.SiteEquipmentSnapshot
}

func newState() *state {
	return &state{
		jobs:           make(map[uuid.UUID]entities.Job),
		tasks:          make(map[uuid.UUID]entities.JobTask),
		slots:          make(map[uuid.UUID]entities.ScheduleSlot),
		technicians:    make(map[uuid.UUID]entities.Technician),
		tools:          make(map[uuid.UUID]entities.Tool),
		assignments:    make(map[uuid.UUID]entities.ToolAssignment),
		materials:      make(map[uuid.UUID]entities.Material),
		equipmentTypes: make(map[uuid.UUID]entities.EquipmentType),
		batches:        make(map[uuid.UUID]entities.EquipmentBatch),
		batchLines:     make(map[uuid.UUID][]uuid.UUID),
		lines:          make(map[uuid.UUID]entities.EquipmentLine),
		inventory:      make(map[uuid.UUID]entities.InventoryRecord),
	}
}

// clone copies every table so a transaction can be discarded on rollback
func (s *state) clone() *state {
	c := &state{
		jobs:           maps.Clone(s.jobs),
		tasks:          maps.Clone(s.tasks),
		dependencies:   slices.Clone(s.dependencies),
		materialReqs:   slices.Clone(s.materialReqs),
		taskLines:      slices.Clone(s.taskLines),
		slots:          maps.Clone(s.slots),
		technicians:    maps.Clone(s.technicians),
		calendar:       slices.Clone(s.calendar),
		tools:          maps.Clone(s.tools),
		assignments:    maps.Clone(s.assignments),
		materials:      maps.Clone(s.materials),
		equipmentTypes: maps.Clone(s.equipmentTypes),
		batches:        maps.Clone(s.batches),
		batchLines:     make(map[uuid.UUID][]uuid.UUID, len(s.batchLines)),
		lines:          maps.Clone(s.lines),
		discrepancies:  slices.Clone(s.discrepancies),
		inventory:      maps.Clone(s.inventory),
		ledger:         slices.Clone(s.ledger),
		snapshots:      slices.Clone(s.snapshots),
	}
	for id, job := range c.jobs {
		job.Requirements = slices.Clone(job.Requirements)
		c.jobs[id] = job
	}
	for id, lineIDs := range s.batchLines {
		c.batchLines[id] = slices.Clone(lineIDs)
	}
	return c
}

// Store is an in-memory UnitOfWork. Writers are serialized and work on a
// private copy of the state that replaces the shared one only on commit.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *state
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{current: newState()}
}

// Verify interface compliance
var _ repositories.UnitOfWork = (*Store)(nil)

// WithinTx runs fn on a copy of the store and commits it if fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	work := s.current.clone()
	s.mu.RUnlock()

	if err := fn(ctx, newRepos(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = work
	s.mu.Unlock()
	return nil
}

// ReadOnly runs fn on a throwaway copy of the store
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	s.mu.RLock()
	view := s.current.clone()
	s.mu.RUnlock()
	return fn(ctx, newRepos(view))
}

type repos struct {
	jobs      *JobRepository
	tasks     *TaskRepository
	resources *ResourceRepository
	equipment *EquipmentRepository
	ledger    *LedgerRepository
}

func newRepos(st *state) *repos {
	return &repos{
		jobs:      &JobRepository{st: st},
		tasks:     &TaskRepository{st: st},
		resources: &ResourceRepository{st: st},
		equipment: &EquipmentRepository{st: st},
		ledger:    &LedgerRepository{st: st},
	}
}

func (r *repos) Jobs() repositories.JobRepository { return r.jobs }
func (r *repos) Tasks() repositories.TaskRepository { return r.tasks }
func (r *repos) Resources() repositories.ResourceRepository { return r.resources }
func (r *repos) Equipment() repositories.EquipmentRepository { return r.equipment }
func (r *repos) Ledger() repositories.LedgerRepository { return r.ledger }
