// Package scheduling assigns technicians, analyses the dependency graph and
// searches for feasible task start dates.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/services/conflict"
	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/domain/services"
	"github.com/vsinha/fieldflow/pkg/infrastructure/locking"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// Scheduler coordinates technician assignment and schedule analysis
type Scheduler struct {
	uow       repositories.UnitOfWork
	conflicts *conflict.Detector
	locker    locking.Locker
	validator *services.DependencyValidator
	log       *logger.Logger
	now       shared.Clock
}

// NewScheduler creates a new scheduler. A nil locker serializes technician
// bookings within this process only.
func NewScheduler(
	uow repositories.UnitOfWork,
	conflicts *conflict.Detector,
	locker locking.Locker,
	log *logger.Logger,
	now shared.Clock,
) *Scheduler {
	if now == nil {
		now = shared.SystemClock
	}
	if locker == nil {
		locker = locking.NewLocalLocker()
	}
	return &Scheduler{
		uow:       uow,
		conflicts: conflicts,
		locker:    locker,
		validator: services.NewDependencyValidator(),
		log:       log.With("service", "Scheduler"),
		now:       now,
	}
}

// ScheduleValidation explains whether a task can run in its current window
type ScheduleValidation struct {
	TaskID              uuid.UUID
	Valid               bool
	MaterialConflicts   []entities.ResourceConflict
	TechnicianAvailable bool
	UnmetPrerequisites  []uuid.UUID
	Reasons             []string
}

// AssignTechnician assigns technicianID to the task unless the technician
// already holds an overlapping task. Reassigning the same technician succeeds.
// Bookings of one technician are serialized so the busy check and the write
// cannot interleave.
func (s *Scheduler) AssignTechnician(ctx context.Context, taskID, technicianID uuid.UUID) (bool, error) {
	release, err := s.locker.Acquire(ctx, locking.TechnicianKey(technicianID.String()))
	if err != nil {
		return false, errs.Wrap("AssignTechnician", err)
	}
	defer release()

	assigned := false
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if _, err := repos.Resources().GetTechnician(ctx, technicianID); err != nil {
			return err
		}

		busy, err := s.technicianBusy(ctx, repos, technicianID, task)
		if err != nil {
			return err
		}
		if busy {
			return nil
		}

		id := technicianID
		task.TechnicianID = &id
		if err := repos.Tasks().UpdateTask(ctx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		slot, err := repos.Tasks().GetSlotForTask(ctx, task.ID)
		switch {
		case err == nil:
			slot.TechnicianID = &id
			if err := repos.Tasks().SaveSlot(ctx, slot); err != nil {
				return fmt.Errorf("save slot: %w", err)
			}
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}
		assigned = true
		return nil
	})
	if err != nil {
		return false, errs.Wrap("AssignTechnician", err)
	}
	s.log.Info("technician assignment", "task_id", taskID, "technician_id", technicianID, "assigned", assigned)
	return assigned, nil
}

// technicianBusy reports whether the technician holds a task other than task
// that overlaps task's window
func (s *Scheduler) technicianBusy(ctx context.Context, repos repositories.Repositories, technicianID uuid.UUID, task *entities.JobTask) (bool, error) {
	others, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{
		TechnicianID: &technicianID,
		OverlapFrom:  &task.StartDate,
		OverlapTo:    &task.EndDate,
	})
	if err != nil {
		return false, fmt.Errorf("list technician tasks: %w", err)
	}
	for _, other := range others {
		if other.ID != task.ID {
			return true, nil
		}
	}
	return false, nil
}

// FindEarliestAvailableTechnician returns the first technician, in name
// order, with no overlapping assignment. It is first-fit, not earliest-free.
// Nil means nobody is free.
func (s *Scheduler) FindEarliestAvailableTechnician(ctx context.Context, taskID uuid.UUID) (*entities.Technician, error) {
	var found *entities.Technician
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		found, err = s.firstFreeTechnician(ctx, repos, task)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("FindEarliestAvailableTechnician", err)
	}
	return found, nil
}

func (s *Scheduler) firstFreeTechnician(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) (*entities.Technician, error) {
	technicians, err := repos.Resources().ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	for _, tech := range technicians {
		busy, err := s.technicianBusy(ctx, repos, tech.ID, task)
		if err != nil {
			return nil, err
		}
		if !busy {
			return tech, nil
		}
	}
	return nil, nil
}

// ValidateSchedule checks material conflicts, technician availability and
// prerequisite ordering for the task's current window
func (s *Scheduler) ValidateSchedule(ctx context.Context, taskID uuid.UUID) (*ScheduleValidation, error) {
	var result *ScheduleValidation
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		result, err = s.CheckWindow(ctx, repos, task)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("ValidateSchedule", err)
	}
	return result, nil
}

// CheckWindow validates materials, technician and prerequisites for the
// task's current window. The task may be an unsaved candidate.
func (s *Scheduler) CheckWindow(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) (*ScheduleValidation, error) {
	result := &ScheduleValidation{TaskID: task.ID}

	materials, err := s.conflicts.MaterialConflicts(ctx, repos, task)
	if err != nil {
		return nil, err
	}
	result.MaterialConflicts = materials
	for _, c := range materials {
		result.Reasons = append(result.Reasons, c.Message)
	}

	if task.TechnicianID != nil {
		busy, err := s.technicianBusy(ctx, repos, *task.TechnicianID, task)
		if err != nil {
			return nil, err
		}
		result.TechnicianAvailable = !busy
	} else {
		tech, err := s.firstFreeTechnician(ctx, repos, task)
		if err != nil {
			return nil, err
		}
		result.TechnicianAvailable = tech != nil
	}
	if !result.TechnicianAvailable {
		result.Reasons = append(result.Reasons, "no technician is available for the task window")
	}

	for _, prereqID := range task.Prerequisites {
		prereq, err := repos.Tasks().GetTask(ctx, prereqID)
		if err != nil {
			return nil, err
		}
		if prereq.EndDate.After(task.StartDate) {
			result.UnmetPrerequisites = append(result.UnmetPrerequisites, prereqID)
			result.Reasons = append(result.Reasons, fmt.Sprintf("prerequisite %q ends %s, after the task starts",
				prereq.Name, prereq.EndDate.Format(time.DateOnly)))
		}
	}

	result.Valid = len(result.MaterialConflicts) == 0 && result.TechnicianAvailable && len(result.UnmetPrerequisites) == 0
	return result, nil
}

// FindOptimalStartDate returns the first day between the task's start and the
// day before its end on which a one-day window validates, or nil
func (s *Scheduler) FindOptimalStartDate(ctx context.Context, taskID uuid.UUID) (*time.Time, error) {
	var found *time.Time
	err := s.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		found, err = s.optimalStart(ctx, repos, task)
		return err
	})
	if err != nil {
		return nil, errs.Wrap("FindOptimalStartDate", err)
	}
	return found, nil
}

func (s *Scheduler) optimalStart(ctx context.Context, repos repositories.Repositories, task *entities.JobTask) (*time.Time, error) {
	last := task.EndDate.AddDate(0, 0, -1)
	for day := task.StartDate; !day.After(last); day = day.AddDate(0, 0, 1) {
		candidate := *task
		candidate.StartDate = day
		candidate.EndDate = day.AddDate(0, 0, 1)

		validation, err := s.CheckWindow(ctx, repos, &candidate)
		if err != nil {
			return nil, err
		}
		if validation.Valid {
			d := day
			return &d, nil
		}
	}
	return nil, nil
}

// CreateSlot pins the task's current window in a new unlocked slot, or
// returns the existing slot
func (s *Scheduler) CreateSlot(ctx context.Context, taskID uuid.UUID) (*entities.ScheduleSlot, error) {
	var slot *entities.ScheduleSlot
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		existing, err := repos.Tasks().GetSlotForTask(ctx, taskID)
		if err == nil {
			slot = existing
			return nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		slot = &entities.ScheduleSlot{
			ID:           uuid.New(),
			TaskID:       task.ID,
			TechnicianID: task.TechnicianID,
			Start:        task.StartDate,
			End:          task.EndDate,
		}
		return repos.Tasks().SaveSlot(ctx, slot)
	})
	if err != nil {
		return nil, errs.Wrap("CreateSlot", err)
	}
	return slot, nil
}

// LockSlot pins a slot against RescheduleUnlocked
func (s *Scheduler) LockSlot(ctx context.Context, slotID uuid.UUID) (*entities.ScheduleSlot, error) {
	return s.setSlotLock(ctx, "LockSlot", slotID, true)
}

// UnlockSlot releases a pinned slot
func (s *Scheduler) UnlockSlot(ctx context.Context, slotID uuid.UUID) (*entities.ScheduleSlot, error) {
	return s.setSlotLock(ctx, "UnlockSlot", slotID, false)
}

func (s *Scheduler) setSlotLock(ctx context.Context, op string, slotID uuid.UUID, locked bool) (*entities.ScheduleSlot, error) {
	var slot *entities.ScheduleSlot
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		var err error
		slot, err = repos.Tasks().GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		slot.Locked = locked
		return repos.Tasks().SaveSlot(ctx, slot)
	})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return slot, nil
}

// AddDependency records that prerequisiteID must finish before parentID
// starts. Self edges, cross-job edges and duplicates are rejected, as is any
// edge that would close a cycle.
func (s *Scheduler) AddDependency(ctx context.Context, parentID, prerequisiteID uuid.UUID) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		dep, err := entities.NewTaskDependency(parentID, prerequisiteID)
		if err != nil {
			return err
		}
		parent, err := repos.Tasks().GetTask(ctx, parentID)
		if err != nil {
			return err
		}
		prereq, err := repos.Tasks().GetTask(ctx, prerequisiteID)
		if err != nil {
			return err
		}
		if parent.JobID != prereq.JobID {
			return errs.Validation("tasks %s and %s belong to different jobs", parentID, prerequisiteID)
		}

		existing, err := repos.Tasks().ListDependencies(ctx, parent.JobID)
		if err != nil {
			return fmt.Errorf("list dependencies: %w", err)
		}
		for _, e := range existing {
			if e == *dep {
				return errs.Validation("dependency %s -> %s already exists", prerequisiteID, parentID)
			}
		}
		if cycle := s.validator.FindCycleWith(existing, *dep); cycle != nil {
			return errs.InvalidState("", "dependency would create a cycle", services.FormatPath(cycle))
		}
		return repos.Tasks().AddDependency(ctx, *dep)
	})
	return errs.Wrap("AddDependency", err)
}

// RescheduleUnlocked moves every task of the job whose slot is not locked to
// its optimal start, keeping its duration. It returns the moved task ids.
func (s *Scheduler) RescheduleUnlocked(ctx context.Context, jobID uuid.UUID) ([]uuid.UUID, error) {
	var moved []uuid.UUID
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		if _, err := repos.Jobs().GetJob(ctx, jobID); err != nil {
			return err
		}
		tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{JobID: &jobID})
		if err != nil {
			return fmt.Errorf("list job tasks: %w", err)
		}

		for _, task := range tasks {
			if task.IsCompleted() {
				continue
			}
			slot, err := repos.Tasks().GetSlotForTask(ctx, task.ID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				return err
			}
			if slot != nil && slot.Locked {
				continue
			}

			start, err := s.optimalStart(ctx, repos, task)
			if err != nil {
				return err
			}
			if start == nil || start.Equal(task.StartDate) {
				continue
			}

			span := task.EndDate.Sub(task.StartDate)
			task.StartDate = *start
			task.EndDate = start.Add(span)
			if err := repos.Tasks().UpdateTask(ctx, task); err != nil {
				return fmt.Errorf("update task: %w", err)
			}
			if slot != nil {
				slot.Start, slot.End = task.StartDate, task.EndDate
				if err := repos.Tasks().SaveSlot(ctx, slot); err != nil {
					return fmt.Errorf("save slot: %w", err)
				}
			}
			moved = append(moved, task.ID)
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("RescheduleUnlocked", err)
	}
	s.log.Info("rescheduled unlocked tasks", "job_id", jobID, "moved", len(moved))
	return moved, nil
}
