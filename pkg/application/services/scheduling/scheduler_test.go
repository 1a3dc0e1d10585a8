package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/application/services/conflict"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/locking"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	fftesting "github.com/vsinha/fieldflow/pkg/infrastructure/testing"
)

func newScheduler(s *fftesting.Scenario) *Scheduler {
	return newLockedScheduler(s, nil)
}

func newLockedScheduler(s *fftesting.Scenario, locker locking.Locker) *Scheduler {
	log := logger.NewNop()
	return NewScheduler(s.Store, conflict.NewDetector(s.Store, log), locker, log, fftesting.FixedClock(fftesting.Day(1)))
}

func TestAssignTechnician(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()

	ok, err := sched.AssignTechnician(ctx, s.Survey.ID, s.Alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Reapplying the same technician is idempotent
	ok, err = sched.AssignTechnician(ctx, s.Survey.ID, s.Alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Overlapping task on another job cannot take Alice
	other := fftesting.MustCreateTask(uuid.New(), "Neighbour survey", fftesting.Day(2), fftesting.Day(4))
	s.AddTask(other)
	ok, err = sched.AssignTechnician(ctx, other.ID, s.Alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	s.Read(func(ctx context.Context, repos repositories.Repositories) error {
		stored, err := repos.Tasks().GetTask(ctx, other.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.TechnicianID)
		return nil
	})

	// Non-overlapping task can
	ok, err = sched.AssignTechnician(ctx, s.Install.ID, s.Alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = sched.AssignTechnician(ctx, s.Install.ID, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = sched.AssignTechnician(ctx, uuid.New(), s.Alice.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAssignTechnician_ConcurrentOverlappingBookingsAcceptOne(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)

	const workers = 8
	tasks := make([]*entities.JobTask, workers)
	for i := range tasks {
		tasks[i] = fftesting.MustCreateTask(uuid.New(), "Overlapping visit", fftesting.Day(2), fftesting.Day(5))
		s.AddTask(tasks[i])
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := sched.AssignTechnician(context.Background(), task.ID, s.Bob.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)

	bob := s.Bob.ID
	s.Read(func(ctx context.Context, repos repositories.Repositories) error {
		booked, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{TechnicianID: &bob})
		require.NoError(t, err)
		assert.Len(t, booked, 1)
		return nil
	})
}

func TestAssignTechnician_WaitsForTechnicianLock(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	locker := locking.NewLocalLocker()
	sched := newLockedScheduler(s, locker)

	release, err := locker.Acquire(context.Background(), locking.TechnicianKey(s.Alice.ID.String()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sched.AssignTechnician(ctx, s.Survey.ID, s.Alice.ID)
	require.Error(t, err)
	assert.True(t, errs.IsRetryable(err))

	release()
	ok, err := sched.AssignTechnician(context.Background(), s.Survey.ID, s.Alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFindEarliestAvailableTechnician(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()

	tech, err := sched.FindEarliestAvailableTechnician(ctx, s.Survey.ID)
	require.NoError(t, err)
	require.NotNil(t, tech)
	assert.Equal(t, s.Alice.ID, tech.ID, "first-fit in name order")

	busyA := fftesting.MustCreateTask(uuid.New(), "Busy A", fftesting.Day(1), fftesting.Day(2))
	busyB := fftesting.MustCreateTask(uuid.New(), "Busy B", fftesting.Day(3), fftesting.Day(3))
	s.AddTask(busyA)
	s.AddTask(busyB)
	s.AssignTechnician(busyA, s.Alice)

	tech, err = sched.FindEarliestAvailableTechnician(ctx, s.Survey.ID)
	require.NoError(t, err)
	require.NotNil(t, tech)
	assert.Equal(t, s.Bob.ID, tech.ID)

	s.AssignTechnician(busyB, s.Bob)
	tech, err = sched.FindEarliestAvailableTechnician(ctx, s.Survey.ID)
	require.NoError(t, err)
	assert.Nil(t, tech)
}

func TestGetCriticalPath(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()

	commission := fftesting.MustCreateTask(s.Job.ID, "Commission", fftesting.Day(6), fftesting.Day(6))
	s.AddTask(commission)
	require.NoError(t, sched.AddDependency(ctx, commission.ID, s.Install.ID))

	analysis, err := sched.GetCriticalPath(ctx, s.Job.ID)
	require.NoError(t, err)
	require.Len(t, analysis.Nodes, 3)

	nodes := map[uuid.UUID]entities.CriticalPathNode{}
	for _, n := range analysis.Nodes {
		nodes[n.TaskID] = n
	}

	survey := nodes[s.Survey.ID]
	assert.Equal(t, fftesting.Day(1), survey.EarliestStart)
	assert.Equal(t, fftesting.Day(4), survey.LatestStart)
	assert.InDelta(t, 3.0, survey.SlackDays, 1e-9)

	install := nodes[s.Install.ID]
	assert.Equal(t, fftesting.Day(3), install.EarliestStart)
	assert.Equal(t, fftesting.Day(6), install.LatestStart)

	comm := nodes[commission.ID]
	assert.Equal(t, 0.0, comm.SlackDays)
	assert.True(t, comm.Critical)

	assert.Equal(t, []uuid.UUID{commission.ID}, analysis.CriticalTaskIDs())

	_, err = sched.GetCriticalPath(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGetCriticalPath_NegativeSlackIsViolationNotCritical(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()

	// cabling runs until day 10 but the install that needs it starts on day 4
	cabling := fftesting.MustCreateTask(s.Job.ID, "Cabling", fftesting.Day(1), fftesting.Day(10))
	s.AddTask(cabling)
	require.NoError(t, sched.AddDependency(ctx, s.Install.ID, cabling.ID))

	analysis, err := sched.GetCriticalPath(ctx, s.Job.ID)
	require.NoError(t, err)

	nodes := map[uuid.UUID]entities.CriticalPathNode{}
	for _, n := range analysis.Nodes {
		nodes[n.TaskID] = n
	}
	install := nodes[s.Install.ID]
	assert.InDelta(t, -4.0, install.SlackDays, 1e-9)
	assert.False(t, install.Critical)
	assert.True(t, install.Violated)

	assert.InDelta(t, 3.0, nodes[cabling.ID].SlackDays, 1e-9)
	assert.False(t, nodes[cabling.ID].Violated)

	assert.Empty(t, analysis.CriticalPath)
	require.Len(t, analysis.Violations, 1)
	assert.Equal(t, s.Install.ID, analysis.Violations[0].TaskID)
}

func TestGetCriticalPath_CycleIsInvalidState(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)

	// Stored directly, bypassing AddDependency's guard
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Tasks().AddDependency(ctx, entities.TaskDependency{
			ParentTaskID:       s.Survey.ID,
			PrerequisiteTaskID: s.Install.ID,
		})
	})

	_, err := sched.GetCriticalPath(context.Background(), s.Job.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestAddDependency(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()
	foreign := fftesting.MustCreateTask(uuid.New(), "Foreign", fftesting.Day(1), fftesting.Day(2))
	s.AddTask(foreign)

	testCases := []struct {
		name        string
		parent      uuid.UUID
		prereq      uuid.UUID
		expectedErr error
	}{
		{"closes a cycle", s.Survey.ID, s.Install.ID, errs.ErrInvalidState},
		{"self edge", s.Survey.ID, s.Survey.ID, errs.ErrValidation},
		{"duplicate", s.Install.ID, s.Survey.ID, errs.ErrValidation},
		{"cross job", s.Install.ID, foreign.ID, errs.ErrValidation},
		{"missing task", s.Install.ID, uuid.New(), errs.ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := sched.AddDependency(ctx, tc.parent, tc.prereq)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}

	s.Read(func(ctx context.Context, repos repositories.Repositories) error {
		deps, err := repos.Tasks().ListDependencies(ctx, s.Job.ID)
		require.NoError(t, err)
		assert.Len(t, deps, 1)
		return nil
	})
}

func TestValidateSchedule(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()

	v, err := sched.ValidateSchedule(ctx, s.Install.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid, "reasons: %v", v.Reasons)
	assert.True(t, v.TechnicianAvailable)

	// A prerequisite that runs past the install start
	lateSurvey := fftesting.MustCreateTask(s.Job.ID, "Late permit", fftesting.Day(2), fftesting.Day(5))
	s.AddTask(lateSurvey)
	require.NoError(t, sched.AddDependency(ctx, s.Install.ID, lateSurvey.ID))

	v, err = sched.ValidateSchedule(ctx, s.Install.ID)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, []uuid.UUID{lateSurvey.ID}, v.UnmetPrerequisites)
}

func TestFindOptimalStartDateAndReschedule(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)
	ctx := context.Background()

	start, err := sched.FindOptimalStartDate(ctx, s.Install.ID)
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.Equal(t, fftesting.Day(4), *start)

	// A one-day cable hog on day 4 pushes the first valid day to day 5
	hog := fftesting.MustCreateTask(uuid.New(), "Cable hog", fftesting.Day(4), fftesting.Day(4))
	s.AddTask(hog)
	s.AddMaterialRequirement(hog, s.Cable, 50)

	start, err = sched.FindOptimalStartDate(ctx, s.Install.ID)
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.Equal(t, fftesting.Day(5), *start)

	slot, err := sched.CreateSlot(ctx, s.Install.ID)
	require.NoError(t, err)
	locked, err := sched.LockSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	moved, err := sched.RescheduleUnlocked(ctx, s.Job.ID)
	require.NoError(t, err)
	assert.Empty(t, moved, "locked slot must not move")

	unlocked, err := sched.UnlockSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)

	moved, err = sched.RescheduleUnlocked(ctx, s.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.Install.ID}, moved)

	s.Read(func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, s.Install.ID)
		require.NoError(t, err)
		assert.Equal(t, fftesting.Day(5), task.StartDate)
		assert.Equal(t, fftesting.Day(7), task.EndDate)

		stored, err := repos.Tasks().GetSlotForTask(ctx, s.Install.ID)
		require.NoError(t, err)
		assert.Equal(t, fftesting.Day(5), stored.Start)
		return nil
	})

	_, err = sched.LockSlot(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFindOptimalStartDate_NoneInRange(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	sched := newScheduler(s)

	hog := fftesting.MustCreateTask(uuid.New(), "Cable hog", fftesting.Day(1), fftesting.Day(20))
	s.AddTask(hog)
	s.AddMaterialRequirement(hog, s.Cable, 90)

	start, err := sched.FindOptimalStartDate(context.Background(), s.Install.ID)
	require.NoError(t, err)
	assert.Nil(t, start)
}
