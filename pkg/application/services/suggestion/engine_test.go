package suggestion

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/application/services/conflict"
	"github.com/vsinha/fieldflow/pkg/application/services/scheduling"
	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	fftesting "github.com/vsinha/fieldflow/pkg/infrastructure/testing"
)

func newEngine(s *fftesting.Scenario) *Engine {
	log := logger.NewNop()
	clock := fftesting.FixedClock(fftesting.Day(1))
	scheduler := scheduling.NewScheduler(s.Store, conflict.NewDetector(s.Store, log), nil, log, clock)
	return NewEngine(s.Store, scheduler, log, clock, 0)
}

func kinds(suggestions []Suggestion) []Kind {
	out := make([]Kind, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, s.Kind)
	}
	return out
}

func TestGenerateSuggestions_CleanTaskGetsEarlierWindow(t *testing.T) {
	s := fftesting.BuildTowerScenario()

	suggestions, err := newEngine(s).GenerateSuggestions(context.Background(), s.Install.ID)
	require.NoError(t, err)

	// The survey ends on day 3, so day 3 is the first start that passes
	require.Len(t, suggestions, 1)
	window := suggestions[0]
	assert.Equal(t, OptimalWindow, window.Kind)
	assert.Equal(t, PriorityLow, window.Priority)
	assert.Equal(t, fftesting.Day(3), *window.SuggestedStart)
	assert.Equal(t, fftesting.Day(5), *window.SuggestedEnd)
}

func TestGenerateSuggestions_CurrentWindowIsBest(t *testing.T) {
	s := fftesting.BuildTowerScenario()

	suggestions, err := newEngine(s).GenerateSuggestions(context.Background(), s.Survey.ID)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestGenerateSuggestions_EveryKind(t *testing.T) {
	s := fftesting.BuildTowerScenario()

	hog := fftesting.MustCreateTask(uuid.New(), "Cable pull", fftesting.Day(4), fftesting.Day(6))
	s.AddTask(hog)
	s.AddMaterialRequirement(hog, s.Cable, 50)
	s.AssignTechnician(hog, s.Alice)
	s.AssignTechnician(s.Install, s.Alice)

	permit := fftesting.MustCreateTask(s.Job.ID, "Permit", fftesting.Day(2), fftesting.Day(5))
	s.AddTask(permit)
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		if err := repos.Tasks().AddDependency(ctx, entities.TaskDependency{
			ParentTaskID:       s.Install.ID,
			PrerequisiteTaskID: permit.ID,
		}); err != nil {
			return err
		}
		return repos.Resources().CreateCalendarEntry(ctx, &entities.CalendarEntry{
			ID:           uuid.New(),
			TechnicianID: s.Alice.ID,
			Start:        fftesting.Day(5),
			End:          fftesting.Day(5),
			Reason:       "training",
		})
	})

	suggestions, err := newEngine(s).GenerateSuggestions(context.Background(), s.Install.ID)
	require.NoError(t, err)

	assert.Equal(t, []Kind{
		MaterialUnavailable,
		TechnicianUnavailable,
		DependencyConflict,
		ResourceCalendarConflict,
		OptimalWindow,
	}, kinds(suggestions))

	assert.Equal(t, s.Cable.ID, *suggestions[0].MaterialID)
	assert.Equal(t, s.Alice.ID, *suggestions[1].TechnicianID)
	assert.Equal(t, permit.ID, *suggestions[2].RelatedTaskID)
	assert.Equal(t, PriorityMedium, suggestions[3].Priority)
	assert.Contains(t, suggestions[3].Message, "training")

	// Day 7 is the first start after the permit and clear of the cable pull
	assert.Equal(t, fftesting.Day(7), *suggestions[4].SuggestedStart)
}

func TestGenerateSuggestions_NoWindowIsNotAnError(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	hog := fftesting.MustCreateTask(uuid.New(), "Cable pull", fftesting.Day(1), fftesting.Day(30).AddDate(0, 0, 15))
	s.AddTask(hog)
	s.AddMaterialRequirement(hog, s.Cable, 90)

	suggestions, err := newEngine(s).GenerateSuggestions(context.Background(), s.Install.ID)
	require.NoError(t, err)
	assert.Equal(t, []Kind{MaterialUnavailable}, kinds(suggestions))
}

func TestGenerateSuggestions_MissingTask(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	_, err := newEngine(s).GenerateSuggestions(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
