package planning

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/memory"
	fftesting "github.com/vsinha/fieldflow/pkg/infrastructure/testing"
)

type fixedScorer struct {
	tech, tool, equipment int
}

func (f fixedScorer) ScoreTechnician(*entities.Technician) int   { return f.tech }
func (f fixedScorer) ScoreTool(*entities.Tool) int               { return f.tool }
func (f fixedScorer) ScoreEquipment(*entities.EquipmentType) int { return f.equipment }

func newPlanner(uow repositories.UnitOfWork, scorer Scorer) *Planner {
	return NewPlanner(uow, scorer, logger.NewNop(), fftesting.FixedClock(fftesting.Day(1)))
}

func TestGeneratePlanning_Scores(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	planner := newPlanner(s.Store, fixedScorer{tech: 50, tool: 80, equipment: 100})

	result, err := planner.GeneratePlanning(context.Background(), s.Job.ID)
	require.NoError(t, err)

	require.Len(t, result.Tasks, 2)
	for _, plan := range result.Tasks {
		assert.Len(t, plan.Technicians, 2)
	}
	require.Len(t, result.Tools, 1)
	require.Len(t, result.Equipment, 1)
	assert.Equal(t, s.Router.ID, result.Equipment[0].ID)
	assert.Empty(t, result.Conflicts)

	// 0.4*50 + 0.3*80 + 0.3*100
	assert.True(t, decimal.NewFromInt(74).Equal(result.OverallScore), "got %s", result.OverallScore)
}

func TestGeneratePlanning_Conflicts(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	s.AssignTechnician(s.Install, s.Alice)

	elsewhere := fftesting.MustCreateTask(uuid.New(), "Mast repair", fftesting.Day(5), fftesting.Day(7))
	s.AddTask(elsewhere)
	s.AssignTechnician(elsewhere, s.Alice)

	otherJob := elsewhere.JobID
	checkout, err := entities.NewToolAssignment(s.Drill.ID, s.Bob.ID, &otherJob, fftesting.Day(2), fftesting.Day(12))
	require.NoError(t, err)
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Resources().CreateToolAssignment(ctx, checkout)
	})

	planner := newPlanner(s.Store, fixedScorer{tech: 50, tool: 80, equipment: 100})
	result, err := planner.GeneratePlanning(context.Background(), s.Job.ID)
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 2)
	kinds := map[ConflictKind]PlanningConflict{}
	for _, c := range result.Conflicts {
		kinds[c.Kind] = c
	}
	require.Contains(t, kinds, TechnicianDoubleBooked)
	assert.Equal(t, s.Alice.ID, *kinds[TechnicianDoubleBooked].TechnicianID)
	assert.Equal(t, otherJob, *kinds[TechnicianDoubleBooked].OtherJobID)
	require.Contains(t, kinds, ToolUnavailable)
	assert.Equal(t, s.Drill.ID, *kinds[ToolUnavailable].ToolID)

	assert.True(t, decimal.NewFromInt(54).Equal(result.OverallScore), "got %s", result.OverallScore)
}

func TestGeneratePlanning_OpenCheckoutForSameJobConflicts(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	jobID := s.Job.ID
	checkout, err := entities.NewToolAssignment(s.Drill.ID, s.Bob.ID, &jobID, fftesting.Day(1), fftesting.Day(3))
	require.NoError(t, err)
	s.MustWrite(func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Resources().CreateToolAssignment(ctx, checkout)
	})

	planner := newPlanner(s.Store, fixedScorer{tech: 50, tool: 80, equipment: 100})
	result, err := planner.GeneratePlanning(context.Background(), s.Job.ID)
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, ToolUnavailable, result.Conflicts[0].Kind)
	assert.Equal(t, s.Drill.ID, *result.Conflicts[0].ToolID)
}

func TestGeneratePlanning_ScoreFloorsAtZero(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	s.AssignTechnician(s.Install, s.Alice)
	for i := 0; i < 3; i++ {
		other := fftesting.MustCreateTask(uuid.New(), "Elsewhere", fftesting.Day(4), fftesting.Day(5))
		s.AddTask(other)
		s.AssignTechnician(other, s.Alice)
	}

	planner := newPlanner(s.Store, fixedScorer{tech: 10, tool: 10, equipment: 10})
	result, err := planner.GeneratePlanning(context.Background(), s.Job.ID)
	require.NoError(t, err)

	assert.Len(t, result.Conflicts, 3)
	assert.True(t, result.OverallScore.IsZero(), "got %s", result.OverallScore)
}

func TestGeneratePlanning_EmptyData(t *testing.T) {
	store := memory.NewStore()
	job := fftesting.MustCreateJob("Bare job", uuid.New(), fftesting.Day(1), fftesting.Day(2))
	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
		return repos.Jobs().CreateJob(ctx, job)
	}))

	result, err := newPlanner(store, nil).GeneratePlanning(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Empty(t, result.Tasks)
	assert.Empty(t, result.Tools)
	assert.Empty(t, result.Equipment)
	assert.True(t, result.TechnicianAvg.IsZero())
	assert.True(t, result.OverallScore.IsZero())
}

func TestGeneratePlanning_MissingJob(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	_, err := newPlanner(s.Store, nil).GeneratePlanning(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestHeuristicScorer_Technician(t *testing.T) {
	scorer := NewHeuristicScorer(42)
	withRoles := fftesting.MustCreateTechnician("Alice", "splicer")
	without := fftesting.MustCreateTechnician("Bob", "")

	for i := 0; i < 50; i++ {
		got := scorer.ScoreTechnician(withRoles)
		assert.GreaterOrEqual(t, got, 70)
		assert.LessOrEqual(t, got, 100)

		got = scorer.ScoreTechnician(without)
		assert.GreaterOrEqual(t, got, 50)
		assert.LessOrEqual(t, got, 80)
	}

	a, b := NewHeuristicScorer(7), NewHeuristicScorer(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.ScoreTechnician(without), b.ScoreTechnician(without))
	}
}

func TestHeuristicScorer_Tool(t *testing.T) {
	testCases := []struct {
		status    entities.ToolStatus
		condition entities.Condition
		want      int
	}{
		{entities.ToolAvailable, entities.ConditionNew, 100},
		{entities.ToolAvailable, entities.ConditionGood, 90},
		{entities.ToolAvailable, entities.ConditionFair, 80},
		{entities.ToolAvailable, entities.ConditionPoor, 60},
		{entities.ToolUnderMaintenance, entities.ConditionGood, 30},
		{entities.ToolUnderMaintenance, entities.ConditionPoor, 0},
		{entities.ToolCheckedOut, entities.ConditionNew, 20},
		{entities.ToolRetired, entities.ConditionPoor, 0},
	}

	scorer := NewHeuristicScorer(1)
	for _, tc := range testCases {
		t.Run(string(tc.status)+"/"+string(tc.condition), func(t *testing.T) {
			tool := &entities.Tool{Status: tc.status, Condition: tc.condition}
			if got := scorer.ScoreTool(tool); got != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, got)
			}
			et := &entities.EquipmentType{Status: tc.status, Condition: tc.condition}
			if got := scorer.ScoreEquipment(et); got != tc.want {
				t.Errorf("Expected equipment score %d, got %d", tc.want, got)
			}
		})
	}
}

