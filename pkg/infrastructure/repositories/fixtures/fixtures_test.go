package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/domain/entities"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/memory"
)

func TestSeed_TowerScenario(t *testing.T) {
	ctx := context.Background()
	f, err := LoadFile("testdata/tower.yaml")
	require.NoError(t, err)

	store := memory.NewStore()
	res, err := Seed(ctx, store, f)
	require.NoError(t, err)
	assert.Len(t, res.Tools, 3)
	assert.Len(t, res.Sites, 1)

	require.NoError(t, store.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		job, err := repos.Jobs().GetJob(ctx, res.Jobs["tower12"])
		require.NoError(t, err)
		assert.Equal(t, entities.JobCreated, job.Status)
		assert.Equal(t, res.Sites["tower-12"], job.SiteID)
		require.Len(t, job.Requirements, 2)
		assert.Equal(t, entities.Quantity(10), job.Requirements[0].PlannedQty)

		install, err := repos.Tasks().GetTask(ctx, res.Tasks["install"])
		require.NoError(t, err)
		assert.Equal(t, 2, install.DurationDays)
		assert.Equal(t, res.Tasks["survey"], install.Prerequisites[0])
		require.Len(t, install.Materials, 1)
		assert.Equal(t, "60", install.Materials[0].Quantity.String())

		survey, err := repos.Tasks().GetTask(ctx, res.Tasks["survey"])
		require.NoError(t, err)
		require.NotNil(t, survey.TechnicianID)
		assert.Equal(t, res.Technicians["alice"], *survey.TechnicianID)

		entries, err := repos.Resources().ListCalendarEntries(ctx, res.Technicians["bob"],
			time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		tools, err := repos.Resources().ListTools(ctx)
		require.NoError(t, err)
		require.Len(t, tools, 3)
		assert.Equal(t, "DRILL1", tools[0].ModelNumber)
		assert.Equal(t, "SPLICER1", tools[2].ModelNumber)
		assert.Equal(t, entities.ConditionNew, tools[2].Condition)
		return nil
	}))
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte("technicians:\n  - key: a\n    name: A\n    shoe_size: 9\n"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSeed_InvalidReferencesRollBack(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"unknown technician", `
calendar:
  - technician: ghost
    start: 2025-04-01
    end: 2025-04-02
`},
		{"duplicate key", `
technicians:
  - {key: a, name: A}
  - {key: a, name: B}
`},
		{"unknown prerequisite", `
jobs:
  - key: j
    name: J
    site: s
    start: 2025-04-01
    end: 2025-04-05
    tasks:
      - {key: t, name: T, start: 2025-04-01, end: 2025-04-02, after: [missing]}
`},
		{"bad stock", `
materials:
  - {key: m, name: M, stock: lots}
`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode([]byte(tc.yaml))
			require.NoError(t, err)

			store := memory.NewStore()
			_, err = Seed(context.Background(), store, f)
			require.ErrorIs(t, err, errs.ErrValidation)

			require.NoError(t, store.ReadOnly(context.Background(), func(ctx context.Context, repos repositories.Repositories) error {
				techs, err := repos.Resources().ListTechnicians(ctx)
				assert.Empty(t, techs)
				jobs, _ := repos.Jobs().ListJobs(ctx)
				assert.Empty(t, jobs)
				return err
			}))
		})
	}
}
