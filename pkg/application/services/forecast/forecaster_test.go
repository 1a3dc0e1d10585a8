package forecast

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	fftesting "github.com/vsinha/fieldflow/pkg/infrastructure/testing"
)

func TestForecastMaterialForJob(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	f := NewMaterialForecaster(s.Store, logger.NewNop(), fftesting.FixedClock(fftesting.Day(1)), 0)

	// Install (day 4) needs 60 of 100 cable: no issue yet
	issues, err := f.ForecastMaterialForJob(context.Background(), s.Install.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)

	// An earlier task that does not overlap still counts toward cumulative demand
	early := fftesting.MustCreateTask(s.Job.ID, "Trenching", fftesting.Day(1), fftesting.Day(2))
	s.AddTask(early)
	s.AddMaterialRequirement(early, s.Cable, 50)

	issues, err = f.ForecastMaterialForJob(context.Background(), s.Install.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, s.Cable.ID, issues[0].MaterialID)
	assert.True(t, issues[0].CumulativeDemand.Equal(decimal.NewFromInt(110)))
	assert.True(t, issues[0].Shortfall.Equal(decimal.NewFromInt(10)))

	// Tasks starting after the reference are excluded
	issues, err = f.ForecastMaterialForJob(context.Background(), early.ID)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestFindEarliestAvailabilityDate(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	f := NewMaterialForecaster(s.Store, logger.NewNop(), fftesting.FixedClock(fftesting.Day(4)), 30)
	ctx := context.Background()

	// Install holds 60 cable through day 6; 50 becomes available on day 7
	date, found, err := f.FindEarliestAvailabilityDate(ctx, s.Cable.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fftesting.Day(7), date)

	// 40 fits alongside the install
	date, found, err = f.FindEarliestAvailabilityDate(ctx, s.Cable.ID, decimal.NewFromInt(40))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fftesting.Day(4), date)

	// More than total stock is never available
	date, found, err = f.FindEarliestAvailabilityDate(ctx, s.Cable.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, fftesting.Day(4), date)
}

func TestFindEarliestAvailabilityDate_Errors(t *testing.T) {
	s := fftesting.BuildTowerScenario()
	f := NewMaterialForecaster(s.Store, logger.NewNop(), nil, 0)

	_, _, err := f.FindEarliestAvailabilityDate(context.Background(), uuid.New(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, _, err = f.FindEarliestAvailabilityDate(context.Background(), s.Cable.ID, decimal.Zero)
	assert.ErrorIs(t, err, errs.ErrValidation)
}
