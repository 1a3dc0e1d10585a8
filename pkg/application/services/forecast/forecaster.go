// Package forecast projects material stock against scheduled demand.
package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// DefaultHorizonDays bounds the availability scan
const DefaultHorizonDays = 30

// ForecastIssue flags a material whose cumulative demand exceeds stock
type ForecastIssue struct {
	MaterialID       uuid.UUID
	MaterialName     string
	Stock            decimal.Decimal
	CumulativeDemand decimal.Decimal
	Shortfall        decimal.Decimal
}

// MaterialForecaster answers stock sufficiency questions. It never writes.
type MaterialForecaster struct {
	uow         repositories.UnitOfWork
	log         *logger.Logger
	now         shared.Clock
	horizonDays int
}

// NewMaterialForecaster creates a forecaster; horizonDays <= 0 uses the default
func NewMaterialForecaster(uow repositories.UnitOfWork, log *logger.Logger, now shared.Clock, horizonDays int) *MaterialForecaster {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	if now == nil {
		now = shared.SystemClock
	}
	return &MaterialForecaster{
		uow:         uow,
		log:         log.With("service", "MaterialForecaster"),
		now:         now,
		horizonDays: horizonDays,
	}
}

// ForecastMaterialForJob sums the demand of every task starting on or before
// the reference task and flags each material that goes negative
func (f *MaterialForecaster) ForecastMaterialForJob(ctx context.Context, taskID uuid.UUID) ([]ForecastIssue, error) {
	var issues []ForecastIssue
	err := f.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		task, err := repos.Tasks().GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		earlier, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{StartsBy: &task.StartDate})
		if err != nil {
			return fmt.Errorf("list tasks starting by %s: %w", task.StartDate, err)
		}

		demand := make(map[uuid.UUID]decimal.Decimal)
		for _, t := range earlier {
			for _, req := range t.Materials {
				demand[req.MaterialID] = demand[req.MaterialID].Add(req.Quantity)
			}
		}

		for materialID, total := range demand {
			material, err := repos.Resources().GetMaterial(ctx, materialID)
			if err != nil {
				return err
			}
			remaining := material.StockQuantity.Sub(total)
			if remaining.IsNegative() {
				issues = append(issues, ForecastIssue{
					MaterialID:       materialID,
					MaterialName:     material.Name,
					Stock:            material.StockQuantity,
					CumulativeDemand: total,
					Shortfall:        remaining.Neg(),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("ForecastMaterialForJob", err)
	}

	sort.Slice(issues, func(i, j int) bool {
		return issues[i].MaterialName < issues[j].MaterialName
	})
	return issues, nil
}

// FindEarliestAvailabilityDate scans day by day from today for the first day
// whose concurrent demand leaves at least requiredQty in stock. found is false
// when no day within the horizon qualifies; the returned time is then now.
func (f *MaterialForecaster) FindEarliestAvailabilityDate(ctx context.Context, materialID uuid.UUID, requiredQty decimal.Decimal) (time.Time, bool, error) {
	now := f.now()
	if !requiredQty.IsPositive() {
		return now, false, errs.Wrap("FindEarliestAvailabilityDate", errs.Validation("required quantity must be positive, got %s", requiredQty))
	}

	var (
		date  time.Time
		found bool
	)
	err := f.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		material, err := repos.Resources().GetMaterial(ctx, materialID)
		if err != nil {
			return err
		}

		today := shared.StartOfDay(now)
		for offset := 0; offset < f.horizonDays; offset++ {
			day := today.AddDate(0, 0, offset)
			demand, err := f.concurrentDemand(ctx, repos, materialID, day)
			if err != nil {
				return err
			}
			if material.StockQuantity.Sub(demand).GreaterThanOrEqual(requiredQty) {
				date, found = day, true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return now, false, errs.Wrap("FindEarliestAvailabilityDate", err)
	}
	if !found {
		f.log.Debug("no availability within horizon", "material_id", materialID, "required", requiredQty, "horizon_days", f.horizonDays)
		return now, false, nil
	}
	return date, true, nil
}

// concurrentDemand sums the material demand of tasks active on day
func (f *MaterialForecaster) concurrentDemand(ctx context.Context, repos repositories.Repositories, materialID uuid.UUID, day time.Time) (decimal.Decimal, error) {
	from, to := shared.DayWindow(day)
	tasks, err := repos.Tasks().ListTasks(ctx, repositories.TaskFilter{OverlapFrom: &from, OverlapTo: &to})
	if err != nil {
		return decimal.Zero, fmt.Errorf("list tasks active on %s: %w", day.Format(time.DateOnly), err)
	}
	total := decimal.Zero
	for _, t := range tasks {
		for _, req := range t.Materials {
			if req.MaterialID == materialID {
				total = total.Add(req.Quantity)
			}
		}
	}
	return total, nil
}
