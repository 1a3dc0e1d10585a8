package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/app"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/config"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
	"github.com/vsinha/fieldflow/pkg/infrastructure/locking"
	"github.com/vsinha/fieldflow/pkg/infrastructure/metrics"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/fixtures"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/fieldflow/pkg/infrastructure/repositories/postgres"
)

// openStore opens the configured store; the returned func releases it
func (e *env) openStore(ctx context.Context) (repositories.UnitOfWork, func(), error) {
	if e.cfg.Store.Driver == config.DriverPostgres {
		if e.fixtures != "" {
			e.log.Warn("--fixtures is ignored for the postgres store, use the seed command", "file", e.fixtures)
		}
		store, err := postgres.Open(ctx, e.cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		e.log.Info("postgres store opened")
		return store, store.Close, nil
	}

	store := memory.NewStore()
	if e.fixtures != "" {
		res, err := seedFile(ctx, store, e.fixtures)
		if err != nil {
			return nil, nil, err
		}
		e.seeded = make(map[string]string, len(res.Jobs))
		for key, id := range res.Jobs {
			e.seeded[key] = id.String()
		}
		e.log.Info("memory store seeded", "file", e.fixtures, "jobs", len(res.Jobs))
	}
	return store, func() {}, nil
}

func seedFile(ctx context.Context, uow repositories.UnitOfWork, path string) (*fixtures.Result, error) {
	f, err := fixtures.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return fixtures.Seed(ctx, uow, f)
}

// openLocker returns the configured job locker; the returned func releases it
func (e *env) openLocker(ctx context.Context) (locking.Locker, func(), error) {
	if e.cfg.Locking.Driver == config.DriverRedis {
		l, err := locking.NewRedisLocker(ctx, e.cfg.Redis.Addr, e.cfg.Locking.TTL, e.log)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	}
	return locking.NewLocalLocker(), func() {}, nil
}

func (e *env) services(uow repositories.UnitOfWork, locker locking.Locker, m *metrics.Metrics, ev events.EventStore) *app.Services {
	return app.New(uow, locker, e.log, app.Options{
		OperationTimeout: e.cfg.Workflow.OperationTimeout,
		HorizonDays:      e.cfg.Forecast.HorizonDays,
		PlanningSeed:     e.cfg.Planning.Seed,
		Metrics:          m,
		Events:           ev,
	})
}

// withServices opens the store and locker, runs fn and releases both
func (e *env) withServices(ctx context.Context, fn func(*app.Services) error) error {
	uow, closeStore, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := e.openLocker(ctx)
	if err != nil {
		return err
	}
	defer closeLocker()

	return fn(e.services(uow, locker, metrics.NewNop(), events.NewSyncEventStore(e.log)))
}

// resolveJob accepts a job id or, with --fixtures, a fixture job key
func (e *env) resolveJob(arg string) (uuid.UUID, error) {
	if id, ok := e.seeded[arg]; ok {
		arg = id
	}
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("job %q is neither a job id nor a fixture job key", arg)
	}
	return id, nil
}
