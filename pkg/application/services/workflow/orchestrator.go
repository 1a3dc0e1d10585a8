// Package workflow drives the equipment pipeline of a job: acceptance,
// receiving, shipping, installation, closing and the site ledger.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/application/services/shared"
	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
	"github.com/vsinha/fieldflow/pkg/infrastructure/events"
	"github.com/vsinha/fieldflow/pkg/infrastructure/locking"
	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
	"github.com/vsinha/fieldflow/pkg/infrastructure/metrics"
)

// DefaultOperationTimeout bounds a single workflow operation
const DefaultOperationTimeout = 30 * time.Second

// Operation names used for errors, metrics and logs
const (
	OpAcceptJob        = "AcceptJob"
	OpReceiveBatch     = "ReceiveEquipmentBatch"
	OpShipBatch        = "ShipEquipmentBatch"
	OpAssignLine       = "AssignEquipmentLine"
	OpCompleteTask     = "CompleteTaskWithEquipment"
	OpCloseJob         = "CloseJobWithValidation"
	OpRebuildSnapshots = "RebuildSiteEquipmentSnapshots"
)

// Orchestrator runs each workflow operation as one transaction, serialized
// per job through the locker.
type Orchestrator struct {
	uow     repositories.UnitOfWork
	locker  locking.Locker
	events  events.EventStore
	metrics *metrics.Metrics
	log     *logger.Logger
	now     shared.Clock
	timeout time.Duration

	// ledgerGate is held shared by ledger appends and exclusively by rebuilds
	ledgerGate *ledgerGate
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock overrides the time source
func WithClock(now shared.Clock) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithOperationTimeout overrides the per-operation deadline
func WithOperationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithEvents publishes workflow events to store after each commit
func WithEvents(store events.EventStore) Option {
	return func(o *Orchestrator) { o.events = store }
}

// WithMetrics records operation metrics on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(uow repositories.UnitOfWork, locker locking.Locker, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		uow:        uow,
		locker:     locker,
		log:        log.With("service", "Workflow"),
		now:        shared.SystemClock,
		timeout:    DefaultOperationTimeout,
		ledgerGate: newLedgerGate(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}
	return o
}

// lockTarget resolves the job whose lock an operation needs
type lockTarget func(ctx context.Context) (uuid.UUID, error)

func forJob(jobID uuid.UUID) lockTarget {
	return func(context.Context) (uuid.UUID, error) { return jobID, nil }
}

func (o *Orchestrator) forBatch(batchID uuid.UUID) lockTarget {
	return func(ctx context.Context) (uuid.UUID, error) {
		var jobID uuid.UUID
		err := o.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
			batch, err := repos.Equipment().GetBatch(ctx, batchID)
			if err != nil {
				return err
			}
			jobID = batch.JobID
			return nil
		})
		return jobID, err
	}
}

func (o *Orchestrator) forTask(taskID uuid.UUID) lockTarget {
	return func(ctx context.Context) (uuid.UUID, error) {
		var jobID uuid.UUID
		err := o.uow.ReadOnly(ctx, func(ctx context.Context, repos repositories.Repositories) error {
			task, err := repos.Tasks().GetTask(ctx, taskID)
			if err != nil {
				return err
			}
			jobID = task.JobID
			return nil
		})
		return jobID, err
	}
}

// run applies the operation deadline, takes the job lock when target is set,
// executes fn in one transaction and publishes its events after commit.
func (o *Orchestrator) run(
	ctx context.Context,
	op string,
	target lockTarget,
	fn func(ctx context.Context, repos repositories.Repositories) ([]events.Event, error),
) (err error) {
	started := time.Now()
	defer func() {
		o.metrics.ObserveOperation(op, started, err)
		if err != nil {
			o.log.Warn("workflow operation failed", "operation", op, "kind", errs.KindOf(err), "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if target != nil {
		jobID, err := target(ctx)
		if err != nil {
			return errs.Wrap(op, err)
		}
		release, err := o.locker.Acquire(ctx, locking.JobKey(jobID.String()))
		if err != nil {
			return errs.Wrap(op, err)
		}
		defer release()
	}

	var pending []events.Event
	err = o.uow.WithinTx(ctx, func(ctx context.Context, repos repositories.Repositories) error {
		evts, err := fn(ctx, repos)
		pending = evts
		return err
	})
	if err != nil {
		return errs.Wrap(op, err)
	}

	o.publish(pending)
	o.log.Debug("workflow operation committed", "operation", op, "events", len(pending), "duration", time.Since(started))
	return nil
}

func (o *Orchestrator) publish(evts []events.Event) {
	if o.events == nil {
		return
	}
	for _, e := range evts {
		if err := o.events.AppendEvent(e.StreamID(), e); err != nil {
			o.log.Warn("failed to publish workflow event", "event", e.Type(), "stream", e.StreamID(), "error", err)
		}
	}
}
