package workflow

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
)

// ledgerGateWeight is the weight a rebuild takes; appends take 1 each
const ledgerGateWeight = 1 << 20

// ledgerGate admits any number of ledger appends or a single rebuild.
// Waiters are served in arrival order, so a queued rebuild holds back
// appends that arrive after it.
type ledgerGate struct {
	sem *semaphore.Weighted
}

func newLedgerGate() *ledgerGate {
	return &ledgerGate{sem: semaphore.NewWeighted(ledgerGateWeight)}
}

func (g *ledgerGate) acquire(ctx context.Context, exclusive bool) (func(), error) {
	weight := int64(1)
	if exclusive {
		weight = ledgerGateWeight
	}
	if err := g.sem.Acquire(ctx, weight); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(weight) }, nil
}

// enterLedger applies the operation deadline and waits for the ledger gate
// inside it. The returned func releases the gate and the deadline.
func (o *Orchestrator) enterLedger(ctx context.Context, op string, exclusive bool) (context.Context, func(), error) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	release, err := o.ledgerGate.acquire(ctx, exclusive)
	if err != nil {
		cancel()
		err = errs.Wrap(op, err)
		o.metrics.ObserveOperation(op, started, err)
		o.log.Warn("ledger gate not acquired", "operation", op, "error", err)
		return nil, nil, err
	}
	return ctx, func() {
		release()
		cancel()
	}, nil
}
