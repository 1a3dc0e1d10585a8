// Package postgres implements the repositories on PostgreSQL through pgx.
// Every unit of work is one database transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsinha/fieldflow/pkg/domain/errs"
	"github.com/vsinha/fieldflow/pkg/domain/repositories"
)

// Store is a pgxpool-backed UnitOfWork
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and verifies the connection
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool
func (s *Store) Close() {
	s.pool.Close()
}

// Verify interface compliance
var _ repositories.UnitOfWork = (*Store)(nil)

// WithinTx runs fn in a read-write transaction, committing only if fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	return s.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
}

// ReadOnly runs fn in a read-only repeatable-read transaction
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	return s.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, false, fn)
}

func (s *Store) inTx(ctx context.Context, opts pgx.TxOptions, writable bool, fn func(ctx context.Context, repos repositories.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, newRepos(tx, writable)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// conn is one transaction shared by the repositories of a unit of work
type conn struct {
	tx       pgx.Tx
	writable bool
}

// forUpdate row-locks reads that precede a write in the same transaction
func (c *conn) forUpdate() string {
	if c.writable {
		return " FOR UPDATE"
	}
	return ""
}

type repos struct {
	jobs      *JobRepository
	tasks     *TaskRepository
	resources *ResourceRepository
	equipment *EquipmentRepository
	ledger    *LedgerRepository
}

func newRepos(tx pgx.Tx, writable bool) *repos {
	c := &conn{tx: tx, writable: writable}
	return &repos{
		jobs:      &JobRepository{c},
		tasks:     &TaskRepository{c},
		resources: &ResourceRepository{c},
		equipment: &EquipmentRepository{c},
		ledger:    &LedgerRepository{c},
	}
}

func (r *repos) Jobs() repositories.JobRepository            { return r.jobs }
func (r *repos) Tasks() repositories.TaskRepository          { return r.tasks }
func (r *repos) Resources() repositories.ResourceRepository  { return r.resources }
func (r *repos) Equipment() repositories.EquipmentRepository { return r.equipment }
func (r *repos) Ledger() repositories.LedgerRepository       { return r.ledger }

// lookupErr maps a missing row to NotFound and wraps anything else
func lookupErr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NotFound(entity, id)
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}

// writeErr maps constraint violations to validation failures
func writeErr(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return errs.Validation("%s already exists", what)
		case "23503":
			return errs.Validation("%s references a missing record (%s)", what, pgErr.ConstraintName)
		case "23514":
			return errs.Validation("%s violates %s", what, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("write %s: %w", what, err)
}

// expectOne turns an update that touched no row into NotFound
func expectOne(tag pgconn.CommandTag, err error, entity string, id uuid.UUID) error {
	if err != nil {
		return writeErr(err, entity)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(entity, id)
	}
	return nil
}
