package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
)

//go:embed schema.sql
var schema string

// Postgres error codes the engine reacts to.
const (
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"

	externalIDConstraint = "orders_customer_external_id_key"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 16
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// runTx begins a read-committed transaction with a bounded lock wait. Anything short of a
// successful commit rolls back.
func runTx(ctx context.Context, pool *pgxpool.Pool, lockTimeout time.Duration, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return mapError(err)
		}
	}
	if err := fn(ctx, tx); err != nil {
		return mapError(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(tx.Commit(ctx))
}

// mapError translates driver failures into the ledger taxonomy and leaves everything else alone.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", ledger.ErrContention, pgErr.Message)
	case codeUniqueViolation:
		if pgErr.ConstraintName == externalIDConstraint {
			// a concurrent request with the same idempotency key won; a retry replays it
			return fmt.Errorf("%w: %s", ledger.ErrContention, pgErr.Message)
		}
		return fmt.Errorf("%w: %s (%s)", ledger.ErrIntegrity, pgErr.Message, pgErr.ConstraintName)
	case codeCheckViolation:
		return fmt.Errorf("%w: %s (%s)", ledger.ErrIntegrity, pgErr.Message, pgErr.ConstraintName)
	}
	return err
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.NotFound(format, args...)
	}
	return err
}
