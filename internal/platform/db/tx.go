package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txContextKey struct{}

// serialization_failure; the transaction is safe to retry.
const pgSerializationFailure = "40001"

const maxTxAttempts = 3

// Transactor runs a function inside one atomic transaction. The production
// implementation is pgx-backed; tests substitute an in-memory one.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PGTransactor executes functions in serializable pgx transactions and makes
// the transaction available to repositories through the context.
type PGTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor constructs a PGTransactor.
func NewTransactor(pool *pgxpool.Pool) *PGTransactor {
	return &PGTransactor{pool: pool}
}

// InTx runs fn inside a serializable transaction, retrying a bounded number
// of times on serialization failures.
func (t *PGTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		lastErr = t.runOnce(ctx, fn)
		if lastErr == nil {
			return nil
		}
		var pgErr *pgconn.PgError
		if !errors.As(lastErr, &pgErr) || pgErr.Code != pgSerializationFailure {
			return lastErr
		}
	}
	return lastErr
}

func (t *PGTransactor) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// QuerierFrom returns the transaction carried by ctx, or the pool when the
// caller runs outside a transaction boundary.
func QuerierFrom(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}
