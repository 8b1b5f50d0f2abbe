package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type txKey struct{}

// Transactor runs a function inside a single database transaction.
// Repositories called with the ctx passed to fn join that transaction.
type Transactor interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithinReadTx runs fn on a read-only REPEATABLE READ snapshot.
	WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type transactor struct {
	db      PgxIface
	timeout time.Duration
	log     *zap.Logger
}

func NewTransactor(db PgxIface, timeout time.Duration, log *zap.Logger) Transactor {
	return &transactor{
		db:      db,
		timeout: timeout,
		log:     log.With(zap.String("component", "transactor")),
	}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (t *transactor) WithinReadTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (t *transactor) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error {
	// Nested calls reuse the outer transaction
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			t.log.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Conn returns the transaction stored in ctx, or db when there is none.
func Conn(ctx context.Context, db Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}
