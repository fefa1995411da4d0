package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context so store calls made inside a
// locked read-modify-write join the same transaction.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Run executes fn inside a transaction carried by the context passed to fn.
// A transaction already present in ctx is reused and left for its owner to
// commit. fn's error rolls the transaction back and is returned unchanged.
func Run(ctx context.Context, db *sql.DB, fn func(txCtx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
