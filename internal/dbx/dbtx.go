// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// a helper to run functions inside a transaction, and a helper that drains
// a set of rows through a sequence of independently committed batches.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// BatchStep rewrites at most limit rows inside tx and reports how many it touched.
type BatchStep func(ctx context.Context, tx DBTX, limit int) (int, error)

// DrainInBatches runs step in its own transaction over and over until a step
// touches fewer than size rows. Every batch commits on its own, so a failure
// leaves all earlier batches committed and the failing one rolled back.
// It returns the number of rows touched by committed batches.
//
// step must only select rows that still need rewriting; otherwise the loop
// never converges.
func DrainInBatches(ctx context.Context, db *sql.DB, size int, step BatchStep) (int, error) {
	if size <= 0 {
		size = 1
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var n int
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			var err error
			n, err = step(ctx, tx, size)
			return err
		})
		if err != nil {
			return total, err
		}

		total += n
		if n < size {
			return total, nil
		}
	}
}
