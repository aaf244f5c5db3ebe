// Package repository holds the small generic helpers every domain
// repository is written with: transactions, typed row scanning and
// Postgres error classification.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/docket/pkg/retry"
)

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is the Scan method shared by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

type ScanFunc[T any] func(Scanner) (T, error)

// txPolicy reruns a transaction that lost a deadlock or serialization
// race. fn must therefore be safe to repeat.
var txPolicy = retry.Policy{MaxAttempts: 3, Delay: 25 * time.Millisecond}

// WithTx runs fn in a transaction, committing when it returns nil.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	return retry.Do(ctx, txPolicy, func(ctx context.Context, _ int) (T, error) {
		result, err := runTx(ctx, db, fn)
		if IsRetryable(err) {
			return result, retry.Transient(err)
		}
		return result, err
	})
}

func runTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// QueryOne scans the first row. A missing row is sql.ErrNoRows.
func QueryOne[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(q.QueryRowContext(ctx, query, args...))
}

// QueryOptional is QueryOne with a missing row reported as (nil, nil).
func QueryOptional[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) (*T, error) {
	v, err := QueryOne(ctx, q, query, args, scan)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &v, nil
}

// QueryMany scans every row. No rows yields an empty, non-nil slice.
func QueryMany[T any](ctx context.Context, q Querier, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ExecAffected runs a statement and returns its row count. Compare-and-set
// updates read a zero count as a lost race.
func ExecAffected(ctx context.Context, e Executor, query string, args ...any) (int64, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecExpectOne fails with sql.ErrNoRows when the statement touched nothing.
func ExecExpectOne(ctx context.Context, e Executor, query string, args ...any) error {
	n, err := ExecAffected(ctx, e, query, args...)
	if err == nil && n == 0 {
		err = sql.ErrNoRows
	}
	return err
}
