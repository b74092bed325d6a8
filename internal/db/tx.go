package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	pgForeignKeyViolation  = "23503"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// ErrPersistence is the generic "operation failed" signal. The owning
// transaction has been rolled back when it surfaces.
var ErrPersistence = errors.New("persistence failure")

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transactor runs fn as one all-or-nothing unit of work.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// Conn returns the transaction bound to ctx, or the pool when there is none.
func Conn(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db
}

func InTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok && tx != nil
}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

type TxRunner struct {
	db         *sql.DB
	maxRetries int
	backoff    time.Duration
}

func NewTxRunner(db *sql.DB, maxRetries int) *TxRunner {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &TxRunner{
		db:         db,
		maxRetries: maxRetries,
		backoff:    20 * time.Millisecond,
	}
}

func (r *TxRunner) WithBackoff(d time.Duration) *TxRunner {
	r.backoff = d
	return r
}

// RunInTx retries only on serialization failures and deadlocks. A call made
// while a transaction is already bound to ctx joins it.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "db"),
		zap.String("method", "RunInTx"),
	)

	for attempt := 1; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		metrics.TxRetries.Inc()

		if attempt >= r.maxRetries {
			log.Error("transaction retries exhausted",
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return fmt.Errorf("%w: retries exhausted: %w", ErrPersistence, err)
		}

		log.Warn("retrying transaction after conflict",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrPersistence, ctx.Err())
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	log := logger.FromCtx(ctx).With(zap.String("layer", "db"))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return Wrap(err, "begin transaction")
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back")
			}
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return Wrap(err, "commit transaction")
	}

	committed = true
	return nil
}

// Wrap marks err as a persistence failure while keeping the driver error
// reachable through errors.As.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

func IsRetryable(err error) bool {
	code := pgCode(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

func IsCheckViolation(err error) bool {
	return pgCode(err) == pgCheckViolation
}

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
