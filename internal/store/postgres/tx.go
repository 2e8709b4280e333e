package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
)

// TxFn is the body of a database transaction.
type TxFn func(tx pgx.Tx) error

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. Rollback after commit is a no-op.
func WithTx(ctx context.Context, q store.PGXQuerier, fn TxFn) error {
	tx, err := q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			logger.GetLogger().Errorw("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
