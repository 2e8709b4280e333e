package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
)

var _ store.TransactionStore = (*pgTransactionStore)(nil)

type pgTransactionStore struct {
	pool store.PGXQuerier
}

// NewTransactionStore creates a PostgreSQL transaction store.
func NewTransactionStore(pool store.PGXQuerier) store.TransactionStore {
	return &pgTransactionStore{pool: pool}
}

const transactionColumns = `
    id, user_id, trip_id, expense_id, share_id, type, status, amount,
    currency, gateway, payment_ref, metadata, failure_reason,
    created_at, updated_at`

func scanTransaction(row pgx.Row) (*types.Transaction, error) {
	var txn types.Transaction
	var gateway *string
	var metadataJSON []byte

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.TripID,
		&txn.ExpenseID,
		&txn.ShareID,
		&txn.Type,
		&txn.Status,
		&txn.Amount,
		&txn.Currency,
		&gateway,
		&txn.PaymentRef,
		&metadataJSON,
		&txn.FailureReason,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if gateway != nil {
		txn.Gateway = types.PaymentGateway(*gateway)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
		}
	}

	return &txn, nil
}

func (s *pgTransactionStore) CreateTransaction(ctx context.Context, txn *types.Transaction) (*types.Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.Status == "" {
		txn.Status = types.TransactionStatusPending
	}

	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction metadata: %w", err)
	}

	var gateway *string
	if txn.Gateway != "" {
		g := string(txn.Gateway)
		gateway = &g
	}

	query := `
        INSERT INTO transactions (
            id, user_id, trip_id, expense_id, share_id, type, status,
            amount, currency, gateway, payment_ref, metadata
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING created_at, updated_at`

	err = s.pool.QueryRow(ctx, query,
		txn.ID,
		txn.UserID,
		txn.TripID,
		txn.ExpenseID,
		txn.ShareID,
		txn.Type,
		txn.Status,
		txn.Amount,
		txn.Currency,
		gateway,
		txn.PaymentRef,
		metadataJSON,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		logger.GetLogger().Errorw("Failed to create transaction",
			"userId", txn.UserID, "type", txn.Type, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return txn, nil
}

func (s *pgTransactionStore) GetTransaction(ctx context.Context, id string) (*types.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	txn, err := scanTransaction(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("transaction", id)
		}
		logger.GetLogger().Errorw("Failed to get transaction", "transactionId", id, "error", err)
		return nil, fmt.Errorf("failed to execute GetTransaction query: %w", err)
	}

	return txn, nil
}

func (s *pgTransactionStore) SetMetadata(ctx context.Context, id string, meta map[string]string) error {
	metadataJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
        UPDATE transactions
        SET metadata = metadata || $2::jsonb, updated_at = now()
        WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, metadataJSON)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("transaction", id)
	}

	return nil
}

// MarkFailed transitions Pending → Failed. A terminal transaction is left
// untouched; the caller reads the stored outcome instead.
func (s *pgTransactionStore) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
        UPDATE transactions
        SET status = $2, failure_reason = $3, updated_at = now()
        WHERE id = $1 AND status = $4`

	tag, err := s.pool.Exec(ctx, query,
		id, types.TransactionStatusFailed, reason, types.TransactionStatusPending)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		logger.GetLogger().Warnw("MarkFailed skipped non-pending transaction", "transactionId", id)
	}

	return nil
}

// CompleteDepositAndCredit is the single place a verified deposit turns
// into wallet balance. The status flip and the credit commit together;
// losing the Pending guard means another confirmation already applied it.
func (s *pgTransactionStore) CompleteDepositAndCredit(ctx context.Context, txnID, userID string, amount decimal.Decimal, paymentRef string) (bool, error) {
	won := false

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE transactions
            SET status = $2, payment_ref = $3, updated_at = now()
            WHERE id = $1 AND status = $4`,
			txnID, types.TransactionStatusCompleted, paymentRef, types.TransactionStatusPending)
		if err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Already terminal; nothing to credit.
			return nil
		}

		tag, err = tx.Exec(ctx, `
            UPDATE users
            SET wallet_balance = wallet_balance + $2, updated_at = now()
            WHERE id = $1`,
			userID, amount)
		if err != nil {
			return fmt.Errorf("failed to credit wallet: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("user", userID)
		}

		won = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return won, nil
}

func (s *pgTransactionStore) ListTransactions(ctx context.Context, filter types.TransactionFilter) ([]types.Transaction, int, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{filter.UserID}
	argPosition := 2

	if filter.TripID != nil {
		conditions = append(conditions, fmt.Sprintf("trip_id = $%d", argPosition))
		args = append(args, *filter.TripID)
		argPosition++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPosition))
		args = append(args, *filter.Type)
		argPosition++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPosition))
		args = append(args, *filter.Status)
		argPosition++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT count(*) FROM transactions WHERE ` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, argPosition, argPosition+1)
	args = append(args, limit, filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []types.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("transaction rows error: %w", err)
	}

	return txns, total, nil
}
