package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
)

var _ store.WithdrawalStore = (*pgWithdrawalStore)(nil)

type pgWithdrawalStore struct {
	pool store.PGXQuerier
}

// NewWithdrawalStore creates a PostgreSQL withdrawal store.
func NewWithdrawalStore(pool store.PGXQuerier) store.WithdrawalStore {
	return &pgWithdrawalStore{pool: pool}
}

// InitiateWithdrawal opens a withdrawal cycle. The trip row is locked for
// the duration of the transaction, so two concurrent initiations cannot
// both pass the pending check.
func (s *pgWithdrawalStore) InitiateWithdrawal(ctx context.Context, tripID, authorID string, amount decimal.Decimal, currency string) (*store.WithdrawalOutcome, error) {
	log := logger.GetLogger()
	outcome := &store.WithdrawalOutcome{AuthorID: authorID, Amount: amount}

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var createdBy string
		var balance decimal.Decimal
		var pending bool
		err := tx.QueryRow(ctx, `
            SELECT created_by, wallet_balance, pending_withdrawal
            FROM trips
            WHERE id = $1
            FOR UPDATE`,
			tripID).Scan(&createdBy, &balance, &pending)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("trip", tripID)
			}
			return fmt.Errorf("failed to lock trip: %w", err)
		}

		if createdBy != authorID {
			return apperrors.Forbidden(
				"only the trip author can initiate a withdrawal",
				fmt.Sprintf("user %s is not the author of trip %s", authorID, tripID),
			)
		}
		if pending {
			return apperrors.InvalidState(
				"a withdrawal is already pending for this trip",
				fmt.Sprintf("trip %s", tripID),
			)
		}
		if amount.GreaterThan(balance) {
			return apperrors.ValidationFailed(
				"withdrawal amount exceeds trip wallet balance",
				fmt.Sprintf("requested %s, available %s", amount.StringFixed(2), balance.StringFixed(2)),
			)
		}

		txnID := uuid.NewString()
		_, err = tx.Exec(ctx, `
            INSERT INTO transactions (id, user_id, trip_id, type, status, amount, currency, metadata)
            VALUES ($1, $2, $3, $4, $5, $6, $7, '{}'::jsonb)`,
			txnID, authorID, tripID,
			types.TransactionTypeWithdrawal, types.TransactionStatusPending,
			amount, currency)
		if err != nil {
			return fmt.Errorf("failed to create withdrawal transaction: %w", err)
		}

		_, err = tx.Exec(ctx, `
            UPDATE trips SET pending_withdrawal = true, updated_at = now()
            WHERE id = $1`,
			tripID)
		if err != nil {
			return fmt.Errorf("failed to mark withdrawal pending: %w", err)
		}

		// The author approves their own request implicitly.
		_, err = tx.Exec(ctx, `
            INSERT INTO withdrawal_approvals (trip_id, user_id, transaction_id)
            VALUES ($1, $2, $3)`,
			tripID, authorID, txnID)
		if err != nil {
			return fmt.Errorf("failed to record author approval: %w", err)
		}

		var required int
		err = tx.QueryRow(ctx, `
            SELECT count(*) FROM trip_memberships
            WHERE trip_id = $1 AND status = $2`,
			tripID, types.MembershipStatusAccepted).Scan(&required)
		if err != nil {
			return fmt.Errorf("failed to count accepted members: %w", err)
		}

		outcome.TransactionID = txnID
		outcome.Approvals = []string{authorID}
		outcome.Required = required

		// The author's own approval can already be unanimous when they
		// are the only accepted member; pay out in the same transaction,
		// since a second Approve call would be rejected as a duplicate.
		if required <= 1 {
			if err := finalizePayout(ctx, tx, tripID, txnID, authorID, amount); err != nil {
				return err
			}
			outcome.Finalized = true
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		log.Errorw("InitiateWithdrawal transaction failed", "tripId", tripID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return outcome, nil
}

// finalizePayout moves the withdrawal amount from the trip wallet to the
// author's wallet and closes the cycle: withdrawal transaction completed,
// trip debited, pending flag and approvals cleared, author credited, and
// a companion Completed Deposit recorded for the author's side.
func finalizePayout(ctx context.Context, tx pgx.Tx, tripID, txnID, authorID string, amount decimal.Decimal) error {
	tag, err := tx.Exec(ctx, `
        UPDATE transactions SET status = $2, updated_at = now()
        WHERE id = $1 AND status = $3`,
		txnID, types.TransactionStatusCompleted, types.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete withdrawal transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewConflictError(
			"withdrawal already finalized",
			fmt.Sprintf("transaction %s is no longer pending", txnID),
		)
	}

	tag, err = tx.Exec(ctx, `
        UPDATE trips
        SET wallet_balance = wallet_balance - $2,
            pending_withdrawal = false,
            updated_at = now()
        WHERE id = $1 AND wallet_balance >= $2`,
		tripID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit trip wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.InvalidState(
			"trip wallet balance is below the withdrawal amount",
			fmt.Sprintf("trip %s", tripID),
		)
	}

	if _, err := tx.Exec(ctx, `
        DELETE FROM withdrawal_approvals WHERE trip_id = $1`,
		tripID); err != nil {
		return fmt.Errorf("failed to clear approvals: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        UPDATE users
        SET wallet_balance = wallet_balance + $2, updated_at = now()
        WHERE id = $1`,
		authorID, amount); err != nil {
		return fmt.Errorf("failed to credit author wallet: %w", err)
	}

	// Companion record documenting the author-side credit.
	var currency string
	err = tx.QueryRow(ctx, `
        SELECT currency FROM transactions WHERE id = $1`,
		txnID).Scan(&currency)
	if err != nil {
		return fmt.Errorf("failed to read withdrawal currency: %w", err)
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO transactions (id, user_id, trip_id, type, status, amount, currency, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)`,
		uuid.NewString(), authorID, tripID,
		types.TransactionTypeDeposit, types.TransactionStatusCompleted,
		amount, currency,
		fmt.Sprintf(`{"source": "trip_withdrawal", "withdrawal_transaction": %q}`, txnID))
	if err != nil {
		return fmt.Errorf("failed to record payout deposit: %w", err)
	}

	return nil
}

// Approve records one member's approval and finalizes the payout when the
// approval set covers every accepted member. Everything happens under the
// trip row lock, so at most one approval can be the finalizing one.
func (s *pgWithdrawalStore) Approve(ctx context.Context, tripID, userID string) (*store.WithdrawalOutcome, error) {
	log := logger.GetLogger()
	outcome := &store.WithdrawalOutcome{}

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var pending bool
		err := tx.QueryRow(ctx, `
            SELECT pending_withdrawal FROM trips
            WHERE id = $1
            FOR UPDATE`,
			tripID).Scan(&pending)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("trip", tripID)
			}
			return fmt.Errorf("failed to lock trip: %w", err)
		}
		if !pending {
			return apperrors.InvalidState(
				"no withdrawal is pending for this trip",
				fmt.Sprintf("trip %s", tripID),
			)
		}

		var txnID, authorID string
		var amount decimal.Decimal
		err = tx.QueryRow(ctx, `
            SELECT id, user_id, amount FROM transactions
            WHERE trip_id = $1 AND type = $2 AND status = $3`,
			tripID, types.TransactionTypeWithdrawal, types.TransactionStatusPending,
		).Scan(&txnID, &authorID, &amount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.InvalidState(
					"no pending withdrawal transaction found",
					fmt.Sprintf("trip %s", tripID),
				)
			}
			return fmt.Errorf("failed to load pending withdrawal: %w", err)
		}

		tag, err := tx.Exec(ctx, `
            INSERT INTO withdrawal_approvals (trip_id, user_id, transaction_id)
            VALUES ($1, $2, $3)
            ON CONFLICT (trip_id, user_id) DO NOTHING`,
			tripID, userID, txnID)
		if err != nil {
			return fmt.Errorf("failed to insert approval: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewConflictError(
				"withdrawal already approved",
				fmt.Sprintf("user %s has already approved this withdrawal", userID),
			)
		}

		var approvals []string
		rows, err := tx.Query(ctx, `
            SELECT user_id FROM withdrawal_approvals
            WHERE trip_id = $1
            ORDER BY created_at`,
			tripID)
		if err != nil {
			return fmt.Errorf("failed to list approvals: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan approval: %w", err)
			}
			approvals = append(approvals, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("approval rows error: %w", err)
		}

		var required int
		err = tx.QueryRow(ctx, `
            SELECT count(*) FROM trip_memberships
            WHERE trip_id = $1 AND status = $2`,
			tripID, types.MembershipStatusAccepted).Scan(&required)
		if err != nil {
			return fmt.Errorf("failed to count accepted members: %w", err)
		}

		outcome.TransactionID = txnID
		outcome.AuthorID = authorID
		outcome.Amount = amount
		outcome.Approvals = approvals
		outcome.Required = required

		if len(approvals) < required {
			return nil
		}

		// Unanimous: finalize the payout.
		if err := finalizePayout(ctx, tx, tripID, txnID, authorID, amount); err != nil {
			return err
		}

		outcome.Finalized = true
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		log.Errorw("Approve transaction failed", "tripId", tripID, "userId", userID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return outcome, nil
}
