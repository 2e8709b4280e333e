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

var _ store.ExpenseStore = (*pgExpenseStore)(nil)

type pgExpenseStore struct {
	pool store.PGXQuerier
}

// NewExpenseStore creates a PostgreSQL expense store.
func NewExpenseStore(pool store.PGXQuerier) store.ExpenseStore {
	return &pgExpenseStore{pool: pool}
}

// CreateExpense inserts the expense and all its shares in one transaction.
func (s *pgExpenseStore) CreateExpense(ctx context.Context, expense *types.Expense) (*types.Expense, error) {
	log := logger.GetLogger()

	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO expenses (id, trip_id, title, description, amount, currency, added_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING created_at`,
			expense.ID,
			expense.TripID,
			expense.Title,
			expense.Description,
			expense.Amount,
			expense.Currency,
			expense.AddedBy,
		).Scan(&expense.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for i := range expense.Shares {
			share := &expense.Shares[i]
			if share.ID == "" {
				share.ID = uuid.NewString()
			}
			share.ExpenseID = expense.ID

			err := tx.QueryRow(ctx, `
                INSERT INTO expense_shares (id, expense_id, user_id, amount, amount_paid, status)
                VALUES ($1, $2, $3, $4, 0, $5)
                RETURNING updated_at`,
				share.ID,
				share.ExpenseID,
				share.UserID,
				share.Amount,
				types.ShareStatusPending,
			).Scan(&share.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert share for user %s: %w", share.UserID, err)
			}
			share.AmountPaid = decimal.Zero
			share.Status = types.ShareStatusPending
		}

		return nil
	})
	if err != nil {
		log.Errorw("CreateExpense transaction failed", "tripId", expense.TripID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return expense, nil
}

func (s *pgExpenseStore) GetExpense(ctx context.Context, tripID, expenseID string) (*types.Expense, error) {
	query := `
        SELECT id, trip_id, title, description, amount, currency, added_by, created_at
        FROM expenses
        WHERE id = $1 AND trip_id = $2`

	var expense types.Expense
	err := s.pool.QueryRow(ctx, query, expenseID, tripID).Scan(
		&expense.ID,
		&expense.TripID,
		&expense.Title,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&expense.AddedBy,
		&expense.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("expense", expenseID)
		}
		logger.GetLogger().Errorw("Failed to get expense", "expenseId", expenseID, "error", err)
		return nil, fmt.Errorf("failed to execute GetExpense query: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, expense_id, user_id, amount, amount_paid, status, updated_at
        FROM expense_shares
        WHERE expense_id = $1
        ORDER BY user_id`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var share types.ExpenseShare
		if err := rows.Scan(
			&share.ID,
			&share.ExpenseID,
			&share.UserID,
			&share.Amount,
			&share.AmountPaid,
			&share.Status,
			&share.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		expense.Shares = append(expense.Shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("share rows error: %w", err)
	}

	return &expense, nil
}

func (s *pgExpenseStore) GetShare(ctx context.Context, expenseID, userID string) (*types.ExpenseShare, error) {
	query := `
        SELECT id, expense_id, user_id, amount, amount_paid, status, updated_at
        FROM expense_shares
        WHERE expense_id = $1 AND user_id = $2`

	var share types.ExpenseShare
	err := s.pool.QueryRow(ctx, query, expenseID, userID).Scan(
		&share.ID,
		&share.ExpenseID,
		&share.UserID,
		&share.Amount,
		&share.AmountPaid,
		&share.Status,
		&share.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("expense share", expenseID)
		}
		return nil, fmt.Errorf("failed to execute GetShare query: %w", err)
	}

	return &share, nil
}

// ApplySharePayment runs the whole settlement write set in one database
// transaction. The expense row is locked first so only one payment at a
// time can observe "all shares completed" and credit the trip wallet.
func (s *pgExpenseStore) ApplySharePayment(ctx context.Context, p store.SharePaymentParams) (*store.SharePaymentResult, error) {
	log := logger.GetLogger()
	result := &store.SharePaymentResult{TransactionID: p.TransactionID}

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var expenseAmount decimal.Decimal
		err := tx.QueryRow(ctx, `
            SELECT amount FROM expenses
            WHERE id = $1 AND trip_id = $2
            FOR UPDATE`,
			p.ExpenseID, p.TripID).Scan(&expenseAmount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("expense", p.ExpenseID)
			}
			return fmt.Errorf("failed to lock expense: %w", err)
		}

		if p.DebitWallet {
			tag, err := tx.Exec(ctx, `
                UPDATE users
                SET wallet_balance = wallet_balance - $2, updated_at = now()
                WHERE id = $1 AND wallet_balance >= $2`,
				p.UserID, p.Amount)
			if err != nil {
				return fmt.Errorf("failed to debit wallet: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.ValidationFailed(
					"insufficient wallet balance",
					fmt.Sprintf("wallet balance is below %s", p.Amount.StringFixed(2)),
				)
			}
		}

		if p.TransactionID == "" {
			// Wallet payment: record the movement as a Completed Payment.
			txnID := uuid.NewString()
			_, err := tx.Exec(ctx, `
                INSERT INTO transactions (
                    id, user_id, trip_id, expense_id, share_id, type, status, amount, currency, metadata
                )
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '{}'::jsonb)`,
				txnID, p.UserID, p.TripID, p.ExpenseID, p.ShareID,
				types.TransactionTypePayment, types.TransactionStatusCompleted,
				p.Amount, p.Currency)
			if err != nil {
				return fmt.Errorf("failed to record payment transaction: %w", err)
			}
			result.TransactionID = txnID
		} else {
			// Gateway payment: complete the pending transaction created at
			// initiation. Zero rows means a concurrent confirmation won.
			tag, err := tx.Exec(ctx, `
                UPDATE transactions
                SET status = $2, payment_ref = $3, updated_at = now()
                WHERE id = $1 AND status = $4`,
				p.TransactionID, types.TransactionStatusCompleted, p.PaymentRef,
				types.TransactionStatusPending)
			if err != nil {
				return fmt.Errorf("failed to complete payment transaction: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.NewConflictError(
					"payment already processed",
					fmt.Sprintf("transaction %s is no longer pending", p.TransactionID),
				)
			}
		}

		// Guarded increment: amount_paid can never exceed amount.
		err = tx.QueryRow(ctx, `
            UPDATE expense_shares
            SET amount_paid = amount_paid + $2,
                status = CASE
                    WHEN amount_paid + $2 >= amount THEN 'COMPLETED'
                    ELSE 'PARTIAL'
                END,
                updated_at = now()
            WHERE id = $1 AND amount_paid + $2 <= amount
            RETURNING id, expense_id, user_id, amount, amount_paid, status, updated_at`,
			p.ShareID, p.Amount).Scan(
			&result.Share.ID,
			&result.Share.ExpenseID,
			&result.Share.UserID,
			&result.Share.Amount,
			&result.Share.AmountPaid,
			&result.Share.Status,
			&result.Share.UpdatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ValidationFailed(
					"payment exceeds remaining share amount",
					fmt.Sprintf("cannot apply %s to share %s", p.Amount.StringFixed(2), p.ShareID),
				)
			}
			return fmt.Errorf("failed to update share: %w", err)
		}

		// Settlement check against the authoritative rows, under the
		// expense lock taken above. No cached flag to go stale.
		var unpaid int
		var shareSum decimal.Decimal
		err = tx.QueryRow(ctx, `
            SELECT count(*) FILTER (WHERE status <> 'COMPLETED'), COALESCE(sum(amount), 0)
            FROM expense_shares
            WHERE expense_id = $1`,
			p.ExpenseID).Scan(&unpaid, &shareSum)
		if err != nil {
			return fmt.Errorf("failed to check settlement: %w", err)
		}

		if unpaid == 0 && result.Share.Status == types.ShareStatusCompleted {
			credit := expenseAmount
			if p.ExcessPolicy == types.SplitExcessDonate {
				credit = shareSum
			}

			tag, err := tx.Exec(ctx, `
                UPDATE trips
                SET wallet_balance = wallet_balance + $2, updated_at = now()
                WHERE id = $1`,
				p.TripID, credit)
			if err != nil {
				return fmt.Errorf("failed to credit trip wallet: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.NotFound("trip", p.TripID)
			}

			result.Settled = true
			result.TripCredit = credit
		}

		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		log.Errorw("ApplySharePayment transaction failed",
			"expenseId", p.ExpenseID, "shareId", p.ShareID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return result, nil
}
