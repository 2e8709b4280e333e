package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	amount := decimal.RequireFromString("50.00")
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(pgxmock.AnyArg(), "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			types.TransactionTypeDeposit, types.TransactionStatusPending,
			amount, "USD", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	s := NewTransactionStore(mock)
	txn, err := s.CreateTransaction(context.Background(), &types.Transaction{
		UserID:   "user-1",
		Type:     types.TransactionTypeDeposit,
		Amount:   amount,
		Currency: "USD",
		Gateway:  types.GatewayStripe,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, types.TransactionStatusPending, txn.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT").WithArgs("txn-missing").WillReturnError(pgx.ErrNoRows)

	s := NewTransactionStore(mock)
	_, err = s.GetTransaction(context.Background(), "txn-missing")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.NotFoundError, appErr.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedSkipsTerminalTransactions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE transactions").
		WithArgs("txn-1", types.TransactionStatusFailed, "declined", types.TransactionStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	s := NewTransactionStore(mock)
	require.NoError(t, s.MarkFailed(context.Background(), "txn-1", "declined"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteDepositAndCredit(t *testing.T) {
	amount := decimal.RequireFromString("50.00")

	t.Run("wins the pending guard and credits the wallet", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE transactions").
			WithArgs("txn-1", types.TransactionStatusCompleted, "pay_1", types.TransactionStatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("UPDATE users").
			WithArgs("user-1", amount).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()
		mock.ExpectRollback()

		s := NewTransactionStore(mock)
		won, err := s.CompleteDepositAndCredit(context.Background(), "txn-1", "user-1", amount, "pay_1")
		require.NoError(t, err)
		assert.True(t, won)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing the guard commits without touching the wallet", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE transactions").
			WithArgs("txn-1", types.TransactionStatusCompleted, "pay_1", types.TransactionStatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectCommit()
		mock.ExpectRollback()

		s := NewTransactionStore(mock)
		won, err := s.CompleteDepositAndCredit(context.Background(), "txn-1", "user-1", amount, "pay_1")
		require.NoError(t, err)
		assert.False(t, won)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListTransactions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT count").
		WithArgs("user-1", types.TransactionTypeDeposit).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT(.|\n)+FROM transactions").
		WithArgs("user-1", types.TransactionTypeDeposit, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "trip_id", "expense_id", "share_id", "type", "status",
			"amount", "currency", "gateway", "payment_ref", "metadata", "failure_reason",
			"created_at", "updated_at",
		}).AddRow(
			"txn-1", "user-1", nil, nil, nil,
			types.TransactionTypeDeposit, types.TransactionStatusCompleted,
			decimal.RequireFromString("50.00"), "USD", ptr("stripe"), ptr("pay_1"),
			[]byte(`{"purpose":"wallet_deposit"}`), nil, now, now,
		))

	s := NewTransactionStore(mock)
	txnType := types.TransactionTypeDeposit
	txns, total, err := s.ListTransactions(context.Background(), types.TransactionFilter{
		UserID: "user-1",
		Type:   &txnType,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, txns, 1)
	assert.Equal(t, types.GatewayStripe, txns[0].Gateway)
	assert.Equal(t, "wallet_deposit", txns[0].Metadata[types.MetaPurpose])
	require.NoError(t, mock.ExpectationsWereMet())
}

func ptr(s string) *string {
	return &s
}
