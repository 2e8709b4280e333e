package handlers

import (
	"context"

	"github.com/roamfund/roamfund-backend/internal/payment"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *mockUserStore) GetWallet(ctx context.Context, userID string) (*types.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Wallet), args.Error(1)
}

type mockTripStore struct {
	mock.Mock
}

func (m *mockTripStore) GetTrip(ctx context.Context, id string) (*types.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *mockTripStore) IsAcceptedMember(ctx context.Context, tripID, userID string) (bool, error) {
	args := m.Called(ctx, tripID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockTripStore) ListAcceptedMemberIDs(ctx context.Context, tripID string) ([]string, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockTripStore) GetTripWallet(ctx context.Context, tripID string) (*types.TripWallet, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripWallet), args.Error(1)
}

type mockExpenseStore struct {
	mock.Mock
}

func (m *mockExpenseStore) CreateExpense(ctx context.Context, expense *types.Expense) (*types.Expense, error) {
	args := m.Called(ctx, expense)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Expense), args.Error(1)
}

func (m *mockExpenseStore) GetExpense(ctx context.Context, tripID, expenseID string) (*types.Expense, error) {
	args := m.Called(ctx, tripID, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Expense), args.Error(1)
}

func (m *mockExpenseStore) GetShare(ctx context.Context, expenseID, userID string) (*types.ExpenseShare, error) {
	args := m.Called(ctx, expenseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ExpenseShare), args.Error(1)
}

func (m *mockExpenseStore) ApplySharePayment(ctx context.Context, p store.SharePaymentParams) (*store.SharePaymentResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.SharePaymentResult), args.Error(1)
}

type mockTransactionStore struct {
	mock.Mock
}

func (m *mockTransactionStore) CreateTransaction(ctx context.Context, txn *types.Transaction) (*types.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

func (m *mockTransactionStore) GetTransaction(ctx context.Context, id string) (*types.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

func (m *mockTransactionStore) SetMetadata(ctx context.Context, id string, meta map[string]string) error {
	args := m.Called(ctx, id, meta)
	return args.Error(0)
}

func (m *mockTransactionStore) MarkFailed(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockTransactionStore) CompleteDepositAndCredit(ctx context.Context, txnID, userID string, amount decimal.Decimal, paymentRef string) (bool, error) {
	args := m.Called(ctx, txnID, userID, amount, paymentRef)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransactionStore) ListTransactions(ctx context.Context, filter types.TransactionFilter) ([]types.Transaction, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]types.Transaction), args.Int(1), args.Error(2)
}

type mockWithdrawalStore struct {
	mock.Mock
}

func (m *mockWithdrawalStore) InitiateWithdrawal(ctx context.Context, tripID, authorID string, amount decimal.Decimal, currency string) (*store.WithdrawalOutcome, error) {
	args := m.Called(ctx, tripID, authorID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.WithdrawalOutcome), args.Error(1)
}

func (m *mockWithdrawalStore) Approve(ctx context.Context, tripID, userID string) (*store.WithdrawalOutcome, error) {
	args := m.Called(ctx, tripID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.WithdrawalOutcome), args.Error(1)
}

type mockGateway struct {
	mock.Mock
	name types.PaymentGateway
}

func (m *mockGateway) Name() types.PaymentGateway {
	return m.name
}

func (m *mockGateway) CreateIntent(ctx context.Context, p payment.CreateIntentParams) (*payment.Intent, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *mockGateway) VerifyCompletion(ctx context.Context, p payment.VerifyParams) (*payment.VerificationResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.VerificationResult), args.Error(1)
}
