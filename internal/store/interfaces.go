// Package store defines the persistence contracts of the funds-custody
// core. Implementations must apply every balance mutation and its
// companion transaction status change as one atomic, condition-guarded
// unit; callers rely on at-most-one mutation per transaction id.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/shopspring/decimal"
)

// PGXQuerier is the subset of pgxpool.Pool the postgres stores use.
// pgxmock.PgxPoolIface satisfies it, which is how store tests run without
// a database.
type PGXQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// UserStore reads user profiles and personal wallets.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*types.User, error)
	GetWallet(ctx context.Context, userID string) (*types.Wallet, error)
}

// TripStore reads trips, memberships and the pooled trip wallet.
type TripStore interface {
	GetTrip(ctx context.Context, id string) (*types.Trip, error)
	IsAcceptedMember(ctx context.Context, tripID, userID string) (bool, error)
	ListAcceptedMemberIDs(ctx context.Context, tripID string) ([]string, error)
	GetTripWallet(ctx context.Context, tripID string) (*types.TripWallet, error)
}

// SharePaymentParams applies a payment against one member's share.
type SharePaymentParams struct {
	TripID    string
	ExpenseID string
	ShareID   string
	UserID    string
	Amount    decimal.Decimal
	Currency  string

	// TransactionID, when set, completes that pending gateway transaction
	// instead of creating a new wallet-payment record. PaymentRef is the
	// gateway's payment id, stored alongside.
	TransactionID string
	PaymentRef    string

	// DebitWallet debits the payer's wallet (guarded by balance >= amount)
	// in the same database transaction.
	DebitWallet bool

	ExcessPolicy types.SplitExcessPolicy
}

// SharePaymentResult reports the share update. Settled is true only for
// the call that completed the expense's last share; TripCredit is the
// amount moved into the trip wallet by that call.
type SharePaymentResult struct {
	TransactionID string
	Share         types.ExpenseShare
	Settled       bool
	TripCredit    decimal.Decimal
}

// ExpenseStore owns expenses and their shares.
type ExpenseStore interface {
	// CreateExpense persists the expense and all its shares atomically.
	CreateExpense(ctx context.Context, expense *types.Expense) (*types.Expense, error)
	GetExpense(ctx context.Context, tripID, expenseID string) (*types.Expense, error)
	GetShare(ctx context.Context, expenseID, userID string) (*types.ExpenseShare, error)
	// ApplySharePayment runs the full share-settlement write set in one
	// database transaction: optional wallet debit, transaction record,
	// guarded share increment, all-shares-completed check and at most one
	// trip-wallet credit.
	ApplySharePayment(ctx context.Context, p SharePaymentParams) (*SharePaymentResult, error)
}

// TransactionStore owns the append-only transaction log.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *types.Transaction) (*types.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*types.Transaction, error)
	// SetMetadata merges keys into the transaction's metadata map.
	SetMetadata(ctx context.Context, id string, meta map[string]string) error
	// MarkFailed transitions Pending → Failed with a reason. Terminal
	// transactions are left untouched.
	MarkFailed(ctx context.Context, id, reason string) error
	// CompleteDepositAndCredit flips the transaction Pending → Completed
	// and credits the user's wallet in one atomic unit. Returns false
	// without mutating anything when the transaction was no longer
	// Pending (a concurrent confirmation won).
	CompleteDepositAndCredit(ctx context.Context, txnID, userID string, amount decimal.Decimal, paymentRef string) (bool, error)
	ListTransactions(ctx context.Context, filter types.TransactionFilter) ([]types.Transaction, int, error)
}

// WithdrawalOutcome describes the state of the withdrawal cycle after an
// initiate or approve call.
type WithdrawalOutcome struct {
	TransactionID string
	Amount        decimal.Decimal
	AuthorID      string
	Approvals     []string
	Required      int
	Finalized     bool
}

// WithdrawalStore drives the trip-wallet withdrawal state machine.
type WithdrawalStore interface {
	// InitiateWithdrawal marks the trip's withdrawal pending, records the
	// Pending Withdrawal transaction and the author's auto-approval, all
	// in one database transaction.
	InitiateWithdrawal(ctx context.Context, tripID, authorID string, amount decimal.Decimal, currency string) (*WithdrawalOutcome, error)
	// Approve adds one approval and, when the approval set covers every
	// accepted member, finalizes the payout in the same transaction. The
	// trip row is locked for the duration so two racing approvals cannot
	// both finalize.
	Approve(ctx context.Context, tripID, userID string) (*WithdrawalOutcome, error)
}

// Store bundles all data access for wiring.
type Store struct {
	Users        UserStore
	Trips        TripStore
	Expenses     ExpenseStore
	Transactions TransactionStore
	Withdrawals  WithdrawalStore
}
