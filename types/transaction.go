package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypePayment    TransactionType = "PAYMENT"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Terminal reports whether the status can no longer change. Completed
// transactions are never reverted and Failed is final.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusFailed
}

type PaymentGateway string

const (
	GatewayStripe   PaymentGateway = "stripe"
	GatewayRazorpay PaymentGateway = "razorpay"
)

// Transaction is the append-only audit record pairing every balance
// mutation with a typed, status-bearing entry. Identity is immutable;
// only the status (and terminal metadata) may change, Pending → Completed
// or Pending → Failed.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	TripID        *string           `json:"tripId,omitempty"`
	ExpenseID     *string           `json:"expenseId,omitempty"`
	ShareID       *string           `json:"shareId,omitempty"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	Gateway       PaymentGateway    `json:"gateway,omitempty"`
	PaymentRef    *string           `json:"paymentRef,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	FailureReason *string           `json:"failureReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// TransactionFilter narrows ListTransactions. UserID is mandatory; the
// rest are optional.
type TransactionFilter struct {
	UserID string
	TripID *string
	Type   *TransactionType
	Status *TransactionStatus
	Limit  int
	Offset int
}

// Metadata keys written by the deposit and share-payment flows.
const (
	MetaIntentRef = "intent_ref"
	MetaOrderRef  = "order_ref"
	MetaPurpose   = "purpose"
	MetaSource    = "source"
)
