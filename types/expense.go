package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type ShareStatus string

const (
	ShareStatusPending   ShareStatus = "PENDING"
	ShareStatusPartial   ShareStatus = "PARTIAL"
	ShareStatusCompleted ShareStatus = "COMPLETED"
)

// ShareStatusFor derives a share's status from its paid and total
// amounts. Status is never stored independently of these two fields.
func ShareStatusFor(amountPaid, amount decimal.Decimal) ShareStatus {
	switch {
	case amountPaid.LessThanOrEqual(decimal.Zero):
		return ShareStatusPending
	case amountPaid.GreaterThanOrEqual(amount):
		return ShareStatusCompleted
	default:
		return ShareStatusPartial
	}
}

// Expense is a trip expense split equally across the members accepted at
// creation time. The share list is fixed once created.
type Expense struct {
	ID          string          `json:"id"`
	TripID      string          `json:"tripId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	AddedBy     string          `json:"addedBy"`
	Shares      []ExpenseShare  `json:"shares"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ExpenseShare struct {
	ID         string          `json:"id"`
	ExpenseID  string          `json:"expenseId"`
	UserID     string          `json:"userId"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	Status     ShareStatus     `json:"status"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Remaining returns the unpaid portion of the share.
func (s ExpenseShare) Remaining() decimal.Decimal {
	return s.Amount.Sub(s.AmountPaid)
}

type PaymentMethod string

const (
	PaymentMethodWallet  PaymentMethod = "wallet"
	PaymentMethodGateway PaymentMethod = "gateway"
)
