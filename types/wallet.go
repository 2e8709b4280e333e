package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a user's personal balance. It is only ever mutated together
// with a Transaction record documenting the change.
type Wallet struct {
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// TripWallet is the pooled balance of a trip, funded by fully-settled
// expenses and withdrawable only by unanimous member approval.
type TripWallet struct {
	TripID               string          `json:"tripId"`
	Balance              decimal.Decimal `json:"balance"`
	Currency             string          `json:"currency"`
	PendingWithdrawal    bool            `json:"pendingWithdrawal"`
	WithdrawalApprovals  []string        `json:"withdrawalApprovals"`
	PendingTransactionID *string         `json:"pendingTransactionId,omitempty"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// SplitExcessPolicy decides where the cents over-collected by ceiling
// splitting end up once an expense settles.
type SplitExcessPolicy string

const (
	// SplitExcessDonate credits the trip wallet with the full sum of share
	// amounts, so every collected cent stays accounted for.
	SplitExcessDonate SplitExcessPolicy = "donate"
	// SplitExcessForgive credits the trip wallet with exactly the expense
	// amount; the rounding excess is written off.
	SplitExcessForgive SplitExcessPolicy = "forgive"
)

func (p SplitExcessPolicy) Valid() bool {
	return p == SplitExcessDonate || p == SplitExcessForgive
}
