package types

import "github.com/shopspring/decimal"

// ExpenseCreateRequest logs a new trip expense to be split equally.
type ExpenseCreateRequest struct {
	Title       string          `json:"title" binding:"required,max=255"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
}

// DepositInitiateRequest starts a gateway-backed wallet top-up.
type DepositInitiateRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Gateway PaymentGateway  `json:"gateway" binding:"required,oneof=stripe razorpay"`
}

// GatewayProof carries the client-side completion evidence handed back by
// a gateway. Stripe needs only the payment reference; Razorpay also sends
// the HMAC signature over "orderID|paymentID".
type GatewayProof struct {
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature,omitempty"`
}

// SharePaymentRequest applies a payment against the caller's share.
type SharePaymentRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required"`
	Method  PaymentMethod   `json:"method" binding:"required,oneof=wallet gateway"`
	Gateway PaymentGateway  `json:"gateway,omitempty" binding:"omitempty,oneof=stripe razorpay"`
}

// WithdrawalInitiateRequest asks to move trip-wallet funds to the trip
// author's personal wallet, pending unanimous approval.
type WithdrawalInitiateRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// DepositInitiateResponse returns the gateway-specific client parameters.
// No balance has changed yet when this is returned.
type DepositInitiateResponse struct {
	TransactionID string            `json:"transactionId"`
	Gateway       PaymentGateway    `json:"gateway"`
	ClientParams  map[string]string `json:"clientParams"`
}

// DepositConfirmResponse reports the stored outcome of a confirmation.
// Confirming an already-terminal transaction returns the same response.
type DepositConfirmResponse struct {
	TransactionID string            `json:"transactionId"`
	Status        TransactionStatus `json:"status"`
	FailureReason string            `json:"failureReason,omitempty"`
	Balance       *decimal.Decimal  `json:"balance,omitempty"`
}

// SharePaymentResponse reports a share update. Settled is true only on
// the call that completed the expense's final share.
type SharePaymentResponse struct {
	TransactionID string            `json:"transactionId,omitempty"`
	Status        TransactionStatus `json:"status"`
	Share         *ExpenseShare     `json:"share,omitempty"`
	Settled       bool              `json:"settled"`
	ClientParams  map[string]string `json:"clientParams,omitempty"`
}

// WithdrawalStatusResponse describes the current withdrawal cycle.
type WithdrawalStatusResponse struct {
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Approvals     []string        `json:"approvals"`
	Required      int             `json:"required"`
	Finalized     bool            `json:"finalized"`
}
