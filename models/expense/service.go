// Package expense implements expense logging with equal splitting and the
// settlement of member shares, by wallet debit or by gateway charge.
package expense

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/internal/payment"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/pkg/valueobjects"
	"github.com/roamfund/roamfund-backend/types"
)

type Service struct {
	trips    store.TripStore
	expenses store.ExpenseStore
	txns     store.TransactionStore
	gateways *payment.Registry

	currency     string
	cutoff       time.Duration
	excessPolicy types.SplitExcessPolicy
}

func NewService(
	trips store.TripStore,
	expenses store.ExpenseStore,
	txns store.TransactionStore,
	gateways *payment.Registry,
	currency string,
	cutoffHours int,
	excessPolicy types.SplitExcessPolicy,
) *Service {
	if !excessPolicy.Valid() {
		excessPolicy = types.SplitExcessDonate
	}
	return &Service{
		trips:        trips,
		expenses:     expenses,
		txns:         txns,
		gateways:     gateways,
		currency:     currency,
		cutoff:       time.Duration(cutoffHours) * time.Hour,
		excessPolicy: excessPolicy,
	}
}

// CreateExpense logs an expense and splits it equally across the trip's
// currently accepted members. Each share is rounded up to the cent, so
// the shares may sum to slightly more than the expense amount; the share
// list is frozen at creation and later membership changes do not touch it.
func (s *Service) CreateExpense(ctx context.Context, tripID, userID string, req types.ExpenseCreateRequest) (*types.Expense, error) {
	if err := s.requireAcceptedMember(ctx, tripID, userID); err != nil {
		return nil, err
	}

	money, err := valueobjects.NewMoney(req.Amount, valueobjects.Currency(s.currency))
	if err != nil {
		return nil, err
	}
	if !money.IsPositive() {
		return nil, apperrors.ValidationFailed("invalid expense amount", "amount must be greater than zero")
	}

	memberIDs, err := s.trips.ListAcceptedMemberIDs(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(memberIDs) == 0 {
		return nil, apperrors.InvalidState(
			"trip has no accepted members",
			"an expense needs at least one member to split across",
		)
	}

	share, err := money.SplitEqualCeil(len(memberIDs))
	if err != nil {
		return nil, err
	}

	expense := &types.Expense{
		TripID:      tripID,
		Title:       req.Title,
		Description: req.Description,
		Amount:      money.Amount(),
		Currency:    s.currency,
		AddedBy:     userID,
		Shares:      make([]types.ExpenseShare, 0, len(memberIDs)),
	}
	for _, memberID := range memberIDs {
		expense.Shares = append(expense.Shares, types.ExpenseShare{
			UserID: memberID,
			Amount: share.Amount(),
			Status: types.ShareStatusPending,
		})
	}

	created, err := s.expenses.CreateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("Created expense",
		"expenseID", created.ID,
		"tripID", tripID,
		"amount", money.Amount(),
		"members", len(memberIDs),
		"shareAmount", share.Amount())

	return created, nil
}

// GetExpense returns an expense with its shares, visible to trip members
// only.
func (s *Service) GetExpense(ctx context.Context, tripID, expenseID, userID string) (*types.Expense, error) {
	if err := s.requireAcceptedMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	return s.expenses.GetExpense(ctx, tripID, expenseID)
}

// PayShare applies a payment against the caller's own share. Wallet
// payments settle immediately; gateway payments open a Pending
// transaction that ConfirmSharePayment later settles.
func (s *Service) PayShare(ctx context.Context, tripID, expenseID, userID string, req types.SharePaymentRequest) (*types.SharePaymentResponse, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAcceptedMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	if err := s.requirePaymentWindowOpen(trip); err != nil {
		return nil, err
	}

	money, err := valueobjects.NewMoney(req.Amount, valueobjects.Currency(s.currency))
	if err != nil {
		return nil, err
	}
	if !money.IsPositive() {
		return nil, apperrors.ValidationFailed("invalid payment amount", "amount must be greater than zero")
	}

	expense, err := s.expenses.GetExpense(ctx, tripID, expenseID)
	if err != nil {
		return nil, err
	}
	share, err := s.expenses.GetShare(ctx, expenseID, userID)
	if err != nil {
		return nil, err
	}
	if share.Status == types.ShareStatusCompleted {
		return nil, apperrors.InvalidState(
			"share is already settled",
			"no further payments can be applied to a completed share",
		)
	}
	if money.Amount().GreaterThan(share.Remaining()) {
		return nil, apperrors.ValidationFailed(
			"payment exceeds remaining share amount",
			fmt.Sprintf("remaining amount is %s", share.Remaining().StringFixed(2)),
		)
	}

	switch req.Method {
	case types.PaymentMethodWallet:
		return s.payShareFromWallet(ctx, expense, share, userID, money)
	case types.PaymentMethodGateway:
		return s.initiateGatewaySharePayment(ctx, expense, share, userID, money, req.Gateway)
	default:
		return nil, apperrors.ValidationFailed(
			"unsupported payment method",
			fmt.Sprintf("method %q is not supported", req.Method),
		)
	}
}

func (s *Service) payShareFromWallet(ctx context.Context, expense *types.Expense, share *types.ExpenseShare, userID string, money *valueobjects.Money) (*types.SharePaymentResponse, error) {
	result, err := s.expenses.ApplySharePayment(ctx, store.SharePaymentParams{
		TripID:       expense.TripID,
		ExpenseID:    expense.ID,
		ShareID:      share.ID,
		UserID:       userID,
		Amount:       money.Amount(),
		Currency:     s.currency,
		DebitWallet:  true,
		ExcessPolicy: s.excessPolicy,
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("Share paid from wallet",
		"expenseID", expense.ID,
		"shareID", share.ID,
		"userID", userID,
		"amount", money.Amount(),
		"settled", result.Settled)

	return &types.SharePaymentResponse{
		TransactionID: result.TransactionID,
		Status:        types.TransactionStatusCompleted,
		Share:         &result.Share,
		Settled:       result.Settled,
	}, nil
}

func (s *Service) initiateGatewaySharePayment(ctx context.Context, expense *types.Expense, share *types.ExpenseShare, userID string, money *valueobjects.Money, gatewayName types.PaymentGateway) (*types.SharePaymentResponse, error) {
	log := logger.GetLogger()

	gateway, err := s.gateways.Get(gatewayName)
	if err != nil {
		return nil, err
	}

	tripID, expenseID, shareID := expense.TripID, expense.ID, share.ID
	txn, err := s.txns.CreateTransaction(ctx, &types.Transaction{
		UserID:    userID,
		TripID:    &tripID,
		ExpenseID: &expenseID,
		ShareID:   &shareID,
		Type:      types.TransactionTypePayment,
		Status:    types.TransactionStatusPending,
		Amount:    money.Amount(),
		Currency:  s.currency,
		Gateway:   gatewayName,
		Metadata: map[string]string{
			types.MetaPurpose: "share_payment",
		},
	})
	if err != nil {
		return nil, err
	}

	intent, err := gateway.CreateIntent(ctx, payment.CreateIntentParams{
		AmountMinor: money.MinorUnits(),
		Currency:    s.currency,
		Receipt:     txn.ID,
		Metadata: map[string]string{
			"transaction_id": txn.ID,
			"expense_id":     expenseID,
			"share_id":       shareID,
		},
	})
	if err != nil {
		if failErr := s.txns.MarkFailed(ctx, txn.ID, "gateway intent creation failed"); failErr != nil {
			log.Errorw("Failed to mark transaction failed after intent error",
				"transactionID", txn.ID, "error", failErr)
		}
		return nil, err
	}

	if err := s.txns.SetMetadata(ctx, txn.ID, map[string]string{
		types.MetaIntentRef: intent.Ref,
	}); err != nil {
		return nil, err
	}

	log.Infow("Initiated gateway share payment",
		"transactionID", txn.ID,
		"expenseID", expenseID,
		"shareID", shareID,
		"gateway", gatewayName,
		"amount", money.Amount())

	return &types.SharePaymentResponse{
		TransactionID: txn.ID,
		Status:        types.TransactionStatusPending,
		ClientParams:  intent.ClientParams,
	}, nil
}

// ConfirmSharePayment verifies a gateway-paid share with the provider and
// applies it. Confirming an already-terminal transaction replays the
// stored outcome.
func (s *Service) ConfirmSharePayment(ctx context.Context, tripID, expenseID, userID, txnID string, proof types.GatewayProof) (*types.SharePaymentResponse, error) {
	log := logger.GetLogger()

	txn, err := s.txns.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, apperrors.NotFound("Transaction", txnID)
	}
	if txn.Type != types.TransactionTypePayment || txn.ExpenseID == nil || *txn.ExpenseID != expenseID || txn.ShareID == nil {
		return nil, apperrors.InvalidState(
			"transaction is not a confirmable share payment",
			"only gateway-backed share payments of this expense can be confirmed here",
		)
	}

	if txn.Status.Terminal() {
		return s.storedOutcome(ctx, txn)
	}

	intentRef := txn.Metadata[types.MetaIntentRef]
	if intentRef == "" {
		return nil, apperrors.InvalidState(
			"transaction has no gateway intent",
			"the payment was never handed to a payment gateway",
		)
	}

	gateway, err := s.gateways.Get(txn.Gateway)
	if err != nil {
		return nil, err
	}

	result, err := gateway.VerifyCompletion(ctx, payment.VerifyParams{
		IntentRef: intentRef,
		PaymentID: proof.PaymentID,
		Signature: proof.Signature,
	})
	if err != nil {
		return nil, err
	}

	if !result.Succeeded {
		if failErr := s.txns.MarkFailed(ctx, txn.ID, result.FailureReason); failErr != nil {
			log.Errorw("Failed to record verification failure",
				"transactionID", txn.ID, "error", failErr)
		}
		log.Warnw("Share payment verification failed",
			"transactionID", txn.ID,
			"gateway", txn.Gateway,
			"reason", result.FailureReason)
		return nil, apperrors.New(apperrors.GatewayErrorType,
			"payment verification failed", result.FailureReason)
	}

	money, err := valueobjects.NewMoney(txn.Amount, valueobjects.Currency(txn.Currency))
	if err != nil {
		return nil, err
	}
	if result.AmountMinor != money.MinorUnits() {
		captured, convErr := valueobjects.NewMoneyFromMinorUnits(result.AmountMinor, money.Currency())
		capturedStr := "unknown"
		if convErr == nil {
			capturedStr = captured.String()
		}
		if failErr := s.txns.MarkFailed(ctx, txn.ID, "captured amount mismatch"); failErr != nil {
			log.Errorw("Failed to record amount mismatch",
				"transactionID", txn.ID, "error", failErr)
		}
		return nil, apperrors.AmountMismatch(money.String(), capturedStr)
	}

	applied, err := s.expenses.ApplySharePayment(ctx, store.SharePaymentParams{
		TripID:        tripID,
		ExpenseID:     expenseID,
		ShareID:       *txn.ShareID,
		UserID:        userID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		TransactionID: txn.ID,
		PaymentRef:    result.PaymentRef,
		ExcessPolicy:  s.excessPolicy,
	})
	if err != nil {
		var appErr *apperrors.AppError
		if stderrors.As(err, &appErr) && appErr.Type == apperrors.ConflictError {
			// A concurrent confirmation already applied this transaction.
			current, getErr := s.txns.GetTransaction(ctx, txn.ID)
			if getErr != nil {
				return nil, getErr
			}
			return s.storedOutcome(ctx, current)
		}
		return nil, err
	}

	log.Infow("Share payment confirmed",
		"transactionID", txn.ID,
		"expenseID", expenseID,
		"shareID", *txn.ShareID,
		"settled", applied.Settled)

	return &types.SharePaymentResponse{
		TransactionID: txn.ID,
		Status:        types.TransactionStatusCompleted,
		Share:         &applied.Share,
		Settled:       applied.Settled,
	}, nil
}

func (s *Service) storedOutcome(ctx context.Context, txn *types.Transaction) (*types.SharePaymentResponse, error) {
	resp := &types.SharePaymentResponse{
		TransactionID: txn.ID,
		Status:        txn.Status,
	}
	if txn.Status == types.TransactionStatusCompleted && txn.ShareID != nil && txn.ExpenseID != nil {
		share, err := s.expenses.GetShare(ctx, *txn.ExpenseID, txn.UserID)
		if err != nil {
			return nil, err
		}
		resp.Share = share
	}
	return resp, nil
}

func (s *Service) requireAcceptedMember(ctx context.Context, tripID, userID string) error {
	ok, err := s.trips.IsAcceptedMember(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Forbidden(
			"not a trip member",
			"only accepted trip members can access trip expenses",
		)
	}
	return nil
}

// requirePaymentWindowOpen rejects share payments once the trip's start
// is closer than the configured cutoff. Trips that already started are
// past the window too.
func (s *Service) requirePaymentWindowOpen(trip *types.Trip) error {
	if s.cutoff <= 0 {
		return nil
	}
	if time.Until(trip.StartDate) < s.cutoff {
		return apperrors.InvalidState(
			"payment window is closed",
			fmt.Sprintf("share payments close %s before the trip starts", s.cutoff),
		)
	}
	return nil
}
