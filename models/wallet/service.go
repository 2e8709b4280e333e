// Package wallet implements personal-wallet reads and the gateway-backed
// deposit flow. Deposits are two-phase: initiation records a Pending
// transaction and opens a provider intent, confirmation verifies the
// provider outcome and credits the wallet exactly once.
package wallet

import (
	"context"

	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/internal/payment"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/pkg/valueobjects"
	"github.com/roamfund/roamfund-backend/types"
)

type Service struct {
	users    store.UserStore
	txns     store.TransactionStore
	gateways *payment.Registry
	currency string
}

func NewService(users store.UserStore, txns store.TransactionStore, gateways *payment.Registry, currency string) *Service {
	return &Service{
		users:    users,
		txns:     txns,
		gateways: gateways,
		currency: currency,
	}
}

// GetWallet returns the caller's personal wallet.
func (s *Service) GetWallet(ctx context.Context, userID string) (*types.Wallet, error) {
	return s.users.GetWallet(ctx, userID)
}

// ListTransactions returns a page of the caller's transaction history.
func (s *Service) ListTransactions(ctx context.Context, filter types.TransactionFilter) ([]types.Transaction, int, error) {
	return s.txns.ListTransactions(ctx, filter)
}

// InitiateDeposit records a Pending deposit transaction and opens a
// provider-side intent for it. No balance changes here; the wallet is
// only credited by a successful ConfirmDeposit.
func (s *Service) InitiateDeposit(ctx context.Context, userID string, req types.DepositInitiateRequest) (*types.DepositInitiateResponse, error) {
	log := logger.GetLogger()

	money, err := valueobjects.NewMoney(req.Amount, valueobjects.Currency(s.currency))
	if err != nil {
		return nil, err
	}
	if !money.IsPositive() {
		return nil, apperrors.ValidationFailed("invalid deposit amount", "amount must be greater than zero")
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	gateway, err := s.gateways.Get(req.Gateway)
	if err != nil {
		return nil, err
	}

	txn, err := s.txns.CreateTransaction(ctx, &types.Transaction{
		UserID:   userID,
		Type:     types.TransactionTypeDeposit,
		Status:   types.TransactionStatusPending,
		Amount:   money.Amount(),
		Currency: s.currency,
		Gateway:  req.Gateway,
		Metadata: map[string]string{
			types.MetaPurpose: "wallet_deposit",
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
			"user_id":        userID,
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

	log.Infow("Initiated wallet deposit",
		"transactionID", txn.ID,
		"userID", userID,
		"gateway", req.Gateway,
		"amount", money.Amount())

	return &types.DepositInitiateResponse{
		TransactionID: txn.ID,
		Gateway:       req.Gateway,
		ClientParams:  intent.ClientParams,
	}, nil
}

// ConfirmDeposit verifies a client-reported completion with the provider
// and credits the wallet. Confirming a transaction that already reached a
// terminal status returns the stored outcome without contacting the
// provider again, so retried confirmations are harmless.
func (s *Service) ConfirmDeposit(ctx context.Context, userID, txnID string, proof types.GatewayProof) (*types.DepositConfirmResponse, error) {
	log := logger.GetLogger()

	txn, err := s.txns.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, apperrors.NotFound("Transaction", txnID)
	}
	if txn.Type != types.TransactionTypeDeposit || txn.Gateway == "" {
		return nil, apperrors.InvalidState(
			"transaction is not a confirmable deposit",
			"only gateway-backed deposit transactions can be confirmed",
		)
	}

	if txn.Status.Terminal() {
		return s.storedOutcome(ctx, txn)
	}

	intentRef := txn.Metadata[types.MetaIntentRef]
	if intentRef == "" {
		return nil, apperrors.InvalidState(
			"transaction has no gateway intent",
			"the deposit was never handed to a payment gateway",
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
		log.Warnw("Deposit verification failed",
			"transactionID", txn.ID,
			"gateway", txn.Gateway,
			"reason", result.FailureReason)
		return nil, apperrors.New(apperrors.GatewayErrorType,
			"deposit verification failed", result.FailureReason)
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

	won, err := s.txns.CompleteDepositAndCredit(ctx, txn.ID, userID, txn.Amount, result.PaymentRef)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent confirmation reached the terminal state first;
		// report whatever it recorded.
		current, err := s.txns.GetTransaction(ctx, txn.ID)
		if err != nil {
			return nil, err
		}
		return s.storedOutcome(ctx, current)
	}

	wallet, err := s.users.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	log.Infow("Deposit confirmed and wallet credited",
		"transactionID", txn.ID,
		"userID", userID,
		"amount", txn.Amount,
		"paymentRef", result.PaymentRef)

	balance := wallet.Balance
	return &types.DepositConfirmResponse{
		TransactionID: txn.ID,
		Status:        types.TransactionStatusCompleted,
		Balance:       &balance,
	}, nil
}

func (s *Service) storedOutcome(ctx context.Context, txn *types.Transaction) (*types.DepositConfirmResponse, error) {
	resp := &types.DepositConfirmResponse{
		TransactionID: txn.ID,
		Status:        txn.Status,
	}
	if txn.FailureReason != nil {
		resp.FailureReason = *txn.FailureReason
	}
	if txn.Status == types.TransactionStatusCompleted {
		wallet, err := s.users.GetWallet(ctx, txn.UserID)
		if err != nil {
			return nil, err
		}
		balance := wallet.Balance
		resp.Balance = &balance
	}
	return resp, nil
}
