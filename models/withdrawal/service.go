// Package withdrawal drives the trip-wallet payout cycle: the trip author
// initiates, every accepted member must approve, and the approval that
// completes the set pays the trip balance out to the author's wallet.
package withdrawal

import (
	"context"

	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/pkg/valueobjects"
	"github.com/roamfund/roamfund-backend/types"
)

type Service struct {
	trips       store.TripStore
	withdrawals store.WithdrawalStore
	currency    string
}

func NewService(trips store.TripStore, withdrawals store.WithdrawalStore, currency string) *Service {
	return &Service{
		trips:       trips,
		withdrawals: withdrawals,
		currency:    currency,
	}
}

// GetTripWallet returns the pooled trip wallet, including any in-flight
// withdrawal's approval set. Members only.
func (s *Service) GetTripWallet(ctx context.Context, tripID, userID string) (*types.TripWallet, error) {
	if err := s.requireAcceptedMember(ctx, tripID, userID); err != nil {
		return nil, err
	}
	return s.trips.GetTripWallet(ctx, tripID)
}

// InitiateWithdrawal opens a withdrawal cycle for the trip author. The
// author's own approval is recorded immediately, so a single-member trip
// finalizes in this call.
func (s *Service) InitiateWithdrawal(ctx context.Context, tripID, userID string, req types.WithdrawalInitiateRequest) (*types.WithdrawalStatusResponse, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.CreatedBy != userID {
		return nil, apperrors.Forbidden(
			"only the trip author can initiate a withdrawal",
			"withdrawals pay out to the trip author's wallet",
		)
	}

	money, err := valueobjects.NewMoney(req.Amount, valueobjects.Currency(s.currency))
	if err != nil {
		return nil, err
	}
	if !money.IsPositive() {
		return nil, apperrors.ValidationFailed("invalid withdrawal amount", "amount must be greater than zero")
	}

	outcome, err := s.withdrawals.InitiateWithdrawal(ctx, tripID, userID, money.Amount(), s.currency)
	if err != nil {
		return nil, err
	}

	logger.GetLogger().Infow("Initiated trip withdrawal",
		"tripID", tripID,
		"transactionID", outcome.TransactionID,
		"amount", outcome.Amount,
		"approvals", len(outcome.Approvals),
		"required", outcome.Required,
		"finalized", outcome.Finalized)

	return statusResponse(outcome), nil
}

// Approve records the caller's approval of the pending withdrawal. The
// call that completes the unanimous set also performs the payout; the
// response's Finalized field tells the caller which happened.
func (s *Service) Approve(ctx context.Context, tripID, userID string) (*types.WithdrawalStatusResponse, error) {
	if err := s.requireAcceptedMember(ctx, tripID, userID); err != nil {
		return nil, err
	}

	outcome, err := s.withdrawals.Approve(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger()
	if outcome.Finalized {
		log.Infow("Withdrawal finalized",
			"tripID", tripID,
			"transactionID", outcome.TransactionID,
			"amount", outcome.Amount,
			"authorID", outcome.AuthorID)
	} else {
		log.Infow("Withdrawal approval recorded",
			"tripID", tripID,
			"transactionID", outcome.TransactionID,
			"approvals", len(outcome.Approvals),
			"required", outcome.Required)
	}

	return statusResponse(outcome), nil
}

func statusResponse(o *store.WithdrawalOutcome) *types.WithdrawalStatusResponse {
	return &types.WithdrawalStatusResponse{
		TransactionID: o.TransactionID,
		Amount:        o.Amount,
		Approvals:     o.Approvals,
		Required:      o.Required,
		Finalized:     o.Finalized,
	}
}

func (s *Service) requireAcceptedMember(ctx context.Context, tripID, userID string) error {
	ok, err := s.trips.IsAcceptedMember(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Forbidden(
			"not a trip member",
			"only accepted trip members can access the trip wallet",
		)
	}
	return nil
}
