package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	apperrors "github.com/roamfund/roamfund-backend/errors"
	"github.com/roamfund/roamfund-backend/internal/store"
	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/types"
)

var _ store.TripStore = (*pgTripStore)(nil)

type pgTripStore struct {
	pool store.PGXQuerier
}

// NewTripStore creates a PostgreSQL trip store.
func NewTripStore(pool store.PGXQuerier) store.TripStore {
	return &pgTripStore{pool: pool}
}

func (s *pgTripStore) GetTrip(ctx context.Context, id string) (*types.Trip, error) {
	query := `
        SELECT id, name, description, start_date, end_date, status,
               created_by, created_at, updated_at
        FROM trips
        WHERE id = $1`

	var trip types.Trip
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&trip.ID,
		&trip.Name,
		&trip.Description,
		&trip.StartDate,
		&trip.EndDate,
		&trip.Status,
		&trip.CreatedBy,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trip", id)
		}
		logger.GetLogger().Errorw("Failed to get trip", "tripId", id, "error", err)
		return nil, fmt.Errorf("failed to execute GetTrip query: %w", err)
	}

	return &trip, nil
}

func (s *pgTripStore) IsAcceptedMember(ctx context.Context, tripID, userID string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM trip_memberships
            WHERE trip_id = $1 AND user_id = $2 AND status = $3
        )`

	var exists bool
	err := s.pool.QueryRow(ctx, query, tripID, userID, types.MembershipStatusAccepted).Scan(&exists)
	if err != nil {
		logger.GetLogger().Errorw("Failed to check membership", "tripId", tripID, "userId", userID, "error", err)
		return false, fmt.Errorf("failed to execute IsAcceptedMember query: %w", err)
	}

	return exists, nil
}

func (s *pgTripStore) ListAcceptedMemberIDs(ctx context.Context, tripID string) ([]string, error) {
	query := `
        SELECT user_id FROM trip_memberships
        WHERE trip_id = $1 AND status = $2
        ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, tripID, types.MembershipStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListAcceptedMemberIDs query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("member id rows error: %w", err)
	}

	return ids, nil
}

func (s *pgTripStore) GetTripWallet(ctx context.Context, tripID string) (*types.TripWallet, error) {
	query := `
        SELECT id, wallet_balance, wallet_currency, pending_withdrawal, updated_at
        FROM trips
        WHERE id = $1`

	var wallet types.TripWallet
	err := s.pool.QueryRow(ctx, query, tripID).Scan(
		&wallet.TripID,
		&wallet.Balance,
		&wallet.Currency,
		&wallet.PendingWithdrawal,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("trip", tripID)
		}
		logger.GetLogger().Errorw("Failed to get trip wallet", "tripId", tripID, "error", err)
		return nil, fmt.Errorf("failed to execute GetTripWallet query: %w", err)
	}

	wallet.WithdrawalApprovals = []string{}
	if wallet.PendingWithdrawal {
		approvalQuery := `
            SELECT wa.user_id, wa.transaction_id
            FROM withdrawal_approvals wa
            WHERE wa.trip_id = $1
            ORDER BY wa.created_at`

		rows, err := s.pool.Query(ctx, approvalQuery, tripID)
		if err != nil {
			return nil, fmt.Errorf("failed to query withdrawal approvals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var userID, txnID string
			if err := rows.Scan(&userID, &txnID); err != nil {
				return nil, fmt.Errorf("failed to scan approval row: %w", err)
			}
			wallet.WithdrawalApprovals = append(wallet.WithdrawalApprovals, userID)
			if wallet.PendingTransactionID == nil {
				wallet.PendingTransactionID = &txnID
			}
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("approval rows error: %w", err)
		}
	}

	return &wallet, nil
}
