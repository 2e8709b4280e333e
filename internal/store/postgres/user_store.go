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

var _ store.UserStore = (*pgUserStore)(nil)

type pgUserStore struct {
	pool store.PGXQuerier
}

// NewUserStore creates a PostgreSQL user store.
func NewUserStore(pool store.PGXQuerier) store.UserStore {
	return &pgUserStore{pool: pool}
}

func (s *pgUserStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	query := `
        SELECT id, email, username, created_at
        FROM users
        WHERE id = $1`

	var user types.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		logger.GetLogger().Errorw("Failed to get user", "userId", id, "error", err)
		return nil, fmt.Errorf("failed to execute GetUser query: %w", err)
	}

	return &user, nil
}

func (s *pgUserStore) GetWallet(ctx context.Context, userID string) (*types.Wallet, error) {
	query := `
        SELECT id, wallet_balance, wallet_currency, updated_at
        FROM users
        WHERE id = $1`

	var wallet types.Wallet
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&wallet.UserID,
		&wallet.Balance,
		&wallet.Currency,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", userID)
		}
		logger.GetLogger().Errorw("Failed to get wallet", "userId", userID, "error", err)
		return nil, fmt.Errorf("failed to execute GetWallet query: %w", err)
	}

	return &wallet, nil
}
