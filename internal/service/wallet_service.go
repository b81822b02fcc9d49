package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrInsufficientFunds is returned when a stake hold exceeds the balance.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// WalletService manages player balances and the append-only ledger.
// Stakes are debited as holds the moment a player enters a duel, so
// settlement later only ever credits; there is no window in which a
// player can spend money the duel already claims.
type WalletService struct {
	repo *repository.WalletRepository
	log  zerolog.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(repo *repository.WalletRepository, log zerolog.Logger) *WalletService {
	return &WalletService{
		repo: repo,
		log:  log.With().Str("component", "wallet_service").Logger(),
	}
}

// Balance returns the player's spendable balance.
func (s *WalletService) Balance(ctx context.Context, playerID int) (int64, error) {
	return s.repo.Balance(ctx, playerID)
}

// Statement returns the player's ledger entries with the total count.
func (s *WalletService) Statement(ctx context.Context, playerID, limit, offset int) ([]model.WalletEntry, int, error) {
	return s.repo.ListEntries(ctx, playerID, limit, offset)
}

// HoldStake debits the stake when a player enters a duel.
func (s *WalletService) HoldStake(ctx context.Context, playerID int, stake int64, duelID uuid.UUID) error {
	err := s.repo.Debit(ctx, playerID, stake, model.ReasonStakeHold, &duelID)
	if errors.Is(err, repository.ErrInsufficientBalance) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("hold stake: %w", err)
	}
	s.log.Debug().
		Int("player_id", playerID).
		Int64("stake", stake).
		Str("duel_id", duelID.String()).
		Msg("stake held")
	return nil
}

// ReleaseStake refunds a hold when duel setup fails after the debit.
func (s *WalletService) ReleaseStake(ctx context.Context, playerID int, stake int64, duelID uuid.UUID) error {
	return s.repo.Credit(ctx, playerID, stake, model.ReasonStakeRefund, &duelID)
}

// Credit deposits a settlement payout or refund. Satisfies the session
// engine's wallet dependency.
func (s *WalletService) Credit(ctx context.Context, playerID int, amount int64, reason string, duelID uuid.UUID) error {
	return s.repo.Credit(ctx, playerID, amount, reason, &duelID)
}

// TopUp adds funds to a player's wallet. In production this would sit
// behind a payment gateway callback; here it backs the admin CLI.
func (s *WalletService) TopUp(ctx context.Context, playerID int, amount int64) error {
	return s.repo.Credit(ctx, playerID, amount, model.ReasonTopUp, nil)
}

// EnsureWallet provisions an empty wallet for a new player.
func (s *WalletService) EnsureWallet(ctx context.Context, playerID int) error {
	return s.repo.EnsureWallet(ctx, playerID)
}
