package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrUsernameTaken is returned when registration hits an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// PlayerService handles player registration and login.
type PlayerService struct {
	players *repository.PlayerRepository
	wallet  *WalletService
	auth    *AuthService
	log     zerolog.Logger
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(players *repository.PlayerRepository, wallet *WalletService, auth *AuthService, log zerolog.Logger) *PlayerService {
	return &PlayerService{
		players: players,
		wallet:  wallet,
		auth:    auth,
		log:     log.With().Str("component", "player_service").Logger(),
	}
}

// Register creates a player account with an empty wallet.
func (s *PlayerService) Register(ctx context.Context, req model.RegisterRequest) (*model.Player, error) {
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	player := &model.Player{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
	}
	if err := s.players.Create(ctx, player); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	if err := s.wallet.EnsureWallet(ctx, player.ID); err != nil {
		s.log.Error().Err(err).Int("player_id", player.ID).Msg("wallet provisioning failed")
	}

	s.log.Info().Int("player_id", player.ID).Str("username", player.Username).Msg("player registered")
	return player, nil
}

// Login checks credentials and issues a JWT.
func (s *PlayerService) Login(ctx context.Context, req model.LoginRequest) (string, *model.Player, error) {
	player, err := s.players.GetByUsername(ctx, req.Username)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := s.auth.CheckPassword(player.PasswordHash, req.Password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.auth.GeneratePlayerToken(ctx, player.ID, player.DisplayName)
	if err != nil {
		return "", nil, err
	}
	return token, player, nil
}

// GetByID fetches a player's profile.
func (s *PlayerService) GetByID(ctx context.Context, id int) (*model.Player, error) {
	return s.players.GetByID(ctx, id)
}
