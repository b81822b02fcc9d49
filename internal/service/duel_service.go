package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/duel"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrInvalidStake is returned when a wager falls outside the configured bounds.
var ErrInvalidStake = errors.New("stake outside allowed bounds")

// SettlementScheduler schedules a settlement retry for a duel whose
// first payout attempt failed.
type SettlementScheduler interface {
	Enqueue(ctx context.Context, duelID uuid.UUID)
}

// DuelService orchestrates the duel lifecycle around the session engine:
// stake holds before a seat is taken, persistence of lifecycle
// transitions, and settlement with retry hand-off. The engine itself
// stays free of database and queue concerns.
type DuelService struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *duel.Registry
	duels    *repository.DuelRepository
	wallet   *WalletService
	bank     *QuestionBankService
	sink     duel.AnswerSink
	retry    SettlementScheduler
	rdb      *redis.Client
}

// NewDuelService creates the service and installs its terminal hook on
// the registry.
func NewDuelService(
	cfg *config.Config,
	log zerolog.Logger,
	registry *duel.Registry,
	duels *repository.DuelRepository,
	wallet *WalletService,
	bank *QuestionBankService,
	sink duel.AnswerSink,
	retry SettlementScheduler,
	rdb *redis.Client,
) *DuelService {
	s := &DuelService{
		cfg:      cfg,
		log:      log.With().Str("component", "duel_service").Logger(),
		registry: registry,
		duels:    duels,
		wallet:   wallet,
		bank:     bank,
		sink:     sink,
		retry:    retry,
		rdb:      rdb,
	}
	registry.SetOnTerminal(s.handleTerminal)
	return s
}

// LobbyItem is one open duel as shown in the lobby.
type LobbyItem struct {
	ID          uuid.UUID `json:"id"`
	CreatorID   int       `json:"creator_id"`
	CreatorName string    `json:"creator_name"`
	Stake       int64     `json:"stake"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

// Create opens a new duel. The creator's stake is held before the
// session registers; if registration fails the hold is released.
func (s *DuelService) Create(ctx context.Context, playerID int, displayName string, req model.CreateDuelRequest) (*duel.Session, error) {
	if req.Stake < s.cfg.MinStake || req.Stake > s.cfg.MaxStake {
		return nil, ErrInvalidStake
	}
	if _, err := s.registry.ForPlayer(playerID); err == nil {
		return nil, duel.ErrDuplicateSession
	}

	questions, err := s.bank.Draw(ctx, req.Category, s.cfg.QuestionsPerDuel)
	if err != nil {
		return nil, err
	}

	duelID := uuid.New()
	if err := s.wallet.HoldStake(ctx, playerID, req.Stake, duelID); err != nil {
		return nil, err
	}

	session, err := s.registry.Create(duel.SessionConfig{
		ID:          duelID,
		CreatorID:   playerID,
		CreatorName: displayName,
		Stake:       req.Stake,
		Category:    req.Category,
		Questions:   questions,
		Settings:    s.engineSettings(),
		Wallet:      s.wallet,
		Sink:        s.sink,
		Logger:      s.log,
		OnStart:     s.handleStart,
	})
	if err != nil {
		if rerr := s.wallet.ReleaseStake(ctx, playerID, req.Stake, duelID); rerr != nil {
			s.log.Error().Err(rerr).Int("player_id", playerID).Msg("stake release after failed create")
		}
		return nil, err
	}

	row := &model.Duel{
		ID:        duelID,
		CreatorID: playerID,
		Stake:     req.Stake,
		Category:  req.Category,
		Status:    model.DuelStatusWaiting,
	}
	if err := s.duels.Create(ctx, row); err != nil {
		s.registry.Abort(duelID)
		if rerr := s.wallet.ReleaseStake(ctx, playerID, req.Stake, duelID); rerr != nil {
			s.log.Error().Err(rerr).Int("player_id", playerID).Msg("stake release after failed persist")
		}
		return nil, err
	}

	s.markActive(ctx, playerID, duelID)
	return session, nil
}

// Join seats the caller as the opponent, holding their stake first.
func (s *DuelService) Join(ctx context.Context, playerID int, displayName string, duelID uuid.UUID) (*duel.Session, error) {
	session, err := s.registry.Get(duelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.registry.ForPlayer(playerID); err == nil {
		return nil, duel.ErrDuplicateSession
	}

	if err := s.wallet.HoldStake(ctx, playerID, session.Stake, duelID); err != nil {
		return nil, err
	}

	if _, err := s.registry.Join(duelID, playerID, displayName); err != nil {
		if rerr := s.wallet.ReleaseStake(ctx, playerID, session.Stake, duelID); rerr != nil {
			s.log.Error().Err(rerr).Int("player_id", playerID).Msg("stake release after failed join")
		}
		return nil, err
	}

	if err := s.duels.SetOpponent(ctx, duelID, playerID); err != nil {
		// The seat and the hold stand; the row catches up at Finish.
		s.log.Error().Err(err).Str("duel_id", duelID.String()).Msg("persist opponent failed")
	}

	s.markActive(ctx, playerID, duelID)
	return session, nil
}

// Get returns the live session for a duel.
func (s *DuelService) Get(duelID uuid.UUID) (*duel.Session, error) {
	return s.registry.Get(duelID)
}

// ActiveFor returns the session the player is currently seated in.
func (s *DuelService) ActiveFor(playerID int) (*duel.Session, error) {
	return s.registry.ForPlayer(playerID)
}

// Forfeit concedes the duel on the player's behalf.
func (s *DuelService) Forfeit(duelID uuid.UUID, playerID int) error {
	session, err := s.registry.Get(duelID)
	if err != nil {
		return err
	}
	return session.Forfeit(playerID)
}

// Cancel aborts an unstarted duel. Creator only.
func (s *DuelService) Cancel(duelID uuid.UUID, playerID int) error {
	session, err := s.registry.Get(duelID)
	if err != nil {
		return err
	}
	return session.Cancel(playerID)
}

// Lobby lists open duels waiting for an opponent.
func (s *DuelService) Lobby() []LobbyItem {
	sessions := s.registry.Waiting()
	items := make([]LobbyItem, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, LobbyItem{
			ID:          sess.ID,
			CreatorID:   sess.CreatorID(),
			CreatorName: sess.PlayerName(sess.CreatorID()),
			Stake:       sess.Stake,
			Category:    sess.Category,
			CreatedAt:   sess.CreatedAt(),
		})
	}
	return items
}

// Detail returns the live snapshot when the session is still in the
// registry. After disposal it falls back to the cached final snapshot,
// which still carries the scores and settlement the duels row does not,
// and only then to the row itself.
func (s *DuelService) Detail(ctx context.Context, duelID uuid.UUID) (*duel.Snapshot, *model.Duel, error) {
	if session, err := s.registry.Get(duelID); err == nil {
		snap := session.View()
		return &snap, nil, nil
	}

	if snap := s.cachedSnapshot(ctx, duelID); snap != nil {
		return snap, nil, nil
	}

	row, err := s.duels.GetByID(ctx, duelID)
	if err != nil {
		return nil, nil, err
	}
	return nil, row, nil
}

// History returns a player's persisted duels.
func (s *DuelService) History(ctx context.Context, playerID, limit, offset int) ([]model.Duel, int, error) {
	return s.duels.ListByPlayer(ctx, playerID, limit, offset)
}

// Answers returns the persisted answer log of a duel.
func (s *DuelService) Answers(ctx context.Context, duelID uuid.UUID) ([]model.DuelAnswer, error) {
	return s.duels.ListAnswers(ctx, duelID)
}

func (s *DuelService) engineSettings() duel.Settings {
	return duel.Settings{
		CommissionRate: s.cfg.CommissionRate,
		MinAnswer:      time.Duration(s.cfg.MinAnswerMs) * time.Millisecond,
		ReadyGrace:     s.cfg.ReadyGrace,
	}
}

// handleStart persists the transition to IN_PROGRESS.
func (s *DuelService) handleStart(session *duel.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.duels.MarkStarted(ctx, session.ID, session.StartedAt()); err != nil {
		s.log.Error().Err(err).Str("duel_id", session.ID.String()).Msg("persist duel start failed")
	}
}

// handleTerminal persists the final row and runs settlement. A failed
// settlement goes to the retry queue; the registry keeps the session
// alive until a retry confirms every payout.
func (s *DuelService) handleTerminal(session *duel.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	end, ok := session.Result()
	if !ok {
		return
	}

	for _, id := range session.PlayerIDs() {
		s.clearActive(ctx, id, session.ID)
	}

	if err := s.duels.Finish(ctx, session.ID, session.Status(), end.WinnerID, end.Commission, session.EndedAt()); err != nil {
		s.log.Error().Err(err).Str("duel_id", session.ID.String()).Msg("persist duel result failed")
	}

	s.cacheFinalSnapshot(ctx, session)

	if err := session.Settle(ctx); err != nil {
		s.log.Warn().Err(err).Str("duel_id", session.ID.String()).Msg("settlement failed, scheduling retry")
		s.retry.Enqueue(ctx, session.ID)
	}
}

const finalSnapshotTTL = 24 * time.Hour

// cacheFinalSnapshot keeps the terminal snapshot in Redis so result
// screens keep working after the registry disposes the session.
func (s *DuelService) cacheFinalSnapshot(ctx context.Context, session *duel.Session) {
	snap := session.View()
	encoded, err := json.Marshal(snap)
	if err != nil {
		return
	}
	key := config.CacheKey.DuelSnapshotKey(session.ID.String())
	if err := s.rdb.Set(ctx, key, encoded, finalSnapshotTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("duel_id", session.ID.String()).Msg("cache final snapshot failed")
	}
}

func (s *DuelService) cachedSnapshot(ctx context.Context, duelID uuid.UUID) *duel.Snapshot {
	raw, err := s.rdb.Get(ctx, config.CacheKey.DuelSnapshotKey(duelID.String())).Result()
	if err != nil {
		return nil
	}
	var snap duel.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil
	}
	return &snap
}

// markActive mirrors the player's seat into Redis so other instances and
// support tooling can see who is in which duel.
func (s *DuelService) markActive(ctx context.Context, playerID int, duelID uuid.UUID) {
	key := config.CacheKey.PlayerActiveDuelKey(playerID)
	if err := s.rdb.Set(ctx, key, duelID.String(), 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Int("player_id", playerID).Msg("mark active duel failed")
	}
}

func (s *DuelService) clearActive(ctx context.Context, playerID int, duelID uuid.UUID) {
	key := config.CacheKey.PlayerActiveDuelKey(playerID)
	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil && val == duelID.String() {
		s.rdb.Del(ctx, key)
	}
}
