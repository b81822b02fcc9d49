package duel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Wallet credits settlement payouts. Implementations must be idempotent
// friendly at the call-site level only; the session tracks which players
// were already paid and never credits the same player twice.
type Wallet interface {
	Credit(ctx context.Context, playerID int, amount int64, reason string, duelID uuid.UUID) error
}

// AnswerSink receives accepted and suspicious answer records for
// asynchronous persistence. Implementations must not block.
type AnswerSink interface {
	EnqueueAnswer(model.DuelAnswer)
}

// Settings are the engine tunables a session is born with.
type Settings struct {
	CommissionRate decimal.Decimal
	MinAnswer      time.Duration
	ReadyGrace     time.Duration
}

// SessionConfig carries everything needed to construct a live session.
type SessionConfig struct {
	ID          uuid.UUID
	CreatorID   int
	CreatorName string
	Stake       int64
	Category    string
	Questions   []model.Question
	Settings    Settings
	Clock       clockwork.Clock
	Wallet      Wallet
	Sink        AnswerSink
	Logger      zerolog.Logger

	// OnStart is invoked (in its own goroutine) when the session enters
	// InProgress. Used to persist the start transition.
	OnStart func(*Session)

	// OnTerminal is invoked (in its own goroutine) exactly once, when the
	// session reaches Completed or Cancelled. The registry uses it to
	// persist the result, run settlement, and schedule disposal.
	OnTerminal func(*Session)
}

type playerSlot struct {
	id        int
	name      string
	ready     bool
	connected bool
	away      bool
}

// Session is the live state of one head-to-head duel. All lifecycle
// mutations are serialized by a per-session mutex; there is no global
// lock anywhere in the engine, so a slow duel never stalls its
// neighbours.
type Session struct {
	ID       uuid.UUID
	Stake    int64
	Category string

	clock    clockwork.Clock
	log      zerolog.Logger
	wallet   Wallet
	sink     AnswerSink
	settings Settings

	mu        sync.Mutex
	state     model.DuelStatus
	creatorID int
	players   map[int]*playerSlot
	order     []int

	questions     []model.Question
	current       int
	answered      map[int]map[int]bool
	questionStart time.Time

	timer      *questionTimer
	graceTimer *questionTimer
	scorer     *Scorer
	channel    *Channel

	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time

	end        *EndPayload
	settlement *Settlement

	// settleMu serializes settlement attempts without blocking gameplay
	// reads; paid tracks per-player wallet credits so retries after a
	// partial failure never double-pay.
	settleMu sync.Mutex
	paid     map[int]bool
	settled  bool

	onStart    func(*Session)
	onTerminal func(*Session)
}

// NewSession creates a session in the Waiting state with the creator
// seated. The abandonment grace timer starts immediately: a duel nobody
// starts within the grace window cancels itself and refunds the holds.
func NewSession(cfg SessionConfig) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Session{
		ID:         cfg.ID,
		Stake:      cfg.Stake,
		Category:   cfg.Category,
		clock:      clock,
		log:        cfg.Logger.With().Str("duel_id", cfg.ID.String()).Logger(),
		wallet:     cfg.Wallet,
		sink:       cfg.Sink,
		settings:   cfg.Settings,
		state:      model.DuelStatusWaiting,
		creatorID:  cfg.CreatorID,
		players:    map[int]*playerSlot{cfg.CreatorID: {id: cfg.CreatorID, name: cfg.CreatorName}},
		order:      []int{cfg.CreatorID},
		questions:  cfg.Questions,
		answered:   make(map[int]map[int]bool),
		timer:      newQuestionTimer(clock),
		graceTimer: newQuestionTimer(clock),
		scorer:     NewScorer(cfg.CreatorID),
		channel:    newChannel(),
		createdAt:  clock.Now(),
		paid:       make(map[int]bool, 2),
		onStart:    cfg.OnStart,
		onTerminal: cfg.OnTerminal,
	}

	if cfg.Settings.ReadyGrace > 0 {
		s.graceTimer.Arm(0, cfg.Settings.ReadyGrace, func(int) { s.handleReadyGrace() })
	}
	return s
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

// Join seats the opponent. Exactly two players ever sit in a duel; a
// third join attempt is rejected, as is joining after the duel left the
// Waiting state.
func (s *Session) Join(playerID int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.DuelStatusWaiting {
		return ErrWrongState
	}
	if _, ok := s.players[playerID]; ok {
		return ErrDuplicateSession
	}
	if len(s.players) >= 2 {
		return ErrSessionFull
	}

	s.players[playerID] = &playerSlot{id: playerID, name: name}
	s.order = append(s.order, playerID)
	s.scorer.AddPlayer(playerID)

	s.log.Info().Int("player_id", playerID).Msg("opponent joined duel")
	s.broadcastLocked(Event{Type: EventPlayerStatus, Payload: PlayerStatusPayload{
		PlayerID: playerID,
		Status:   "joined",
	}})
	return nil
}

// SetReady marks the player ready. When both seated players are ready
// the duel starts: the first question is emitted and its timer armed.
func (s *Session) SetReady(playerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.players[playerID]
	if !ok {
		return ErrNotAParticipant
	}
	if s.state != model.DuelStatusWaiting {
		return ErrWrongState
	}

	slot.ready = true
	s.broadcastLocked(Event{Type: EventPlayerStatus, Payload: PlayerStatusPayload{
		PlayerID:  playerID,
		Status:    "ready",
		Connected: slot.connected,
	}})

	if len(s.players) == 2 && s.allReadyLocked() {
		s.startLocked()
	}
	return nil
}

// SetConnected updates the player's connection flag and tells the
// opponent. Disconnection does not pause the duel; timers keep running.
func (s *Session) SetConnected(playerID int, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.players[playerID]
	if !ok {
		return ErrNotAParticipant
	}
	slot.connected = connected
	if connected {
		slot.away = false
	}

	status := "disconnected"
	if connected {
		status = "connected"
	}
	s.broadcastLocked(Event{Type: EventPlayerStatus, Payload: PlayerStatusPayload{
		PlayerID:  playerID,
		Status:    status,
		Connected: connected,
	}})
	return nil
}

// SetAway flags the player as present but inactive (tab hidden, phone
// locked). Purely informational for the opponent; timers keep running.
func (s *Session) SetAway(playerID int, away bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.players[playerID]
	if !ok {
		return ErrNotAParticipant
	}
	slot.away = away

	status := "active"
	if away {
		status = "away"
	}
	s.broadcastLocked(Event{Type: EventPlayerStatus, Payload: PlayerStatusPayload{
		PlayerID:  playerID,
		Status:    status,
		Connected: slot.connected,
		Away:      away,
	}})
	return nil
}

// Forfeit resolves the duel against the forfeiting player. Before the
// duel starts it behaves as a cancellation with full refunds; once in
// progress the opponent wins the pot.
func (s *Session) Forfeit(playerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[playerID]; !ok {
		return ErrNotAParticipant
	}

	switch s.state {
	case model.DuelStatusWaiting:
		s.cancelLocked(ReasonCancelled)
		return nil
	case model.DuelStatusInProgress:
		opponent := s.otherPlayerLocked(playerID)
		s.log.Info().Int("player_id", playerID).Msg("player forfeited duel")
		s.completeLocked(&opponent, ReasonForfeit)
		return nil
	default:
		return ErrWrongState
	}
}

// Cancel aborts a duel that has not started. Only the creator may cancel;
// every player with a stake hold is refunded.
func (s *Session) Cancel(playerID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.creatorID {
		return ErrNotAParticipant
	}
	if s.state != model.DuelStatusWaiting {
		return ErrWrongState
	}
	s.cancelLocked(ReasonCancelled)
	return nil
}

// Abort tears down a Waiting session without settlement, events, or the
// terminal hook. Used when setup fails after registration (for example
// the stake hold could not be placed), before any money moved.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.DuelStatusWaiting {
		return
	}
	s.timer.Stop()
	s.graceTimer.Stop()
	s.state = model.DuelStatusCancelled
	s.endedAt = s.clock.Now()
	s.settled = true
	s.log.Info().Msg("session aborted during setup")
}

// ─── Answers ───────────────────────────────────────────────────────────

// SubmitAnswer validates and records one answer for the current
// question. The whole check-and-record path runs under the session lock,
// so it can never interleave with the timer expiring for the same
// question: whichever side takes the lock first wins, and the loser sees
// an explicit rejection instead of silent corruption.
func (s *Session) SubmitAnswer(playerID int, questionID uuid.UUID, optionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[playerID]; !ok {
		return ErrNotAParticipant
	}
	if s.state != model.DuelStatusInProgress {
		return ErrWrongState
	}

	q := s.questions[s.current]
	now := s.clock.Now()
	v := answerValidator{minAnswer: s.settings.MinAnswer}
	err := v.validate(answerContext{
		currentID:     q.ID,
		questionID:    questionID,
		alreadyDone:   s.answered[s.current][playerID],
		questionStart: s.questionStart,
		window:        time.Duration(q.TimeLimitSec) * time.Second,
		now:           now,
	})

	elapsed := now.Sub(s.questionStart).Milliseconds()

	if err == ErrSuspiciouslyFast {
		// Rejected, but kept in the log with the suspicious flag so the
		// pattern is visible in review. The player may still answer once
		// the floor has passed.
		s.sink.EnqueueAnswer(model.DuelAnswer{
			DuelID:     s.ID,
			PlayerID:   playerID,
			QuestionID: q.ID,
			OptionID:   optionID,
			ElapsedMs:  elapsed,
			Suspicious: true,
			CreatedAt:  now,
		})
		s.log.Warn().
			Int("player_id", playerID).
			Int64("elapsed_ms", elapsed).
			Msg("suspiciously fast answer rejected")
		return err
	}
	if err != nil {
		return err
	}

	correct := q.IsCorrect(optionID)
	if s.answered[s.current] == nil {
		s.answered[s.current] = make(map[int]bool, 2)
	}
	s.answered[s.current][playerID] = true

	s.sink.EnqueueAnswer(model.DuelAnswer{
		DuelID:     s.ID,
		PlayerID:   playerID,
		QuestionID: q.ID,
		OptionID:   optionID,
		ElapsedMs:  elapsed,
		Correct:    correct,
		CreatedAt:  now,
	})

	if correct {
		s.scorer.RecordCorrect(playerID)
	}

	s.broadcastLocked(Event{Type: EventPlayerAnswered, Payload: PlayerAnsweredPayload{
		PlayerID:      playerID,
		QuestionIndex: s.current,
		Correct:       correct,
		ElapsedMs:     elapsed,
	}})

	if len(s.answered[s.current]) == len(s.players) {
		s.timer.Stop()
		s.advanceLocked()
	}
	return nil
}

// ─── Channel ───────────────────────────────────────────────────────────

// Attach subscribes a participant to session events and returns a
// snapshot of the current state so the client can resynchronize. Events
// emitted while the player was detached are flushed first.
func (s *Session) Attach(playerID int, h Handler) (Snapshot, error) {
	s.mu.Lock()
	if _, ok := s.players[playerID]; !ok {
		s.mu.Unlock()
		return Snapshot{}, ErrNotAParticipant
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.channel.Attach(playerID, h)
	return snap, nil
}

// Detach unsubscribes the player. Further events queue until re-attach.
func (s *Session) Detach(playerID int) {
	s.channel.Detach(playerID)
}

// Attached reports whether any player still holds a live event handler.
// The registry keeps attached sessions alive past the disposal grace so
// a client reading the result is never cut off mid-stream.
func (s *Session) Attached() bool {
	return s.channel.Attached()
}

// ─── Settlement ────────────────────────────────────────────────────────

// Settle pays out the computed settlement. It is idempotent: each player
// is credited at most once across any number of retries, and once every
// credit has landed further calls are no-ops. A partial failure leaves
// the already-paid players marked and returns ErrSettlementFailed so the
// retry worker picks the session up again.
func (s *Session) Settle(ctx context.Context) error {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	s.mu.Lock()
	if s.state != model.DuelStatusCompleted && s.state != model.DuelStatusCancelled {
		s.mu.Unlock()
		return ErrWrongState
	}
	if s.settled {
		s.mu.Unlock()
		return nil
	}
	st := *s.settlement
	reason := s.end.Reason
	due := make(map[int]int64, 2)
	for id, amount := range st.Credits {
		if !s.paid[id] {
			due[id] = amount
		}
	}
	s.mu.Unlock()

	ledgerReason := ledgerReasonFor(reason, st.Tie)

	var firstErr error
	for id, amount := range due {
		if amount > 0 {
			if err := s.wallet.Credit(ctx, id, amount, ledgerReason, s.ID); err != nil {
				s.log.Error().Err(err).
					Int("player_id", id).
					Int64("amount", amount).
					Msg("settlement credit failed")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		s.mu.Lock()
		s.paid[id] = true
		s.mu.Unlock()
	}

	if firstErr != nil {
		return fmt.Errorf("%w: %v", ErrSettlementFailed, firstErr)
	}

	s.mu.Lock()
	s.settled = true
	s.mu.Unlock()
	s.log.Info().
		Int64("pot", st.Pot).
		Int64("commission", st.Commission).
		Msg("duel settled")
	return nil
}

// Settled reports whether every payout has landed. The registry refuses
// to dispose of unsettled sessions.
func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

func ledgerReasonFor(endReason string, tie bool) string {
	switch endReason {
	case ReasonTie:
		return model.ReasonTieRefund
	case ReasonDecisive, ReasonForfeit:
		if tie {
			return model.ReasonTieRefund
		}
		return model.ReasonDuelPayout
	case ReasonEngineFault:
		return model.ReasonFaultRefund
	default:
		return model.ReasonCancelRefund
	}
}

// ─── Reads ─────────────────────────────────────────────────────────────

// Status returns the current lifecycle state.
func (s *Session) Status() model.DuelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CreatorID returns the seat of the player who opened the duel.
func (s *Session) CreatorID() int { return s.creatorID }

// PlayerIDs returns the seated players, creator first.
func (s *Session) PlayerIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// PlayerName returns the display name of a seated player.
func (s *Session) PlayerName(playerID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[playerID]; ok {
		return p.name
	}
	return ""
}

// CreatedAt returns when the session was registered.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// HasPlayer reports whether the player is seated in this duel.
func (s *Session) HasPlayer(playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[playerID]
	return ok
}

// View returns a point-in-time snapshot for REST detail endpoints.
func (s *Session) View() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Result returns the final outcome, or ok=false while the duel is live.
func (s *Session) Result() (EndPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end == nil {
		return EndPayload{}, false
	}
	return *s.end, true
}

// StartedAt returns when the duel entered InProgress, zero if it never did.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// EndedAt returns when the duel reached a terminal state.
func (s *Session) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt
}

// ─── Internals (call with s.mu held) ───────────────────────────────────

func (s *Session) allReadyLocked() bool {
	for _, p := range s.players {
		if !p.ready {
			return false
		}
	}
	return true
}

func (s *Session) otherPlayerLocked(playerID int) int {
	for id := range s.players {
		if id != playerID {
			return id
		}
	}
	return playerID
}

func (s *Session) startLocked() {
	if len(s.questions) == 0 {
		s.log.Error().Msg("duel has no questions, force cancelling")
		s.cancelLocked(ReasonEngineFault)
		return
	}

	s.graceTimer.Stop()
	s.state = model.DuelStatusInProgress
	s.startedAt = s.clock.Now()
	s.current = 0

	s.log.Info().Int("questions", len(s.questions)).Msg("duel started")
	s.broadcastLocked(Event{Type: EventDuelStatus, Payload: StatusPayload{
		DuelID: s.ID,
		Status: s.state,
	}})
	s.emitQuestionLocked()

	if s.onStart != nil {
		go s.onStart(s)
	}
}

func (s *Session) emitQuestionLocked() {
	q := s.questions[s.current]
	window := time.Duration(q.TimeLimitSec) * time.Second
	s.questionStart = s.clock.Now()
	s.timer.Arm(s.current, window, s.handleTimeout)

	s.broadcastLocked(Event{Type: EventNewQuestion, Payload: QuestionPayload{
		Index:      s.current,
		Total:      len(s.questions),
		Question:   viewOf(q),
		DeadlineMs: window.Milliseconds(),
	}})
}

// handleTimeout fires from the question timer goroutine. The index guard
// makes late fires harmless: if an answer already advanced the duel, the
// fire targets an index that is no longer current and is dropped.
func (s *Session) handleTimeout(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.DuelStatusInProgress || index != s.current {
		return
	}
	s.log.Debug().Int("question_index", index).Msg("question window expired")
	s.advanceLocked()
}

func (s *Session) handleReadyGrace() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.DuelStatusWaiting {
		return
	}
	s.log.Info().Msg("ready grace elapsed, cancelling abandoned duel")
	s.cancelLocked(ReasonAbandoned)
}

// advanceLocked moves to the next question or finishes the duel. The
// index only ever increments, which is what makes late answers
// detectable as stale.
func (s *Session) advanceLocked() {
	s.current++
	if s.current > len(s.questions) {
		// Should be unreachable. Treat as an engine fault and refund
		// rather than settling on corrupt state.
		s.log.Error().Int("question_index", s.current).Msg("question index overran sequence")
		s.cancelLocked(ReasonEngineFault)
		return
	}
	if s.current == len(s.questions) {
		winner, tie := s.scorer.Leader()
		if tie {
			s.completeLocked(nil, ReasonTie)
		} else {
			s.completeLocked(&winner, ReasonDecisive)
		}
		return
	}
	s.emitQuestionLocked()
}

func (s *Session) completeLocked(winnerID *int, reason string) {
	s.timer.Stop()
	s.graceTimer.Stop()

	ids := s.order
	var st Settlement
	if len(ids) == 2 {
		st = CalculateSettlement(s.Stake, s.settings.CommissionRate, ids[0], ids[1], winnerID)
	} else {
		st = RefundSettlement(s.Stake, ids...)
	}

	// A forfeit ends the duel as CANCELLED even though the settlement is
	// decisive: the duel never ran to completion, the opponent just wins
	// the pot.
	if reason == ReasonForfeit {
		s.state = model.DuelStatusCancelled
	} else {
		s.state = model.DuelStatusCompleted
	}
	s.endedAt = s.clock.Now()
	s.settlement = &st
	s.end = &EndPayload{
		DuelID:     s.ID,
		WinnerID:   winnerID,
		Tie:        winnerID == nil,
		Reason:     reason,
		Scores:     s.scorer.Snapshot(),
		Earnings:   st.Earnings,
		Commission: st.Commission,
	}

	s.log.Info().
		Str("reason", reason).
		Str("status", string(s.state)).
		Int64("commission", st.Commission).
		Msg("duel ended")

	s.broadcastLocked(Event{Type: EventDuelStatus, Payload: StatusPayload{
		DuelID: s.ID,
		Status: s.state,
		Reason: reason,
	}})
	s.broadcastLocked(Event{Type: EventDuelEnd, Payload: *s.end})

	if s.onTerminal != nil {
		go s.onTerminal(s)
	}
}

func (s *Session) cancelLocked(reason string) {
	s.timer.Stop()
	s.graceTimer.Stop()

	st := RefundSettlement(s.Stake, s.order...)
	s.state = model.DuelStatusCancelled
	s.endedAt = s.clock.Now()
	s.settlement = &st
	s.end = &EndPayload{
		DuelID:   s.ID,
		Tie:      true,
		Reason:   reason,
		Scores:   s.scorer.Snapshot(),
		Earnings: st.Earnings,
	}

	s.log.Info().Str("reason", reason).Msg("duel cancelled")

	s.broadcastLocked(Event{Type: EventDuelStatus, Payload: StatusPayload{
		DuelID: s.ID,
		Status: s.state,
		Reason: reason,
	}})
	s.broadcastLocked(Event{Type: EventDuelEnd, Payload: *s.end})

	if s.onTerminal != nil {
		go s.onTerminal(s)
	}
}

func (s *Session) broadcastLocked(ev Event) {
	s.channel.Broadcast(s.order, ev)
}

func (s *Session) snapshotLocked() Snapshot {
	players := make([]PlayerStatusPayload, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]
		status := "joined"
		if p.ready {
			status = "ready"
		}
		players = append(players, PlayerStatusPayload{
			PlayerID:  p.id,
			Status:    status,
			Connected: p.connected,
			Away:      p.away,
		})
	}

	snap := Snapshot{
		DuelID:        s.ID,
		Status:        s.state,
		Stake:         s.Stake,
		Category:      s.Category,
		Players:       players,
		QuestionIndex: s.current,
		Scores:        s.scorer.Snapshot(),
		End:           s.end,
		At:            s.clock.Now(),
	}
	if s.state == model.DuelStatusInProgress && s.current < len(s.questions) {
		v := viewOf(s.questions[s.current])
		snap.Question = &v
		snap.RemainingMs = s.timer.Remaining().Milliseconds()
	}
	return snap
}
