package duel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ─── Test doubles ──────────────────────────────────────────────────────

type fakeSink struct {
	mu      sync.Mutex
	answers []model.DuelAnswer
}

func (f *fakeSink) EnqueueAnswer(a model.DuelAnswer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, a)
}

func (f *fakeSink) all() []model.DuelAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.DuelAnswer, len(f.answers))
	copy(out, f.answers)
	return out
}

type walletCredit struct {
	playerID int
	amount   int64
	reason   string
}

type fakeWallet struct {
	mu       sync.Mutex
	credits  []walletCredit
	failures map[int]int // playerID -> remaining forced failures
}

func (f *fakeWallet) Credit(_ context.Context, playerID int, amount int64, reason string, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[playerID] > 0 {
		f.failures[playerID]--
		return fmt.Errorf("wallet unavailable")
	}
	f.credits = append(f.credits, walletCredit{playerID: playerID, amount: amount, reason: reason})
	return nil
}

func (f *fakeWallet) creditsFor(playerID int) []walletCredit {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []walletCredit
	for _, c := range f.credits {
		if c.playerID == playerID {
			out = append(out, c)
		}
	}
	return out
}

type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) handler() Handler {
	return func(ev Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, ev)
	}
}

func (c *eventCollector) ofType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// ─── Helpers ───────────────────────────────────────────────────────────

const (
	creatorID  = 1
	opponentID = 2
	testStake  = 5000
)

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:            uuid.New(),
			Category:      "umum",
			Text:          fmt.Sprintf("question %d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 0,
			TimeLimitSec:  10,
		}
	}
	return qs
}

func testSettings() Settings {
	return Settings{
		CommissionRate: decimal.RequireFromString("0.10"),
		MinAnswer:      300 * time.Millisecond,
		ReadyGrace:     time.Hour,
	}
}

type sessionFixture struct {
	s      *Session
	clock  *clockwork.FakeClock
	wallet *fakeWallet
	sink   *fakeSink
}

func newFixture(t *testing.T, questions int) *sessionFixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	wallet := &fakeWallet{}
	sink := &fakeSink{}

	s := NewSession(SessionConfig{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		CreatorName: "budi",
		Stake:       testStake,
		Category:    "umum",
		Questions:   testQuestions(questions),
		Settings:    testSettings(),
		Clock:       clock,
		Wallet:      wallet,
		Sink:        sink,
		Logger:      zerolog.Nop(),
	})
	return &sessionFixture{s: s, clock: clock, wallet: wallet, sink: sink}
}

// startDuel seats the opponent and readies both players.
func (f *sessionFixture) startDuel(t *testing.T) {
	t.Helper()
	require.NoError(t, f.s.Join(opponentID, "siti"))
	require.NoError(t, f.s.SetReady(creatorID))
	require.NoError(t, f.s.SetReady(opponentID))
	require.Equal(t, model.DuelStatusInProgress, f.s.Status())
}

// answer advances the fake clock past the plausibility floor and submits.
func (f *sessionFixture) answer(t *testing.T, playerID, optionID int) error {
	t.Helper()
	f.clock.Advance(time.Second)
	snap := f.s.View()
	require.NotNil(t, snap.Question)
	return f.s.SubmitAnswer(playerID, snap.Question.ID, optionID)
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

func TestSession_StartsOnlyWhenBothReady(t *testing.T) {
	f := newFixture(t, 2)

	require.NoError(t, f.s.SetReady(creatorID))
	require.Equal(t, model.DuelStatusWaiting, f.s.Status(), "duel needs two players")

	require.NoError(t, f.s.Join(opponentID, "siti"))
	require.Equal(t, model.DuelStatusWaiting, f.s.Status(), "opponent not ready yet")

	require.NoError(t, f.s.SetReady(opponentID))
	require.Equal(t, model.DuelStatusInProgress, f.s.Status())
	require.False(t, f.s.StartedAt().IsZero())
}

func TestSession_ThirdJoinRejected(t *testing.T) {
	f := newFixture(t, 2)

	require.NoError(t, f.s.Join(opponentID, "siti"))
	require.ErrorIs(t, f.s.Join(3, "joko"), ErrSessionFull)
}

func TestSession_CreatorCannotJoinOwnDuel(t *testing.T) {
	f := newFixture(t, 2)

	require.ErrorIs(t, f.s.Join(creatorID, "budi"), ErrDuplicateSession)
}

func TestSession_JoinAfterStartRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	require.ErrorIs(t, f.s.Join(3, "joko"), ErrWrongState)
}

func TestSession_NonParticipantRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	snap := f.s.View()
	require.ErrorIs(t, f.s.SubmitAnswer(99, snap.Question.ID, 0), ErrNotAParticipant)
	require.ErrorIs(t, f.s.SetReady(99), ErrNotAParticipant)
	require.ErrorIs(t, f.s.Forfeit(99), ErrNotAParticipant)

	_, err := f.s.Attach(99, func(Event) {})
	require.ErrorIs(t, err, ErrNotAParticipant)
}

func TestSession_AbandonedDuelCancelsAfterGrace(t *testing.T) {
	f := newFixture(t, 2)

	f.clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		return f.s.Status() == model.DuelStatusCancelled
	}, 2*time.Second, 10*time.Millisecond)

	end, ok := f.s.Result()
	require.True(t, ok)
	require.Equal(t, ReasonAbandoned, end.Reason)

	require.NoError(t, f.s.Settle(context.Background()))
	credits := f.wallet.creditsFor(creatorID)
	require.Len(t, credits, 1)
	require.Equal(t, int64(testStake), credits[0].amount)
	require.Equal(t, model.ReasonCancelRefund, credits[0].reason)
}

func TestSession_CancelBeforeStartRefundsBothHolds(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.s.Join(opponentID, "siti"))

	require.ErrorIs(t, f.s.Cancel(opponentID), ErrNotAParticipant, "only the creator cancels")
	require.NoError(t, f.s.Cancel(creatorID))
	require.Equal(t, model.DuelStatusCancelled, f.s.Status())

	require.NoError(t, f.s.Settle(context.Background()))
	require.Len(t, f.wallet.creditsFor(creatorID), 1)
	require.Len(t, f.wallet.creditsFor(opponentID), 1)
}

func TestSession_CancelAfterStartRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	require.ErrorIs(t, f.s.Cancel(creatorID), ErrWrongState)
}

// ─── Answers ───────────────────────────────────────────────────────────

func TestSession_DecisiveDuel(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	// Creator answers correctly both rounds, opponent misses both.
	require.NoError(t, f.answer(t, creatorID, 0))
	require.NoError(t, f.answer(t, opponentID, 1))
	require.NoError(t, f.answer(t, creatorID, 0))
	require.NoError(t, f.answer(t, opponentID, 1))

	require.Equal(t, model.DuelStatusCompleted, f.s.Status())

	end, ok := f.s.Result()
	require.True(t, ok)
	require.Equal(t, ReasonDecisive, end.Reason)
	require.NotNil(t, end.WinnerID)
	require.Equal(t, creatorID, *end.WinnerID)
	require.Equal(t, int64(1000), end.Commission)
	require.Equal(t, int64(9000), end.Earnings[creatorID])
	require.Equal(t, int64(-5000), end.Earnings[opponentID])
	require.Equal(t, map[int]int{creatorID: 2, opponentID: 0}, end.Scores)
}

func TestSession_TieRefundsBothStakes(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.answer(t, creatorID, 0))
		require.NoError(t, f.answer(t, opponentID, 0))
	}

	end, ok := f.s.Result()
	require.True(t, ok)
	require.True(t, end.Tie)
	require.Nil(t, end.WinnerID)
	require.Equal(t, int64(0), end.Commission)

	require.NoError(t, f.s.Settle(context.Background()))
	for _, id := range []int{creatorID, opponentID} {
		credits := f.wallet.creditsFor(id)
		require.Len(t, credits, 1)
		require.Equal(t, int64(testStake), credits[0].amount)
		require.Equal(t, model.ReasonTieRefund, credits[0].reason)
	}
}

func TestSession_BothAnsweredAdvancesImmediately(t *testing.T) {
	f := newFixture(t, 3)
	f.startDuel(t)

	require.Equal(t, 0, f.s.View().QuestionIndex)
	require.NoError(t, f.answer(t, creatorID, 0))
	require.Equal(t, 0, f.s.View().QuestionIndex, "one answer is not enough")
	require.NoError(t, f.answer(t, opponentID, 2))
	require.Equal(t, 1, f.s.View().QuestionIndex)
}

func TestSession_DuplicateAnswerRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	snap := f.s.View()
	f.clock.Advance(time.Second)
	require.NoError(t, f.s.SubmitAnswer(creatorID, snap.Question.ID, 0))
	require.ErrorIs(t, f.s.SubmitAnswer(creatorID, snap.Question.ID, 1), ErrDuplicateAnswer)

	require.Len(t, f.sink.all(), 1, "rejected duplicate is not logged")
}

func TestSession_SuspiciouslyFastRejectedButLogged(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	snap := f.s.View()
	require.ErrorIs(t, f.s.SubmitAnswer(creatorID, snap.Question.ID, 0), ErrSuspiciouslyFast)

	logged := f.sink.all()
	require.Len(t, logged, 1)
	require.True(t, logged[0].Suspicious)
	require.Equal(t, creatorID, logged[0].PlayerID)

	// The same player may still answer once the floor has passed.
	f.clock.Advance(time.Second)
	require.NoError(t, f.s.SubmitAnswer(creatorID, snap.Question.ID, 0))
	require.Equal(t, 1, f.s.View().Scores[creatorID])
}

func TestSession_TimeoutAdvancesAndLateAnswerIsStale(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	first := f.s.View().Question.ID
	f.clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool {
		return f.s.View().QuestionIndex == 1
	}, 2*time.Second, 10*time.Millisecond, "timeout advances the question")

	err := f.s.SubmitAnswer(creatorID, first, 0)
	require.ErrorIs(t, err, ErrStaleQuestion)
	require.Equal(t, 0, f.s.View().Scores[creatorID])
}

func TestSession_SimultaneousFinalAnswersResolveOnce(t *testing.T) {
	f := newFixture(t, 1)

	f.startDuel(t)

	var colCreator, colOpponent eventCollector
	_, err := f.s.Attach(creatorID, colCreator.handler())
	require.NoError(t, err)
	_, err = f.s.Attach(opponentID, colOpponent.handler())
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	questionID := f.s.View().Question.ID

	// Both players lock in the final answer at the same instant. The
	// session lock serializes them: both must be accepted and scored,
	// and the duel must resolve exactly once.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int{creatorID, opponentID} {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			errs[i] = f.s.SubmitAnswer(id, questionID, 0)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, model.DuelStatusCompleted, f.s.Status())

	end, ok := f.s.Result()
	require.True(t, ok)
	require.True(t, end.Tie)
	require.Equal(t, map[int]int{creatorID: 1, opponentID: 1}, end.Scores)

	require.Len(t, colCreator.ofType(EventDuelEnd), 1, "exactly one end event per player")
	require.Len(t, colOpponent.ofType(EventDuelEnd), 1)
}

func TestSession_LateAnswerAfterWindowRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	questionID := f.s.View().Question.ID
	f.clock.Advance(11 * time.Second)

	// The submission races the expiry fire for the session lock. If the
	// submission wins, the validator reports the window as expired; if
	// the timer already advanced, the answer is stale. Either way it is
	// rejected, unscored, and kept out of the log.
	err := f.s.SubmitAnswer(creatorID, questionID, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrWindowExpired) || errors.Is(err, ErrStaleQuestion), "got %v", err)
	require.Equal(t, 0, f.s.View().Scores[creatorID])
	require.Empty(t, f.sink.all())
}

func TestSession_AllTimeoutsEndInTie(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	f.clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool {
		return f.s.View().QuestionIndex == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool {
		return f.s.Status() == model.DuelStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	end, _ := f.s.Result()
	require.True(t, end.Tie)
}

func TestSession_ForfeitMakesOpponentWinner(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	require.NoError(t, f.s.Forfeit(opponentID))
	require.Equal(t, model.DuelStatusCancelled, f.s.Status(), "a forfeited duel never completes, it cancels")

	end, _ := f.s.Result()
	require.Equal(t, ReasonForfeit, end.Reason)
	require.Equal(t, creatorID, *end.WinnerID)
	require.Equal(t, int64(1000), end.Commission, "forfeit settles like a decisive result")
}

func TestSession_ForfeitBeforeStartCancels(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.s.Join(opponentID, "siti"))

	require.NoError(t, f.s.Forfeit(opponentID))
	require.Equal(t, model.DuelStatusCancelled, f.s.Status())
}

// ─── Settlement ────────────────────────────────────────────────────────

func TestSession_SettleBeforeTerminalRejected(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	require.ErrorIs(t, f.s.Settle(context.Background()), ErrWrongState)
}

func TestSession_SettlePaysWinnerOnce(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)
	require.NoError(t, f.s.Forfeit(opponentID))

	require.NoError(t, f.s.Settle(context.Background()))
	require.NoError(t, f.s.Settle(context.Background()), "second settle is a no-op")
	require.True(t, f.s.Settled())

	credits := f.wallet.creditsFor(creatorID)
	require.Len(t, credits, 1)
	require.Equal(t, int64(9000), credits[0].amount)
	require.Equal(t, model.ReasonDuelPayout, credits[0].reason)
	require.Empty(t, f.wallet.creditsFor(opponentID), "loser receives nothing")
}

func TestSession_SettleRetryNeverDoublePays(t *testing.T) {
	f := newFixture(t, 2)
	f.wallet.failures = map[int]int{opponentID: 1}
	f.startDuel(t)

	// Tie, so both players are owed a refund.
	for i := 0; i < 2; i++ {
		require.NoError(t, f.answer(t, creatorID, 0))
		require.NoError(t, f.answer(t, opponentID, 0))
	}

	err := f.s.Settle(context.Background())
	require.ErrorIs(t, err, ErrSettlementFailed)
	require.False(t, f.s.Settled())

	require.NoError(t, f.s.Settle(context.Background()))
	require.True(t, f.s.Settled())

	require.Len(t, f.wallet.creditsFor(creatorID), 1, "already-paid player is not credited again")
	require.Len(t, f.wallet.creditsFor(opponentID), 1)
}

// ─── Channel and snapshots ─────────────────────────────────────────────

func TestSession_AttachDeliversSnapshotAndEvents(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)
	f.clock.Advance(3 * time.Second)

	var col eventCollector
	snap, err := f.s.Attach(opponentID, col.handler())
	require.NoError(t, err)

	require.Equal(t, model.DuelStatusInProgress, snap.Status)
	require.NotNil(t, snap.Question)
	require.Equal(t, int64(7000), snap.RemainingMs, "snapshot carries the live deadline")
	require.Len(t, snap.Players, 2)

	require.NoError(t, f.answer(t, creatorID, 0))
	answered := col.ofType(EventPlayerAnswered)
	require.Len(t, answered, 1)
}

func TestSession_DetachedEventsFlushOnReattach(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	// Opponent is offline while the creator answers.
	require.NoError(t, f.answer(t, creatorID, 0))

	var col eventCollector
	_, err := f.s.Attach(opponentID, col.handler())
	require.NoError(t, err)

	require.NotEmpty(t, col.ofType(EventPlayerAnswered), "backlog replayed on attach")
}

func TestSession_EndEventCarriesSettlement(t *testing.T) {
	f := newFixture(t, 2)

	var col eventCollector
	_, err := f.s.Attach(creatorID, col.handler())
	require.NoError(t, err)

	f.startDuel(t)
	require.NoError(t, f.s.Forfeit(opponentID))

	ends := col.ofType(EventDuelEnd)
	require.Len(t, ends, 1)
	payload, ok := ends[0].Payload.(EndPayload)
	require.True(t, ok)
	require.Equal(t, int64(9000), payload.Earnings[creatorID])
}

func TestSession_AwayFlagBroadcastAndClearedOnReconnect(t *testing.T) {
	f := newFixture(t, 2)
	f.startDuel(t)

	var col eventCollector
	_, err := f.s.Attach(creatorID, col.handler())
	require.NoError(t, err)

	require.NoError(t, f.s.SetAway(opponentID, true))
	statuses := col.ofType(EventPlayerStatus)
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1].Payload.(PlayerStatusPayload)
	require.Equal(t, "away", last.Status)
	require.True(t, last.Away)

	for _, p := range f.s.View().Players {
		if p.PlayerID == opponentID {
			require.True(t, p.Away)
		}
	}

	// Reconnecting clears the away flag.
	require.NoError(t, f.s.SetConnected(opponentID, true))
	for _, p := range f.s.View().Players {
		require.False(t, p.Away)
	}

	require.ErrorIs(t, f.s.SetAway(99, true), ErrNotAParticipant)
}
