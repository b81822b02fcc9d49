package duel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type registryFixture struct {
	r      *Registry
	clock  *clockwork.FakeClock
	wallet *fakeWallet
	sink   *fakeSink
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return &registryFixture{
		r:      NewRegistry(clock, zerolog.Nop(), 30*time.Second),
		clock:  clock,
		wallet: &fakeWallet{},
		sink:   &fakeSink{},
	}
}

func (f *registryFixture) sessionConfig(creatorID int) SessionConfig {
	return SessionConfig{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		CreatorName: "budi",
		Stake:       testStake,
		Category:    "umum",
		Questions:   testQuestions(2),
		Settings:    testSettings(),
		Clock:       f.clock,
		Wallet:      f.wallet,
		Sink:        f.sink,
		Logger:      zerolog.Nop(),
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	f := newRegistryFixture(t)

	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)

	got, err := f.r.Get(s.ID)
	require.NoError(t, err)
	require.Same(t, s, got)

	byPlayer, err := f.r.ForPlayer(creatorID)
	require.NoError(t, err)
	require.Same(t, s, byPlayer)

	_, err = f.r.Get(uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_OneLiveSessionPerPlayer(t *testing.T) {
	f := newRegistryFixture(t)

	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)

	_, err = f.r.Create(f.sessionConfig(creatorID))
	require.ErrorIs(t, err, ErrDuplicateSession, "creator cannot open a second duel")

	other, err := f.r.Create(f.sessionConfig(opponentID))
	require.NoError(t, err)

	_, err = f.r.Join(s.ID, opponentID, "siti")
	require.ErrorIs(t, err, ErrDuplicateSession, "player seated elsewhere cannot join")

	_, err = f.r.Join(other.ID, opponentID, "siti")
	require.ErrorIs(t, err, ErrDuplicateSession, "creator cannot join their own duel")
}

func TestRegistry_JoinSeatsOpponent(t *testing.T) {
	f := newRegistryFixture(t)

	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)

	joined, err := f.r.Join(s.ID, opponentID, "siti")
	require.NoError(t, err)
	require.Same(t, s, joined)
	require.Equal(t, []int{creatorID, opponentID}, s.PlayerIDs())

	_, err = f.r.Join(uuid.New(), 3, "joko")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.r.Join(s.ID, 3, "joko")
	require.ErrorIs(t, err, ErrSessionFull)
}

func TestRegistry_WaitingLobby(t *testing.T) {
	f := newRegistryFixture(t)

	s1, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)
	_, err = f.r.Create(f.sessionConfig(opponentID))
	require.NoError(t, err)

	require.Len(t, f.r.Waiting(), 2)

	// Start the first duel; it leaves the lobby.
	_, err = f.r.Join(s1.ID, 3, "joko")
	require.NoError(t, err)
	require.NoError(t, s1.SetReady(creatorID))
	require.NoError(t, s1.SetReady(3))

	require.Len(t, f.r.Waiting(), 1)
}

func TestRegistry_TerminalFreesSeatsImmediately(t *testing.T) {
	f := newRegistryFixture(t)

	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)
	_, err = f.r.Join(s.ID, opponentID, "siti")
	require.NoError(t, err)

	require.NoError(t, s.Cancel(creatorID))

	// Seats free up as soon as the terminal hook runs, even though the
	// session object lingers for late result reads.
	require.Eventually(t, func() bool {
		_, err := f.r.ForPlayer(creatorID)
		return err == ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)

	_, err = f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err, "player can open a new duel right after the old one ends")

	_, err = f.r.Get(s.ID)
	require.NoError(t, err, "finished session still readable before disposal")
}

func TestRegistry_DisposesSettledSessionAfterGrace(t *testing.T) {
	f := newRegistryFixture(t)

	var terminal atomic.Int32
	f.r.SetOnTerminal(func(s *Session) {
		terminal.Add(1)
		require.NoError(t, s.Settle(context.Background()))
	})

	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)
	require.NoError(t, s.Cancel(creatorID))

	require.Eventually(t, func() bool {
		return terminal.Load() == 1 && s.Settled()
	}, 2*time.Second, 10*time.Millisecond)

	// Let the disposal timer get armed before advancing past it.
	time.Sleep(50 * time.Millisecond)
	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		_, err := f.r.Get(s.ID)
		return err == ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, f.r.Len())
}

func TestRegistry_UnsettledSessionIsNotDisposed(t *testing.T) {
	f := newRegistryFixture(t)

	// No settlement runs at all: the session must survive disposal.
	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)
	require.NoError(t, s.Cancel(creatorID))

	// Give the terminal hook time to schedule disposal, then run well
	// past the grace window.
	require.Eventually(t, func() bool {
		_, err := f.r.ForPlayer(creatorID)
		return err == ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		f.clock.Advance(30 * time.Second)
		time.Sleep(20 * time.Millisecond)
	}

	_, err = f.r.Get(s.ID)
	require.NoError(t, err, "unsettled session stays in the registry")

	// Once settled, the next grace tick removes it.
	require.NoError(t, s.Settle(context.Background()))
	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		_, err := f.r.Get(s.ID)
		return err == ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistry_AttachedSessionDisposalDeferred(t *testing.T) {
	f := newRegistryFixture(t)
	f.r.SetOnTerminal(func(s *Session) {
		require.NoError(t, s.Settle(context.Background()))
	})

	s, err := f.r.Create(f.sessionConfig(creatorID))
	require.NoError(t, err)

	// The creator stays attached, reading the result screen.
	_, err = s.Attach(creatorID, func(Event) {})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(creatorID))
	require.Eventually(t, func() bool { return s.Settled() }, 2*time.Second, 10*time.Millisecond)

	// Settled but still attached: grace ticks must not drop the session.
	for i := 0; i < 3; i++ {
		time.Sleep(20 * time.Millisecond)
		f.clock.Advance(30 * time.Second)
	}
	_, err = f.r.Get(s.ID)
	require.NoError(t, err, "attached session survives disposal ticks")

	// Detach, and the next grace tick removes it.
	s.Detach(creatorID)
	time.Sleep(20 * time.Millisecond)
	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		_, err := f.r.Get(s.ID)
		return err == ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)
}
