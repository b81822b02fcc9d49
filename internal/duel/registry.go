package duel

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/rs/zerolog"
)

// Registry owns every live session. Lookups take a read lock only;
// per-duel work happens under each session's own mutex, never here.
type Registry struct {
	clock        clockwork.Clock
	log          zerolog.Logger
	disposeGrace time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byPlayer map[int]uuid.UUID

	// onTerminal is the application hook run when a session finishes,
	// before the registry schedules disposal.
	onTerminal func(*Session)
}

// NewRegistry creates an empty registry. disposeGrace is how long a
// settled session lingers so late clients can still fetch the result.
func NewRegistry(clock clockwork.Clock, log zerolog.Logger, disposeGrace time.Duration) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clock:        clock,
		log:          log.With().Str("component", "duel_registry").Logger(),
		disposeGrace: disposeGrace,
		sessions:     make(map[uuid.UUID]*Session),
		byPlayer:     make(map[int]uuid.UUID),
	}
}

// SetOnTerminal installs the hook invoked when any session reaches a
// terminal state. Must be called before the first Create.
func (r *Registry) SetOnTerminal(fn func(*Session)) {
	r.onTerminal = fn
}

// Create registers a new session for the creator. A player can belong to
// at most one live session at a time; a second create or join attempt is
// rejected before any state is touched.
func (r *Registry) Create(cfg SessionConfig) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byPlayer[cfg.CreatorID]; busy {
		return nil, ErrDuplicateSession
	}

	cfg.OnTerminal = r.handleTerminal
	s := NewSession(cfg)
	r.sessions[s.ID] = s
	r.byPlayer[cfg.CreatorID] = s.ID

	r.log.Info().
		Str("duel_id", s.ID.String()).
		Int("creator_id", cfg.CreatorID).
		Int64("stake", cfg.Stake).
		Msg("session registered")
	return s, nil
}

// Join seats a player in an existing session, enforcing the one-live-
// session-per-player rule across the whole registry.
func (r *Registry) Join(duelID uuid.UUID, playerID int, name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[duelID]
	if !ok {
		return nil, ErrNotFound
	}
	if _, busy := r.byPlayer[playerID]; busy {
		return nil, ErrDuplicateSession
	}

	if err := s.Join(playerID, name); err != nil {
		return nil, err
	}
	r.byPlayer[playerID] = duelID
	return s, nil
}

// Get returns the live session or ErrNotFound.
func (r *Registry) Get(duelID uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[duelID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// ForPlayer returns the session the player is currently seated in.
func (r *Registry) ForPlayer(playerID int) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Waiting lists open sessions for the lobby, newest last.
func (r *Registry) Waiting() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0)
	for _, s := range r.sessions {
		if s.Status() == model.DuelStatusWaiting {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of live sessions. Exposed for monitoring.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// handleTerminal runs in its own goroutine when a session finishes. It
// frees the players' seats immediately so they can start a fresh duel,
// forwards to the application hook (persistence and settlement), then
// schedules disposal of the session object itself.
func (r *Registry) handleTerminal(s *Session) {
	r.mu.Lock()
	for _, id := range s.PlayerIDs() {
		if r.byPlayer[id] == s.ID {
			delete(r.byPlayer, id)
		}
	}
	r.mu.Unlock()

	if r.onTerminal != nil {
		r.onTerminal(s)
	}
	r.scheduleDisposal(s)
}

// scheduleDisposal removes the session after the grace window, but only
// once settlement has confirmed and every player has detached. An
// unsettled session is re-checked a grace period later rather than
// dropped, so payout retries always find it in the registry; a still-
// attached session likewise lingers so connected clients are never cut
// off mid-stream.
func (r *Registry) scheduleDisposal(s *Session) {
	r.clock.AfterFunc(r.disposeGrace, func() {
		if !s.Settled() {
			r.log.Warn().
				Str("duel_id", s.ID.String()).
				Msg("session unsettled at dispose time, rescheduling")
			r.scheduleDisposal(s)
			return
		}
		if s.Attached() {
			r.log.Debug().
				Str("duel_id", s.ID.String()).
				Msg("players still attached at dispose time, rescheduling")
			r.scheduleDisposal(s)
			return
		}
		r.dispose(s)
	})
}

func (r *Registry) dispose(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[s.ID]; !ok || cur != s {
		return
	}
	delete(r.sessions, s.ID)
	for _, id := range s.PlayerIDs() {
		if r.byPlayer[id] == s.ID {
			delete(r.byPlayer, id)
		}
	}
	r.log.Info().Str("duel_id", s.ID.String()).Msg("session disposed")
}

// Abort removes a session whose setup failed before it ever got going.
// The session is torn down without settlement and dropped immediately.
func (r *Registry) Abort(duelID uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[duelID]
	r.mu.Unlock()
	if !ok {
		return
	}
	s.Abort()
	r.dispose(s)
}
