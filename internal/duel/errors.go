package duel

import "errors"

// Sentinel errors returned by the session engine. Handlers map these to
// API error codes; the engine itself never formats user-facing messages.
var (
	// ErrDuplicateSession is returned when a player who already belongs to
	// a live session tries to create or join another one.
	ErrDuplicateSession = errors.New("player already has an active duel session")

	// ErrNotFound is returned when no live session exists for the given ID.
	ErrNotFound = errors.New("duel session not found")

	// ErrNotAParticipant is returned when a player interacts with a session
	// they are not part of.
	ErrNotAParticipant = errors.New("player is not a participant of this duel")

	// ErrSessionFull is returned on a join attempt against a session that
	// already has two players.
	ErrSessionFull = errors.New("duel already has two players")

	// ErrWrongState is returned when an operation is not valid in the
	// session's current lifecycle state.
	ErrWrongState = errors.New("operation not valid in current duel state")

	// ErrStaleQuestion is returned when an answer targets a question that
	// is no longer the current one.
	ErrStaleQuestion = errors.New("answer targets a question that is no longer current")

	// ErrDuplicateAnswer is returned when a player answers the same
	// question twice.
	ErrDuplicateAnswer = errors.New("player already answered this question")

	// ErrSuspiciouslyFast is returned when an answer arrives faster than
	// the plausibility floor. The submission is rejected but still logged
	// with the suspicious flag set for later review.
	ErrSuspiciouslyFast = errors.New("answer arrived implausibly fast")

	// ErrWindowExpired is returned when an answer arrives after the
	// question's time window has closed.
	ErrWindowExpired = errors.New("answer window has expired")

	// ErrSettlementFailed wraps wallet errors encountered while paying out
	// a finished duel. The session stays alive until a retry succeeds.
	ErrSettlementFailed = errors.New("duel settlement failed")
)
