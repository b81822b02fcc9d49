package duel

import (
	"time"

	"github.com/google/uuid"
	"github.com/kuisduel/kuisduel-backend/internal/model"
)

// EventType identifies a session event pushed to connected players.
type EventType string

const (
	// EventDuelStatus announces a lifecycle transition (started, completed,
	// cancelled).
	EventDuelStatus EventType = "duel_status"
	// EventNewQuestion carries the next question and its answer deadline.
	EventNewQuestion EventType = "new_question"
	// EventPlayerStatus announces a player joining, readying up, or
	// changing connection state.
	EventPlayerStatus EventType = "player_status"
	// EventPlayerAnswered tells the opponent that the other player has
	// locked in an answer for the current question.
	EventPlayerAnswered EventType = "player_answered"
	// EventDuelEnd carries the final outcome and settlement figures.
	EventDuelEnd EventType = "duel_end"
)

// Event is a single typed message emitted by a session.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// StatusPayload is the body of a duel_status event.
type StatusPayload struct {
	DuelID uuid.UUID        `json:"duel_id"`
	Status model.DuelStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// QuestionView is a question as shown to players. The answer key is
// stripped before the question ever leaves the engine.
type QuestionView struct {
	ID           uuid.UUID `json:"id"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	TimeLimitSec int       `json:"time_limit_sec"`
}

// QuestionPayload is the body of a new_question event.
type QuestionPayload struct {
	Index      int          `json:"index"`
	Total      int          `json:"total"`
	Question   QuestionView `json:"question"`
	DeadlineMs int64        `json:"deadline_ms"`
}

// PlayerStatusPayload is the body of a player_status event.
type PlayerStatusPayload struct {
	PlayerID  int    `json:"player_id"`
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
	Away      bool   `json:"away,omitempty"`
}

// PlayerAnsweredPayload is the body of a player_answered event. It never
// reveals which option was chosen.
type PlayerAnsweredPayload struct {
	PlayerID      int   `json:"player_id"`
	QuestionIndex int   `json:"question_index"`
	Correct       bool  `json:"correct"`
	ElapsedMs     int64 `json:"elapsed_ms"`
}

// EndPayload is the body of a duel_end event.
type EndPayload struct {
	DuelID     uuid.UUID     `json:"duel_id"`
	WinnerID   *int          `json:"winner_id,omitempty"`
	Tie        bool          `json:"tie"`
	Reason     string        `json:"reason"`
	Scores     map[int]int   `json:"scores"`
	Earnings   map[int]int64 `json:"earnings"`
	Commission int64         `json:"commission"`
}

// Snapshot is the full session view handed to a player when they attach
// (or re-attach) to the event channel, so a reconnecting client can
// resynchronize without replaying history.
type Snapshot struct {
	DuelID        uuid.UUID             `json:"duel_id"`
	Status        model.DuelStatus      `json:"status"`
	Stake         int64                 `json:"stake"`
	Category      string                `json:"category"`
	Players       []PlayerStatusPayload `json:"players"`
	QuestionIndex int                   `json:"question_index"`
	Question      *QuestionView         `json:"question,omitempty"`
	RemainingMs   int64                 `json:"remaining_ms"`
	Scores        map[int]int           `json:"scores"`
	End           *EndPayload           `json:"end,omitempty"`
	At            time.Time             `json:"at"`
}

func viewOf(q model.Question) QuestionView {
	return QuestionView{
		ID:           q.ID,
		Text:         q.Text,
		Options:      q.Options,
		TimeLimitSec: q.TimeLimitSec,
	}
}
