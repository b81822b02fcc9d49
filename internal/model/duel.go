package model

import (
	"time"

	"github.com/google/uuid"
)

// DuelStatus enumerates duel lifecycle states.
type DuelStatus string

const (
	DuelStatusWaiting    DuelStatus = "WAITING"
	DuelStatusInProgress DuelStatus = "IN_PROGRESS"
	DuelStatusCompleted  DuelStatus = "COMPLETED"
	DuelStatusCancelled  DuelStatus = "CANCELLED"
)

// Duel is the durable record of a head-to-head quiz duel.
// Live state belongs to the session engine; this row is the source of
// truth only once the duel reaches a terminal status.
type Duel struct {
	ID         uuid.UUID  `json:"id"`
	CreatorID  int        `json:"creator_id"`
	OpponentID *int       `json:"opponent_id,omitempty"`
	Stake      int64      `json:"stake"`
	Category   string     `json:"category"`
	Status     DuelStatus `json:"status"`
	WinnerID   *int       `json:"winner_id,omitempty"`
	Commission int64      `json:"commission"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// DuelAnswer is one row of the append-only answers log.
// The (duel_id, player_id, question_id, suspicious) key is unique: the
// engine rejects duplicates, but a rejected too-fast attempt and the
// accepted retry for the same question are both kept.
type DuelAnswer struct {
	DuelID     uuid.UUID `json:"duel_id"`
	PlayerID   int       `json:"player_id"`
	QuestionID uuid.UUID `json:"question_id"`
	OptionID   int       `json:"option_id"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	Correct    bool      `json:"correct"`
	Suspicious bool      `json:"suspicious"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateDuelRequest is the payload for opening a new duel.
type CreateDuelRequest struct {
	Stake    int64  `json:"stake" binding:"required,gt=0"`
	Category string `json:"category" binding:"required,min=2,max=32"`
}
