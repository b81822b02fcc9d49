package model

import (
	"github.com/google/uuid"
)

// Question is a single quiz question drawn from the bank.
// CorrectOption is never serialized to clients; the engine compares
// against it server-side only.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Category      string    `json:"category"`
	Text          string    `json:"text"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"-"`
	TimeLimitSec  int       `json:"time_limit_sec"`
}

// IsCorrect reports whether the selected option index matches the answer key.
func (q *Question) IsCorrect(optionID int) bool {
	return optionID == q.CorrectOption
}
