package duel

import (
	"time"

	"github.com/google/uuid"
)

// answerValidator runs the rejection checks for a submitted answer.
// Check order is fixed and deliberate: staleness before duplication,
// duplication before timing, so the caller always gets the most specific
// rejection. A stale answer is never reported as expired, and a
// duplicate is never reported as suspicious.
type answerValidator struct {
	// minAnswer is the plausibility floor. Answers landing faster than
	// this after question emission cannot come from a human reading the
	// question.
	minAnswer time.Duration
}

// answerContext is the slice of session state the validator needs,
// captured under the session lock.
type answerContext struct {
	currentID     uuid.UUID
	questionID    uuid.UUID
	alreadyDone   bool
	questionStart time.Time
	window        time.Duration
	now           time.Time
}

// validate returns nil if the answer is acceptable, or the sentinel
// describing why it is not. ErrSuspiciouslyFast submissions are rejected
// here; the session still records them for audit.
func (v *answerValidator) validate(ac answerContext) error {
	if ac.questionID != ac.currentID {
		return ErrStaleQuestion
	}
	if ac.alreadyDone {
		return ErrDuplicateAnswer
	}

	elapsed := ac.now.Sub(ac.questionStart)
	if elapsed < v.minAnswer {
		return ErrSuspiciouslyFast
	}
	if elapsed > ac.window {
		return ErrWindowExpired
	}
	return nil
}
