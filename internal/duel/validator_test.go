package duel

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAnswerValidator(t *testing.T) {
	current := uuid.New()
	stale := uuid.New()
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	window := 10 * time.Second
	v := answerValidator{minAnswer: 300 * time.Millisecond}

	tests := []struct {
		name string
		ac   answerContext
		want error
	}{
		{
			name: "accepted",
			ac: answerContext{
				currentID: current, questionID: current,
				questionStart: start, window: window,
				now: start.Add(2 * time.Second),
			},
			want: nil,
		},
		{
			name: "accepted exactly at floor",
			ac: answerContext{
				currentID: current, questionID: current,
				questionStart: start, window: window,
				now: start.Add(300 * time.Millisecond),
			},
			want: nil,
		},
		{
			name: "accepted exactly at deadline",
			ac: answerContext{
				currentID: current, questionID: current,
				questionStart: start, window: window,
				now: start.Add(window),
			},
			want: nil,
		},
		{
			name: "stale question",
			ac: answerContext{
				currentID: current, questionID: stale,
				questionStart: start, window: window,
				now: start.Add(2 * time.Second),
			},
			want: ErrStaleQuestion,
		},
		{
			name: "duplicate answer",
			ac: answerContext{
				currentID: current, questionID: current, alreadyDone: true,
				questionStart: start, window: window,
				now: start.Add(2 * time.Second),
			},
			want: ErrDuplicateAnswer,
		},
		{
			name: "suspiciously fast",
			ac: answerContext{
				currentID: current, questionID: current,
				questionStart: start, window: window,
				now: start.Add(100 * time.Millisecond),
			},
			want: ErrSuspiciouslyFast,
		},
		{
			name: "window expired",
			ac: answerContext{
				currentID: current, questionID: current,
				questionStart: start, window: window,
				now: start.Add(window + time.Millisecond),
			},
			want: ErrWindowExpired,
		},
		{
			name: "stale wins over duplicate",
			ac: answerContext{
				currentID: current, questionID: stale, alreadyDone: true,
				questionStart: start, window: window,
				now: start.Add(2 * time.Second),
			},
			want: ErrStaleQuestion,
		},
		{
			name: "duplicate wins over expired",
			ac: answerContext{
				currentID: current, questionID: current, alreadyDone: true,
				questionStart: start, window: window,
				now: start.Add(window + time.Second),
			},
			want: ErrDuplicateAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.validate(tt.ac)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
