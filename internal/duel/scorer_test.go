package duel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScorer(t *testing.T) {
	s := NewScorer(1, 2)

	require.Equal(t, 0, s.Score(1))
	require.Equal(t, 0, s.Score(2))

	s.RecordCorrect(1)
	s.RecordCorrect(1)
	s.RecordCorrect(2)

	require.Equal(t, 2, s.Score(1))
	require.Equal(t, 1, s.Score(2))
	require.Equal(t, map[int]int{1: 2, 2: 1}, s.Snapshot())

	leader, tie := s.Leader()
	require.False(t, tie)
	require.Equal(t, 1, leader)
}

func TestScorerLeader_Tie(t *testing.T) {
	s := NewScorer(1, 2)

	_, tie := s.Leader()
	require.True(t, tie, "zero-zero is a tie")

	s.RecordCorrect(1)
	s.RecordCorrect(2)
	_, tie = s.Leader()
	require.True(t, tie)

	s.RecordCorrect(2)
	leader, tie := s.Leader()
	require.False(t, tie)
	require.Equal(t, 2, leader)
}

func TestScorerSnapshot_IsCopy(t *testing.T) {
	s := NewScorer(1, 2)
	snap := s.Snapshot()
	snap[1] = 99

	require.Equal(t, 0, s.Score(1))
}
