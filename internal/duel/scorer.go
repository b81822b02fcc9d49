package duel

import "sync"

// Scorer keeps the running tally for both players. It carries its own
// read/write lock so mid-duel score reads (snapshots, monitoring) never
// have to take the session mutex.
type Scorer struct {
	mu     sync.RWMutex
	scores map[int]int
}

// NewScorer initializes a tally at zero for the given player IDs.
func NewScorer(playerIDs ...int) *Scorer {
	scores := make(map[int]int, len(playerIDs))
	for _, id := range playerIDs {
		scores[id] = 0
	}
	return &Scorer{scores: scores}
}

// AddPlayer registers a late-joining player at zero.
func (s *Scorer) AddPlayer(playerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scores[playerID]; !ok {
		s.scores[playerID] = 0
	}
}

// RecordCorrect awards one point to the player.
func (s *Scorer) RecordCorrect(playerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[playerID]++
}

// Score returns the player's current tally.
func (s *Scorer) Score(playerID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[playerID]
}

// Snapshot returns a copy of all tallies.
func (s *Scorer) Snapshot() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]int, len(s.scores))
	for id, sc := range s.scores {
		out[id] = sc
	}
	return out
}

// Leader returns the player with the highest tally, or tie=true when the
// tallies are equal.
func (s *Scorer) Leader() (playerID int, tie bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, bestScore, seen := 0, 0, 0
	for id, sc := range s.scores {
		switch {
		case seen == 0 || sc > bestScore:
			best, bestScore = id, sc
			tie = false
		case sc == bestScore:
			tie = true
		}
		seen++
	}
	return best, tie
}
