package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PlayerSessionKey returns the cache key for a player's login session
func (r *CacheKeyStruct) PlayerSessionKey(playerID int) string {
	return fmt.Sprintf("login:%d", playerID)
}

// PlayerActiveDuelKey returns the cache key for a player's currently active duel
func (r *CacheKeyStruct) PlayerActiveDuelKey(playerID int) string {
	return fmt.Sprintf("player:%d:active_duel", playerID)
}

// QuestionPoolKey returns the cache key for a category's question pool payload
func (r *CacheKeyStruct) QuestionPoolKey(category string) string {
	return fmt.Sprintf("qpool:%s:payload", category)
}

// DuelSnapshotKey returns the cache key for a duel's last broadcast snapshot
func (r *CacheKeyStruct) DuelSnapshotKey(duelID string) string {
	return fmt.Sprintf("duel:%s:snapshot", duelID)
}

var CacheKey = NewCacheKeyStruct()
