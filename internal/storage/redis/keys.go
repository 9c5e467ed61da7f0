package redis

import (
	"fmt"

	"github.com/mcoot/fourinarow/internal/model"
)

// Key prefix for all archived data
const keyPrefix = "fourinarow"

// gameRecordKey returns the Redis key for an archived GameRecord
func gameRecordKey(id model.SessionID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// playerGamesIndexKey returns the Redis key for the ZSET of a player's games scored by end time
func playerGamesIndexKey(player model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_games:%s", keyPrefix, player)
}

// playerStatsKey returns the Redis key for a player's PlayerStats
func playerStatsKey(player model.PlayerID) string {
	return fmt.Sprintf("%s:stats:%s", keyPrefix, player)
}
