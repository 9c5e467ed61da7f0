package model

import "time"

// PlayerID is the display name a player joins under. It is unique among live connections.
type PlayerID string

// MaxPlayerIDLength bounds the display name length
const MaxPlayerIDLength = 32

// PlayerStats aggregates finished games for a human player
type PlayerStats struct {
	Player        PlayerID      `json:"player"`
	GamesPlayed   int           `json:"games_played"`
	GamesWon      int           `json:"games_won"`
	GamesLost     int           `json:"games_lost"`
	GamesDrawn    int           `json:"games_drawn"`
	TotalMoves    int           `json:"total_moves"`
	TotalDuration time.Duration `json:"total_duration"`
	LastPlayedAt  time.Time     `json:"last_played_at"`
}

// WinRate returns the fraction of played games that were won
func (p *PlayerStats) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) / float64(p.GamesPlayed)
}

// AverageGameDuration returns the mean length of played games
func (p *PlayerStats) AverageGameDuration() time.Duration {
	if p.GamesPlayed == 0 {
		return 0
	}
	return p.TotalDuration / time.Duration(p.GamesPlayed)
}
