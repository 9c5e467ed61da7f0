package storage

import (
	"context"

	"github.com/mcoot/fourinarow/internal/model"
)

// DefaultListLimit bounds ListGameRecordsByPlayer when no positive limit is given
const DefaultListLimit = 20

// Storage defines the interface for archiving finished games and player statistics.
// Live sessions never touch storage.
type Storage interface {
	// Game record operations
	SaveGameRecord(ctx context.Context, record *model.GameRecord) error
	GetGameRecord(ctx context.Context, id model.SessionID) (*model.GameRecord, error)
	// ListGameRecordsByPlayer returns the player's most recently ended games first
	ListGameRecordsByPlayer(ctx context.Context, player model.PlayerID, limit int) ([]*model.GameRecord, error)

	// Player stats operations
	SavePlayerStats(ctx context.Context, stats *model.PlayerStats) error
	GetPlayerStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error)

	// Lifecycle
	Close() error
}

// NormalizeLimit applies DefaultListLimit to non-positive limits
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
