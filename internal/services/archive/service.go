// Package archive persists finished games and maintains per-player statistics.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/storage"
)

// Service writes completed sessions to storage
type Service struct {
	storage storage.Storage
	logger  *slog.Logger

	// serializes stats read-modify-write
	statsMu sync.Mutex
}

// New creates a new archive Service
func New(store storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		logger:  logger.With(slog.String("component", "archive")),
	}
}

// Archive stores the game record and updates stats for each human participant
func (s *Service) Archive(ctx context.Context, rec *model.GameRecord) error {
	if err := s.storage.SaveGameRecord(ctx, rec); err != nil {
		return fmt.Errorf("save game record %s: %w", rec.ID, err)
	}

	for _, id := range rec.Humans() {
		if err := s.updateStats(ctx, rec, id); err != nil {
			return fmt.Errorf("update stats for %s: %w", id, err)
		}
	}

	s.logger.Debug("game archived",
		slog.String("session_id", string(rec.ID)),
		slog.String("winner", string(rec.Winner)),
		slog.String("reason", string(rec.EndReason)),
	)
	return nil
}

func (s *Service) updateStats(ctx context.Context, rec *model.GameRecord, player model.PlayerID) error {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	stats, err := s.storage.GetPlayerStats(ctx, player)
	if errors.Is(err, model.ErrPlayerNotFound) {
		stats = &model.PlayerStats{Player: player}
	} else if err != nil {
		return err
	}

	stats.GamesPlayed++
	switch {
	case rec.IsDraw():
		stats.GamesDrawn++
	case rec.Winner == player:
		stats.GamesWon++
	default:
		stats.GamesLost++
	}
	stats.TotalMoves += rec.MovesBy(player)
	stats.TotalDuration += rec.Duration
	if rec.EndedAt.After(stats.LastPlayedAt) {
		stats.LastPlayedAt = rec.EndedAt
	}

	return s.storage.SavePlayerStats(ctx, stats)
}

// GetGame returns an archived game
func (s *Service) GetGame(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	return s.storage.GetGameRecord(ctx, id)
}

// ListGames returns the player's most recent games
func (s *Service) ListGames(ctx context.Context, player model.PlayerID, limit int) ([]*model.GameRecord, error) {
	return s.storage.ListGameRecordsByPlayer(ctx, player, limit)
}

// GetStats returns the player's aggregated statistics
func (s *Service) GetStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	return s.storage.GetPlayerStats(ctx, player)
}
