package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	records     map[model.SessionID]*model.GameRecord
	playerIndex map[model.PlayerID][]model.SessionID
	stats       map[model.PlayerID]*model.PlayerStats
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		records:     make(map[model.SessionID]*model.GameRecord),
		playerIndex: make(map[model.PlayerID][]model.SessionID),
		stats:       make(map[model.PlayerID]*model.PlayerStats),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game record operations

func (s *Storage) SaveGameRecord(ctx context.Context, record *model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists {
		for _, id := range record.Humans() {
			s.playerIndex[id] = append(s.playerIndex[id], record.ID)
		}
	}
	rec := *record
	s.records[record.ID] = &rec
	return nil
}

func (s *Storage) GetGameRecord(ctx context.Context, id model.SessionID) (*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, model.ErrGameRecordNotFound
	}
	out := *rec
	return &out, nil
}

func (s *Storage) ListGameRecordsByPlayer(ctx context.Context, player model.PlayerID, limit int) ([]*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.playerIndex[player]
	result := make([]*model.GameRecord, 0, len(ids))
	for _, id := range ids {
		rec := *s.records[id]
		result = append(result, &rec)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EndedAt.After(result[j].EndedAt)
	})

	if limit = storage.NormalizeLimit(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Player stats operations

func (s *Storage) SavePlayerStats(ctx context.Context, stats *model.PlayerStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *stats
	s.stats[stats.Player] = &st
	return nil
}

func (s *Storage) GetPlayerStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[player]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	out := *st
	return &out, nil
}

func (s *Storage) Close() error {
	return nil
}
