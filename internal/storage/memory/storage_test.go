package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fourinarow/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) record(id model.SessionID, a, b model.PlayerID, endedAt time.Time) *model.GameRecord {
	return &model.GameRecord{
		ID:        id,
		PlayerA:   model.RecordPlayer{ID: a},
		PlayerB:   model.RecordPlayer{ID: b},
		Board:     model.NewBoard(),
		Winner:    a,
		EndReason: model.EndReasonHorizontal,
		StartedAt: endedAt.Add(-time.Minute),
		EndedAt:   endedAt,
		Duration:  time.Minute,
	}
}

// Game record tests

func (s *StorageSuite) TestSaveAndGetGameRecord() {
	rec := s.record("game-1", "alice", "bob", s.now)
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, rec))

	got, err := s.storage.GetGameRecord(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(model.PlayerID("alice"), got.Winner)
	s.Equal(time.Minute, got.Duration)
}

func (s *StorageSuite) TestGetGameRecordNotFound() {
	_, err := s.storage.GetGameRecord(s.ctx, "missing")
	s.ErrorIs(err, model.ErrGameRecordNotFound)
}

func (s *StorageSuite) TestListGameRecordsByPlayerNewestFirst() {
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, s.record("game-1", "alice", "bob", s.now)))
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, s.record("game-2", "carol", "alice", s.now.Add(time.Hour))))
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, s.record("game-3", "bob", "carol", s.now.Add(2*time.Hour))))

	recs, err := s.storage.ListGameRecordsByPlayer(s.ctx, "alice", 10)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal(model.SessionID("game-2"), recs[0].ID)
	s.Equal(model.SessionID("game-1"), recs[1].ID)

	recs, err = s.storage.ListGameRecordsByPlayer(s.ctx, "alice", 1)
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *StorageSuite) TestResavingRecordDoesNotDuplicateIndex() {
	rec := s.record("game-1", "alice", "bob", s.now)
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, rec))
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, rec))

	recs, err := s.storage.ListGameRecordsByPlayer(s.ctx, "bob", 0)
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *StorageSuite) TestBotGamesNotIndexedUnderBotName() {
	rec := s.record("game-1", "alice", "SwiftFox", s.now)
	rec.PlayerB.IsAutomated = true
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, rec))

	recs, err := s.storage.ListGameRecordsByPlayer(s.ctx, "SwiftFox", 0)
	s.Require().NoError(err)
	s.Empty(recs)

	recs, err = s.storage.ListGameRecordsByPlayer(s.ctx, "alice", 0)
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func (s *StorageSuite) TestListGameRecordsUnknownPlayer() {
	recs, err := s.storage.ListGameRecordsByPlayer(s.ctx, "nobody", 5)
	s.Require().NoError(err)
	s.Empty(recs)
}

// Player stats tests

func (s *StorageSuite) TestSaveAndGetPlayerStats() {
	stats := &model.PlayerStats{Player: "alice", GamesPlayed: 3, GamesWon: 2, GamesLost: 1, LastPlayedAt: s.now}
	s.Require().NoError(s.storage.SavePlayerStats(s.ctx, stats))

	// mutating the caller's copy does not leak into storage
	stats.GamesPlayed = 99

	got, err := s.storage.GetPlayerStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(3, got.GamesPlayed)
	s.Equal(2, got.GamesWon)
}

func (s *StorageSuite) TestGetPlayerStatsNotFound() {
	_, err := s.storage.GetPlayerStats(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
