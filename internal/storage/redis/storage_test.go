package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fourinarow/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
	now     time.Time
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GameRecordTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) record(id model.SessionID, a, b model.PlayerID, endedAt time.Time) *model.GameRecord {
	board := model.NewBoard()
	board.Cells[5][3] = model.SideA
	return &model.GameRecord{
		ID:        id,
		PlayerA:   model.RecordPlayer{ID: a},
		PlayerB:   model.RecordPlayer{ID: b},
		Board:     board,
		Moves:     []model.Move{{Player: a, Side: model.SideA, Column: 3, Row: 5, Timestamp: endedAt}},
		Winner:    b,
		EndReason: model.EndReasonOpponentDisconnected,
		StartedAt: endedAt.Add(-2 * time.Minute),
		EndedAt:   endedAt,
		Duration:  2 * time.Minute,
	}
}

// Game record tests

func (s *StorageSuite) TestSaveAndGetGameRecord() {
	rec := s.record("game-1", "alice", "SwiftFox", s.now)
	rec.PlayerB.IsAutomated = true
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, rec))

	got, err := s.storage.GetGameRecord(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.True(got.PlayerB.IsAutomated)
	s.Equal(model.SideA, got.Board.Cells[5][3])
	s.Require().Len(got.Moves, 1)
	s.Equal(3, got.Moves[0].Column)
	s.Equal(model.EndReasonOpponentDisconnected, got.EndReason)
	s.True(rec.EndedAt.Equal(got.EndedAt))
}

func (s *StorageSuite) TestGameRecordHasTTL() {
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, s.record("game-1", "alice", "bob", s.now)))

	ttl := s.mini.TTL(gameRecordKey("game-1"))
	s.Equal(time.Hour, ttl)
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
	s.Require().Len(recs, 1)
	s.Equal(model.SessionID("game-2"), recs[0].ID)
}

func (s *StorageSuite) TestListGameRecordsPrunesExpired() {
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, s.record("game-1", "alice", "bob", s.now)))
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, s.record("game-2", "alice", "bob", s.now.Add(time.Minute))))

	s.mini.Del(gameRecordKey("game-1"))

	recs, err := s.storage.ListGameRecordsByPlayer(s.ctx, "alice", 10)
	s.Require().NoError(err)
	s.Require().Len(recs, 1)
	s.Equal(model.SessionID("game-2"), recs[0].ID)

	members, err := s.mini.ZMembers(playerGamesIndexKey("alice"))
	s.Require().NoError(err)
	s.Equal([]string{"game-2"}, members)
}

func (s *StorageSuite) TestBotGamesNotIndexedUnderBotName() {
	rec := s.record("game-1", "alice", "SwiftFox", s.now)
	rec.PlayerB.IsAutomated = true
	s.Require().NoError(s.storage.SaveGameRecord(s.ctx, rec))

	s.False(s.mini.Exists(playerGamesIndexKey("SwiftFox")))

	recs, err := s.storage.ListGameRecordsByPlayer(s.ctx, "SwiftFox", 10)
	s.Require().NoError(err)
	s.Empty(recs)

	recs, err = s.storage.ListGameRecordsByPlayer(s.ctx, "alice", 10)
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
	stats := &model.PlayerStats{
		Player: "alice", GamesPlayed: 4, GamesWon: 1, GamesDrawn: 1, GamesLost: 2,
		TotalMoves: 40, TotalDuration: 8 * time.Minute, LastPlayedAt: s.now,
	}
	s.Require().NoError(s.storage.SavePlayerStats(s.ctx, stats))

	got, err := s.storage.GetPlayerStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(4, got.GamesPlayed)
	s.Equal(40, got.TotalMoves)
	s.Equal(2*time.Minute, got.AverageGameDuration())
	s.True(s.now.Equal(got.LastPlayedAt))
	s.False(s.mini.Exists(playerStatsKey("alice")) && s.mini.TTL(playerStatsKey("alice")) > 0)
}

func (s *StorageSuite) TestGetPlayerStatsNotFound() {
	_, err := s.storage.GetPlayerStats(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
