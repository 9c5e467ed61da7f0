package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/storage/memory"
	"github.com/mcoot/fourinarow/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage, testutil.NopLogger())
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) record(id model.SessionID, winner model.PlayerID, botB bool) *model.GameRecord {
	return &model.GameRecord{
		ID:      id,
		PlayerA: model.RecordPlayer{ID: "alice"},
		PlayerB: model.RecordPlayer{ID: "bob", IsAutomated: botB},
		Board:   model.NewBoard(),
		Moves: []model.Move{
			{Player: "alice", Column: 3},
			{Player: "bob", Column: 3},
			{Player: "alice", Column: 4},
		},
		Winner:    winner,
		EndReason: model.EndReasonHorizontal,
		StartedAt: s.now.Add(-time.Minute),
		EndedAt:   s.now,
		Duration:  time.Minute,
	}
}

func (s *ServiceSuite) TestArchiveStoresRecordAndStats() {
	s.Require().NoError(s.service.Archive(s.ctx, s.record("g1", "alice", false)))

	rec, err := s.service.GetGame(s.ctx, "g1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), rec.Winner)

	alice, err := s.service.GetStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, alice.GamesPlayed)
	s.Equal(1, alice.GamesWon)
	s.Equal(2, alice.TotalMoves)
	s.Equal(s.now, alice.LastPlayedAt)

	bob, err := s.service.GetStats(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(1, bob.GamesLost)
	s.Equal(1, bob.TotalMoves)
}

func (s *ServiceSuite) TestArchiveAccumulatesAcrossGames() {
	s.Require().NoError(s.service.Archive(s.ctx, s.record("g1", "alice", false)))
	s.Require().NoError(s.service.Archive(s.ctx, s.record("g2", "bob", false)))
	s.Require().NoError(s.service.Archive(s.ctx, s.record("g3", "", false)))

	alice, err := s.service.GetStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(3, alice.GamesPlayed)
	s.Equal(1, alice.GamesWon)
	s.Equal(1, alice.GamesLost)
	s.Equal(1, alice.GamesDrawn)
	s.InDelta(1.0/3.0, alice.WinRate(), 0.0001)

	games, err := s.service.ListGames(s.ctx, "alice", 10)
	s.Require().NoError(err)
	s.Len(games, 3)
}

func (s *ServiceSuite) TestArchiveSkipsStatsForAutomatedPlayers() {
	s.Require().NoError(s.service.Archive(s.ctx, s.record("g1", "bob", true)))

	_, err := s.service.GetStats(s.ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	alice, err := s.service.GetStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(1, alice.GamesLost)
}

func (s *ServiceSuite) TestArchiveTracksAverageGameDuration() {
	first := s.record("g1", "alice", false)
	second := s.record("g2", "bob", false)
	second.Duration = 3 * time.Minute
	s.Require().NoError(s.service.Archive(s.ctx, first))
	s.Require().NoError(s.service.Archive(s.ctx, second))

	alice, err := s.service.GetStats(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(4*time.Minute, alice.TotalDuration)
	s.Equal(2*time.Minute, alice.AverageGameDuration())
}

func (s *ServiceSuite) TestArchiveDoesNotListGamesUnderBotName() {
	s.Require().NoError(s.service.Archive(s.ctx, s.record("g1", "bob", true)))

	games, err := s.service.ListGames(s.ctx, "bob", 10)
	s.Require().NoError(err)
	s.Empty(games)
}
