package bot_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fourinarow/internal/dependencies/mocks"
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/services/board"
	"github.com/mcoot/fourinarow/internal/services/bot"
)

func parse(rows ...string) *model.Board {
	b := model.NewBoard()
	for r, line := range rows {
		for c, ch := range line {
			switch ch {
			case 'A':
				b.Cells[r][c] = model.SideA
			case 'B':
				b.Cells[r][c] = model.SideB
			}
		}
	}
	return b
}

type HeuristicSuite struct {
	suite.Suite
	mockRandom *mocks.MockRandom
	strategy   *bot.HeuristicStrategy
}

func TestHeuristicSuite(t *testing.T) {
	suite.Run(t, new(HeuristicSuite))
}

func (s *HeuristicSuite) SetupTest() {
	s.mockRandom = mocks.NewMockRandom()
	s.strategy = bot.NewHeuristicStrategy(s.mockRandom)
}

func (s *HeuristicSuite) choose(b *model.Board) int {
	col, err := s.strategy.ChooseColumn(b, model.SideB)
	s.Require().NoError(err)
	return col
}

func (s *HeuristicSuite) TestTakesImmediateWin() {
	b := parse(
		".......",
		".......",
		".......",
		".......",
		".......",
		"BBB.AA.",
	)
	s.Equal(3, s.choose(b))
}

func (s *HeuristicSuite) TestBlocksOpponentWin() {
	b := parse(
		".......",
		".......",
		".......",
		".......",
		".......",
		"AAA.B..",
	)
	s.Equal(3, s.choose(b))
}

func (s *HeuristicSuite) TestPrefersWinOverBlock() {
	b := parse(
		".......",
		".......",
		".......",
		"......B",
		"......B",
		"AAA...B",
	)
	s.Equal(6, s.choose(b))
}

func (s *HeuristicSuite) TestDoesNotMutateBoard() {
	b := parse(
		".......",
		".......",
		".......",
		".......",
		".......",
		"AAA.B..",
	)
	before := *b
	s.choose(b)
	s.Equal(before, *b)
}

func (s *HeuristicSuite) TestStrategicTieGoesToLowestColumn() {
	b := parse(
		".......",
		".......",
		".......",
		".......",
		".......",
		"...B...",
	)
	// columns 2, 3 and 4 each form a run of two
	s.Equal(2, s.choose(b))
}

func (s *HeuristicSuite) TestStrategicPrefersThreeInRow() {
	b := parse(
		".......",
		".......",
		".......",
		".......",
		".......",
		"..BB...",
	)
	s.Equal(20, scoreFor(b, 1))
	s.Equal(1, s.choose(b))
}

func (s *HeuristicSuite) TestCentrePreferenceOnEmptyBoard() {
	s.mockRandom.QueueIntn(1)
	s.Equal(3, s.choose(model.NewBoard()))
}

func (s *HeuristicSuite) TestFallbackWhenCentreFull() {
	b := parse(
		"..BAB..",
		"..ABA..",
		"..BAB..",
		"..BAB..",
		"..ABA..",
		"..ABA..",
	)
	// valid columns are 0, 1, 5, 6 and none scores
	s.mockRandom.QueueIntn(2)
	s.Equal(5, s.choose(b))
}

func (s *HeuristicSuite) TestNoValidMoves() {
	b := parse(
		"ABABABA",
		"ABABABA",
		"BABABAB",
		"BABABAB",
		"ABABABA",
		"ABABABA",
	)
	_, err := s.strategy.ChooseColumn(b, model.SideB)
	s.ErrorIs(err, model.ErrNoValidMoves)
}

func (s *HeuristicSuite) TestAlwaysChoosesValidColumnDuringPlay() {
	strategies := []bot.Strategy{
		bot.NewHeuristicStrategy(random.New()),
		bot.NewRandomStrategy(random.New()),
	}

	for game := 0; game < 20; game++ {
		b := model.NewBoard()
		side := model.SideA
		for {
			col, err := strategies[game%2].ChooseColumn(b, side)
			s.Require().NoError(err)
			s.Require().False(board.IsColumnFull(b, col), "column %d is not playable", col)

			res, err := board.MakeMove(b, col, side)
			s.Require().NoError(err)
			if res.Outcome != board.OutcomeContinue {
				break
			}
			side = side.Opponent()
		}
	}
}

func scoreFor(b *model.Board, col int) int {
	return bot.Score(b, col, model.SideB)
}

type RandomStrategySuite struct {
	suite.Suite
	mockRandom *mocks.MockRandom
	strategy   *bot.RandomStrategy
}

func TestRandomStrategySuite(t *testing.T) {
	suite.Run(t, new(RandomStrategySuite))
}

func (s *RandomStrategySuite) SetupTest() {
	s.mockRandom = mocks.NewMockRandom()
	s.strategy = bot.NewRandomStrategy(s.mockRandom)
}

func (s *RandomStrategySuite) TestChoosesAmongValidColumns() {
	b := parse(
		"A.B...A",
		"B.A...B",
		"A.B...A",
		"B.A...B",
		"A.B...A",
		"B.A...B",
	)
	s.mockRandom.QueueIntn(1)

	col, err := s.strategy.ChooseColumn(b, model.SideA)
	s.Require().NoError(err)
	s.Equal(3, col)
}

func (s *RandomStrategySuite) TestNewStrategy() {
	st, err := bot.NewStrategy(model.BotStrategyHeuristic, s.mockRandom)
	s.Require().NoError(err)
	s.IsType(&bot.HeuristicStrategy{}, st)

	st, err = bot.NewStrategy(model.BotStrategyRandom, s.mockRandom)
	s.Require().NoError(err)
	s.IsType(&bot.RandomStrategy{}, st)

	_, err = bot.NewStrategy("minimax", s.mockRandom)
	s.ErrorIs(err, bot.ErrUnknownStrategy)
}

func (s *RandomStrategySuite) TestName() {
	s.mockRandom.QueueIntn(0, 0)
	s.Equal(model.PlayerID("SwiftFox"), bot.Name(s.mockRandom, "alice"))

	s.mockRandom.QueueIntn(0, 0)
	s.Equal(model.PlayerID("SwiftFoxBot"), bot.Name(s.mockRandom, "SwiftFox"))

	s.mockRandom.QueueIntn(9, 2)
	s.Equal(model.PlayerID("BlazingDragon"), bot.Name(s.mockRandom, "alice"))
}
