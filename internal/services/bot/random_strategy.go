package bot

import (
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/services/board"
)

// RandomStrategy picks uniformly among the valid columns
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseColumn returns a random non-full column
func (s *RandomStrategy) ChooseColumn(b *model.Board, _ model.Side) (int, error) {
	valid := board.ValidMoves(b)
	if len(valid) == 0 {
		return board.NoRow, model.ErrNoValidMoves
	}
	return valid[s.random.Intn(len(valid))], nil
}
