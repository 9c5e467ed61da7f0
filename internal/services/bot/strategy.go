package bot

import (
	"errors"

	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
)

// ErrUnknownStrategy is returned by NewStrategy for an unrecognised name
var ErrUnknownStrategy = errors.New("unknown bot strategy")

// Strategy defines how an automated participant picks its column
type Strategy interface {
	// ChooseColumn returns a valid column for side to play on b.
	// It must not mutate b.
	ChooseColumn(b *model.Board, side model.Side) (int, error)
}

// NewStrategy returns the strategy registered under name
func NewStrategy(name string, rnd random.Random) (Strategy, error) {
	switch name {
	case model.BotStrategyHeuristic:
		return NewHeuristicStrategy(rnd), nil
	case model.BotStrategyRandom:
		return NewRandomStrategy(rnd), nil
	default:
		return nil, ErrUnknownStrategy
	}
}
