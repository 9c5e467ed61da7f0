package bot

import (
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
	"github.com/mcoot/fourinarow/internal/services/board"
)

// Run scores used when evaluating a candidate drop
const (
	ScoreTwoInRow   = 5
	ScoreThreeInRow = 20
)

// HeuristicStrategy plays, in priority order: an immediate win, a block of
// the opponent's immediate win, the best-scoring connecting move, a random
// centre column, then any random column.
type HeuristicStrategy struct {
	random random.Random
}

// NewHeuristicStrategy creates a new HeuristicStrategy
func NewHeuristicStrategy(rnd random.Random) *HeuristicStrategy {
	return &HeuristicStrategy{random: rnd}
}

// ChooseColumn selects a column for side
func (s *HeuristicStrategy) ChooseColumn(b *model.Board, side model.Side) (int, error) {
	valid := board.ValidMoves(b)
	if len(valid) == 0 {
		return board.NoRow, model.ErrNoValidMoves
	}

	if col, ok := winningColumn(b, valid, side); ok {
		return col, nil
	}
	if col, ok := winningColumn(b, valid, side.Opponent()); ok {
		return col, nil
	}
	if col, ok := strategicColumn(b, valid, side); ok {
		return col, nil
	}

	var centre []int
	for _, col := range valid {
		if isCentre(col) {
			centre = append(centre, col)
		}
	}
	if len(centre) > 0 {
		return centre[s.random.Intn(len(centre))], nil
	}

	return valid[s.random.Intn(len(valid))], nil
}

// winningColumn returns the first column in which side would connect four
func winningColumn(b *model.Board, valid []int, side model.Side) (int, bool) {
	for _, col := range valid {
		sim := b.Clone()
		row := board.Drop(sim, col, side)
		if row == board.NoRow {
			continue
		}
		if _, ok := board.CheckWin(sim, row, col); ok {
			return col, true
		}
	}
	return 0, false
}

// strategicColumn returns the first column with the strictly highest positive score
func strategicColumn(b *model.Board, valid []int, side model.Side) (int, bool) {
	best, bestScore := 0, 0
	for _, col := range valid {
		score := Score(b, col, side)
		if score > bestScore {
			best, bestScore = col, score
		}
	}
	return best, bestScore > 0
}

// Score evaluates dropping side's disc into col: each axis through the landed
// cell adds ScoreTwoInRow for a run of exactly two and ScoreThreeInRow for
// exactly three. A full or invalid column scores zero.
func Score(b *model.Board, col int, side model.Side) int {
	sim := b.Clone()
	row := board.Drop(sim, col, side)
	if row == board.NoRow {
		return 0
	}

	score := 0
	for _, n := range board.RunLengths(sim, row, col, side) {
		switch n {
		case 2:
			score += ScoreTwoInRow
		case 3:
			score += ScoreThreeInRow
		}
	}
	return score
}

// isCentre reports whether col falls within the middle third of the board
func isCentre(col int) bool {
	third := model.BoardCols / 3
	return col >= third && col < model.BoardCols-third
}
