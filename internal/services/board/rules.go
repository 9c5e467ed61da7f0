// Package board implements the drop and connect-four rules over model.Board.
// Every function is pure with respect to the board it is given.
package board

import "github.com/mcoot/fourinarow/internal/model"

// NoRow is returned by Drop when the column is out of range or full
const NoRow = -1

// Outcome is the result of a successful move
type Outcome string

const (
	OutcomeContinue Outcome = "continue"
	OutcomeWin      Outcome = "win"
	OutcomeDraw     Outcome = "draw"
)

// Win describes a connected run of at least four discs
type Win struct {
	Axis  model.Axis
	Cells []model.Position
}

// MoveResult is returned by MakeMove
type MoveResult struct {
	Row     int
	Outcome Outcome
	Win     *Win
}

// axis directions in scan order
var axes = []struct {
	axis   model.Axis
	dr, dc int
}{
	{model.AxisHorizontal, 0, 1},
	{model.AxisVertical, 1, 0},
	{model.AxisDiagonalDown, 1, 1},
	{model.AxisDiagonalUp, -1, 1},
}

// New creates an empty board
func New() *model.Board {
	return model.NewBoard()
}

// Drop places a disc for side in the lowest empty row of col and returns that row
func Drop(b *model.Board, col int, side model.Side) int {
	if IsColumnFull(b, col) {
		return NoRow
	}
	for row := model.BoardRows - 1; row >= 0; row-- {
		if b.Cells[row][col] == model.SideNone {
			b.Cells[row][col] = side
			return row
		}
	}
	return NoRow
}

// CheckWin reports whether the disc at (row, col) is part of four or more in a line
func CheckWin(b *model.Board, row, col int) (Win, bool) {
	side := b.At(row, col)
	if side == model.SideNone {
		return Win{}, false
	}

	for _, a := range axes {
		cells := Run(b, row, col, a.dr, a.dc, side)
		if len(cells) >= model.WinLength {
			return Win{Axis: a.axis, Cells: cells}, true
		}
	}
	return Win{}, false
}

// Run returns the contiguous cells of side through (row, col) along direction
// (dr, dc), ordered from the negative end to the positive end.
func Run(b *model.Board, row, col, dr, dc int, side model.Side) []model.Position {
	r, c := row, col
	for b.At(r-dr, c-dc) == side {
		r, c = r-dr, c-dc
	}

	var cells []model.Position
	for b.At(r, c) == side {
		cells = append(cells, model.Position{Row: r, Col: c})
		r, c = r+dr, c+dc
	}
	return cells
}

// RunLengths returns the run length through (row, col) on each axis, in scan order
func RunLengths(b *model.Board, row, col int, side model.Side) []int {
	lengths := make([]int, 0, len(axes))
	for _, a := range axes {
		lengths = append(lengths, len(Run(b, row, col, a.dr, a.dc, side)))
	}
	return lengths
}

// IsBoardFull reports whether no column can accept another disc
func IsBoardFull(b *model.Board) bool {
	for col := 0; col < model.BoardCols; col++ {
		if b.Cells[0][col] == model.SideNone {
			return false
		}
	}
	return true
}

// IsColumnFull reports whether the top cell of col is occupied.
// Columns outside the board are treated as full.
func IsColumnFull(b *model.Board, col int) bool {
	if col < 0 || col >= model.BoardCols {
		return true
	}
	return b.Cells[0][col] != model.SideNone
}

// ValidMoves returns the columns that can accept a disc, ascending
func ValidMoves(b *model.Board) []int {
	var cols []int
	for col := 0; col < model.BoardCols; col++ {
		if !IsColumnFull(b, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// MakeMove drops a disc and evaluates the resulting position.
// A rejected move leaves the board unchanged.
func MakeMove(b *model.Board, col int, side model.Side) (MoveResult, error) {
	if col < 0 || col >= model.BoardCols {
		return MoveResult{Row: NoRow}, model.ErrInvalidColumn
	}
	if IsColumnFull(b, col) {
		return MoveResult{Row: NoRow}, model.ErrColumnFull
	}

	row := Drop(b, col, side)

	if win, ok := CheckWin(b, row, col); ok {
		return MoveResult{Row: row, Outcome: OutcomeWin, Win: &win}, nil
	}
	if IsBoardFull(b) {
		return MoveResult{Row: row, Outcome: OutcomeDraw}, nil
	}
	return MoveResult{Row: row, Outcome: OutcomeContinue}, nil
}
