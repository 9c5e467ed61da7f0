package model

// Board dimensions
const (
	BoardRows = 6
	BoardCols = 7
	WinLength = 4
)

// Side identifies which of the two fixed roles occupies a cell or owns a turn
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "-"
	}
}

// Position is a 0-indexed board cell; row 0 is the top row
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Axis is the direction along which four discs were connected
type Axis string

const (
	AxisHorizontal   Axis = "horizontal"
	AxisVertical     Axis = "vertical"
	AxisDiagonalDown Axis = "diagonal_down" // top-left to bottom-right
	AxisDiagonalUp   Axis = "diagonal_up"   // bottom-left to top-right
)

// Board is the 6x7 grid. Discs always rest on the lowest empty cell of a column.
type Board struct {
	Cells [BoardRows][BoardCols]Side `json:"cells"`
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{}
}

// Clone returns a deep copy of the board
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// At returns the side occupying a cell, or SideNone if empty or out of range
func (b *Board) At(row, col int) Side {
	if !InBounds(row, col) {
		return SideNone
	}
	return b.Cells[row][col]
}

// InBounds reports whether the given cell is on the board
func InBounds(row, col int) bool {
	return row >= 0 && row < BoardRows && col >= 0 && col < BoardCols
}

// DiscCount returns the number of occupied cells
func (b *Board) DiscCount() int {
	n := 0
	for row := range b.Cells {
		for _, cell := range b.Cells[row] {
			if cell != SideNone {
				n++
			}
		}
	}
	return n
}
