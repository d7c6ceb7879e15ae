package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
)

const (
	BoardSide = 3
	BoardSize = BoardSide * BoardSide
)

type Mark string

const (
	PlayerX Mark = "X"
	PlayerO Mark = "O"

	EmptyCell Mark = ""
)

// Opponent returns the other player's mark. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

// IndexOf converts a row/column address into a cell index.
func IndexOf(row, col int) (int, error) {
	if row < 0 || row >= BoardSide || col < 0 || col >= BoardSide {
		return 0, fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidIndex, row, col)
	}

	return row*BoardSide + col, nil
}

// Board is the mutable 3x3 grid. Cells change only through Place and Reset.
type Board struct {
	cells [BoardSize]Mark
}

func NewBoard() *Board {
	return &Board{}
}

// Place puts mark on the cell at index.
func (that *Board) Place(index int, mark Mark) error {
	if index < 0 || index >= BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidIndex, index)
	}

	if !mark.IsPlayer() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, mark)
	}

	if that.cells[index] != EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrOccupiedCell, index)
	}

	that.cells[index] = mark

	return nil
}

func (that *Board) Get(index int) Mark {
	return that.Snapshot().Get(index)
}

func (that *Board) IsFull() bool {
	return that.Snapshot().IsFull()
}

func (that *Board) EmptyIndices() []int {
	return that.Snapshot().EmptyIndices()
}

func (that *Board) Count() int {
	return that.Snapshot().Count()
}

func (that *Board) Reset() {
	that.cells = [BoardSize]Mark{}
}

// Snapshot returns a copy of the cells that is safe to hand out.
func (that *Board) Snapshot() Snapshot {
	return Snapshot(that.cells)
}

// Snapshot is a read-only value copy of a board.
type Snapshot [BoardSize]Mark

// Get returns the cell state, or EmptyCell for an index outside the board.
func (that Snapshot) Get(index int) Mark {
	if index < 0 || index >= BoardSize {
		return EmptyCell
	}

	return that[index]
}

func (that Snapshot) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

// EmptyIndices lists empty cells in ascending order.
func (that Snapshot) EmptyIndices() []int {
	indices := make([]int, 0, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell {
			indices = append(indices, i)
		}
	}

	return indices
}

func (that Snapshot) Count() int {
	return BoardSize - len(that.EmptyIndices())
}

// IsEmptyAt reports whether index is on the board and unoccupied.
func (that Snapshot) IsEmptyAt(index int) bool {
	return index >= 0 && index < BoardSize && that[index] == EmptyCell
}

// With returns a copy of the snapshot with mark placed at index.
// The caller must check that index is on the board.
func (that Snapshot) With(index int, mark Mark) Snapshot {
	that[index] = mark
	return that
}
