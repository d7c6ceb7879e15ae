package tictactoe

import "github.com/rocketscienceinc/tictactoe-solo/internal/entity"

// WinCombos are checked in this order: rows, columns, diagonals.
// The first uniform line decides the reported winner.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Cells interface {
	Get(index int) entity.Mark
	IsFull() bool
}

// Evaluate reports the result of the position without changing it.
func Evaluate(board Cells) entity.Result {
	if line, ok := WinningLine(board); ok {
		return entity.Win(board.Get(line[0]))
	}

	// the game will continue until all the squares are full
	if board.IsFull() {
		return entity.Draw()
	}

	return entity.Ongoing()
}

// WinningLine returns the first complete line, if any.
func WinningLine(board Cells) ([3]int, bool) {
	for _, combo := range WinCombos {
		a, b, c := board.Get(combo[0]), board.Get(combo[1]), board.Get(combo[2])
		if a != entity.EmptyCell && a == b && b == c {
			return combo, true
		}
	}

	return [3]int{}, false
}
