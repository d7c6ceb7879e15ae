package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/rocketscienceinc/tictactoe-solo/internal/tictactoe"
)

const (
	centerCell = 4

	DefaultSuggestTimeout = 3 * time.Second
)

var (
	cornerCells = [4]int{0, 2, 6, 8}
	edgeCells   = [4]int{1, 3, 5, 7}

	ErrIllegalSuggestion = errors.New("suggested cell is not playable")
)

// Suggester proposes a move from outside the rule cascade.
type Suggester interface {
	SuggestMove(ctx context.Context, board entity.Snapshot, cpu, opponent entity.Mark) (int, error)
}

type BotService interface {
	ChooseMove(ctx context.Context, board entity.Snapshot, cpu, opponent entity.Mark) (int, error)
}

type botService struct {
	logger *slog.Logger

	suggester Suggester
	timeout   time.Duration
}

// NewBotService builds the CPU policy. A nil suggester leaves only the rule cascade.
func NewBotService(logger *slog.Logger, suggester Suggester, timeout time.Duration) BotService {
	if timeout <= 0 {
		timeout = DefaultSuggestTimeout
	}

	return &botService{
		logger:    logger.With("component", "bot"),
		suggester: suggester,
		timeout:   timeout,
	}
}

func (that *botService) ChooseMove(ctx context.Context, board entity.Snapshot, cpu, opponent entity.Mark) (int, error) {
	if board.IsFull() {
		return 0, apperror.ErrNoMoveAvailable
	}

	if that.suggester != nil {
		cell, err := that.suggest(ctx, board, cpu, opponent)
		if err == nil {
			return cell, nil
		}

		that.logger.Warn("suggestion rejected, falling back to rules", "error", err)
	}

	return RuleBasedMove(board, cpu, opponent)
}

func (that *botService) suggest(ctx context.Context, board entity.Snapshot, cpu, opponent entity.Mark) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, that.timeout)
	defer cancel()

	type answer struct {
		cell int
		err  error
	}

	// the send must not block once we stop listening
	answerCh := make(chan answer, 1)
	go func() {
		cell, err := that.suggester.SuggestMove(ctx, board, cpu, opponent)
		answerCh <- answer{cell: cell, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("suggestion timed out: %w", ctx.Err())
	case resp := <-answerCh:
		if resp.err != nil {
			return 0, fmt.Errorf("failed to get suggestion: %w", resp.err)
		}

		if !board.IsEmptyAt(resp.cell) {
			return 0, fmt.Errorf("%w: cell %d", ErrIllegalSuggestion, resp.cell)
		}

		that.logger.Debug("using suggested move", "cell", resp.cell)

		return resp.cell, nil
	}
}

// RuleBasedMove picks a cell by the fixed cascade: win, block, center, corner, edge.
// It is deterministic for a given board.
func RuleBasedMove(board entity.Snapshot, cpu, opponent entity.Mark) (int, error) {
	empty := board.EmptyIndices()
	if len(empty) == 0 {
		return 0, apperror.ErrNoMoveAvailable
	}

	if cell, ok := findWinningMove(board, empty, cpu); ok {
		return cell, nil
	}

	if cell, ok := findWinningMove(board, empty, opponent); ok {
		return cell, nil
	}

	if board.IsEmptyAt(centerCell) {
		return centerCell, nil
	}

	for _, cell := range cornerCells {
		if board.IsEmptyAt(cell) {
			return cell, nil
		}
	}

	for _, cell := range edgeCells {
		if board.IsEmptyAt(cell) {
			return cell, nil
		}
	}

	// unreachable: the nine cells are center, corners and edges
	return empty[0], nil
}

func findWinningMove(board entity.Snapshot, empty []int, mark entity.Mark) (int, bool) {
	for _, cell := range empty {
		result := tictactoe.Evaluate(board.With(cell, mark))
		if result.Outcome == entity.OutcomeWin && result.Winner == mark {
			return cell, true
		}
	}

	return 0, false
}
