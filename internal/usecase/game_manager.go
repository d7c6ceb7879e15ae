package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
	"github.com/rocketscienceinc/tictactoe-solo/internal/tictactoe"
)

const DefaultReflectTimeout = 10 * time.Second

type botService interface {
	ChooseMove(ctx context.Context, board entity.Snapshot, cpu, opponent entity.Mark) (int, error)
}

// EventSink receives start, move, finish and abandon events.
type EventSink interface {
	RecordEvent(event entity.Event)
}

// Reflector comments on a finished game.
type Reflector interface {
	Reflect(ctx context.Context, moves []entity.Move, winner entity.Player) (string, error)
}

// randomSource picks the first mover; *rand.Rand satisfies it.
type randomSource interface {
	Intn(n int) int
}

// GameManager owns one board and its turn state.
type GameManager struct {
	logger *slog.Logger

	bot       botService
	sink      EventSink
	random    randomSource
	reflector Reflector

	reflectTimeout time.Duration
	now            func() time.Time

	mu          sync.Mutex
	board       *entity.Board
	gameID      string
	phase       entity.Phase
	turn        entity.Mark
	humanMark   entity.Mark
	cpuMark     entity.Mark
	firstPlayer entity.Player
	result      entity.Result
	moves       []entity.Move
}

// NewGameManager wires a game. sink and reflector may be nil.
func NewGameManager(logger *slog.Logger, bot botService, sink EventSink, random randomSource, reflector Reflector, reflectTimeout time.Duration) *GameManager {
	if reflectTimeout <= 0 {
		reflectTimeout = DefaultReflectTimeout
	}

	return &GameManager{
		logger: logger.With("component", "game_manager"),

		bot:       bot,
		sink:      sink,
		random:    random,
		reflector: reflector,

		reflectTimeout: reflectTimeout,
		now:            time.Now,

		board:  entity.NewBoard(),
		phase:  entity.PhaseNotStarted,
		result: entity.Ongoing(),
	}
}

// Start begins a new game. A finished game may be started again without Reset.
func (that *GameManager) Start(_ context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.phase == entity.PhaseInProgress {
		return apperror.ErrGameInProgress
	}

	that.clear()

	that.gameID = uuid.NewString()
	that.phase = entity.PhaseInProgress

	// the first mover always plays X
	if that.random.Intn(2) == 0 {
		that.firstPlayer = entity.PlayerHuman
		that.humanMark, that.cpuMark = entity.PlayerX, entity.PlayerO
	} else {
		that.firstPlayer = entity.PlayerCPU
		that.cpuMark, that.humanMark = entity.PlayerX, entity.PlayerO
	}
	that.turn = entity.PlayerX

	that.logger.Info("game started", "gameID", that.gameID, "firstPlayer", that.firstPlayer)

	that.emit(entity.Event{
		Kind:        entity.EventStart,
		GameID:      that.gameID,
		Time:        that.now(),
		FirstPlayer: that.firstPlayer,
		HumanMark:   that.humanMark,
		CPUMark:     that.cpuMark,
	})

	return nil
}

// SubmitMove plays the human's move.
func (that *GameManager) SubmitMove(index int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.expectTurn(entity.PlayerHuman); err != nil {
		return err
	}

	return that.play(entity.PlayerHuman, index)
}

// TakeCPUTurn lets the CPU move and returns the chosen cell.
// The lock is released while the bot thinks, so state stays readable.
func (that *GameManager) TakeCPUTurn(ctx context.Context) (int, error) {
	that.mu.Lock()
	if err := that.expectTurn(entity.PlayerCPU); err != nil {
		that.mu.Unlock()
		return 0, err
	}

	gameID := that.gameID
	board := that.board.Snapshot()
	cpuMark, humanMark := that.cpuMark, that.humanMark
	that.mu.Unlock()

	log := that.logger.With("method", "TakeCPUTurn", "gameID", gameID)

	cell, err := that.bot.ChooseMove(ctx, board, cpuMark, humanMark)
	if err != nil {
		// an in-progress game always has an empty cell, so this is a sequencing bug
		log.Error("cpu could not choose a move", "error", err, "board", board)
		return 0, fmt.Errorf("cpu failed to choose a move: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	// the game may have been reset, restarted or moved on while the bot was thinking
	if that.gameID != gameID {
		return 0, fmt.Errorf("%w: game %s is gone", apperror.ErrOutOfTurn, gameID)
	}
	if err = that.expectTurn(entity.PlayerCPU); err != nil {
		return 0, err
	}

	if err = that.play(entity.PlayerCPU, cell); err != nil {
		log.Error("cpu chose an unplayable cell", "cell", cell, "error", err)
		return 0, fmt.Errorf("cpu failed to make turn: %w", err)
	}

	return cell, nil
}

// Reset returns to NotStarted from any phase. A game in progress is reported as abandoned.
func (that *GameManager) Reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.logger.Info("game reset", "gameID", that.gameID, "phase", that.phase)

	if that.phase == entity.PhaseInProgress {
		that.emit(entity.Event{
			Kind:   entity.EventAbandon,
			GameID: that.gameID,
			Time:   that.now(),
		})
	}

	that.clear()
}

func (that *GameManager) CurrentState() entity.State {
	that.mu.Lock()
	defer that.mu.Unlock()

	state := entity.State{
		GameID:      that.gameID,
		Phase:       that.phase,
		Board:       that.board.Snapshot(),
		Turn:        that.turn,
		FirstPlayer: that.firstPlayer,
		HumanMark:   that.humanMark,
		CPUMark:     that.cpuMark,
		Result:      that.result,
		Moves:       append([]entity.Move{}, that.moves...),
	}

	if that.phase == entity.PhaseInProgress {
		state.CurrentPlayer = that.playerOf(that.turn)
	}

	if line, ok := tictactoe.WinningLine(that.board); ok {
		state.WinningLine = line[:]
	}

	return state
}

// Reflect asks the reflector about the finished game. Reflector failures give an empty comment.
func (that *GameManager) Reflect(ctx context.Context) (string, error) {
	that.mu.Lock()
	if that.phase != entity.PhaseFinished {
		that.mu.Unlock()
		return "", apperror.ErrGameNotFinished
	}

	gameID := that.gameID
	moves := append([]entity.Move{}, that.moves...)
	winner := entity.WinnerRole(that.result, that.humanMark)
	that.mu.Unlock()

	if that.reflector == nil {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, that.reflectTimeout)
	defer cancel()

	comment, err := that.reflector.Reflect(ctx, moves, winner)
	if err != nil {
		that.logger.Warn("reflection unavailable", "gameID", gameID, "error", err)
		return "", nil
	}

	return comment, nil
}

func (that *GameManager) expectTurn(player entity.Player) error {
	if that.phase != entity.PhaseInProgress {
		return fmt.Errorf("%w: game is %s", apperror.ErrOutOfTurn, that.phase)
	}

	if that.playerOf(that.turn) != player {
		return fmt.Errorf("%w: %s to move", apperror.ErrOutOfTurn, that.playerOf(that.turn))
	}

	return nil
}

// play places the mover's mark, records it and advances the game.
func (that *GameManager) play(player entity.Player, index int) error {
	mark := that.turn

	if err := that.board.Place(index, mark); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	move := entity.Move{Player: player, Mark: mark, Position: index}
	that.moves = append(that.moves, move)

	that.emit(entity.Event{
		Kind:   entity.EventMove,
		GameID: that.gameID,
		Time:   that.now(),
		Move:   &move,
	})

	that.result = tictactoe.Evaluate(that.board)
	if !that.result.IsTerminal() {
		that.turn = mark.Opponent()
		return nil
	}

	that.phase = entity.PhaseFinished
	winner := entity.WinnerRole(that.result, that.humanMark)

	that.logger.Info("game finished", "gameID", that.gameID, "winner", winner, "moves", len(that.moves))

	result := that.result
	that.emit(entity.Event{
		Kind:   entity.EventFinish,
		GameID: that.gameID,
		Time:   that.now(),
		Result: &result,
		Winner: winner,
	})

	return nil
}

func (that *GameManager) playerOf(mark entity.Mark) entity.Player {
	switch mark {
	case that.humanMark:
		return entity.PlayerHuman
	case that.cpuMark:
		return entity.PlayerCPU
	default:
		return ""
	}
}

func (that *GameManager) clear() {
	that.board.Reset()
	that.gameID = ""
	that.phase = entity.PhaseNotStarted
	that.turn = entity.EmptyCell
	that.humanMark = entity.EmptyCell
	that.cpuMark = entity.EmptyCell
	that.firstPlayer = ""
	that.result = entity.Ongoing()
	that.moves = nil
}

func (that *GameManager) emit(event entity.Event) {
	if that.sink == nil {
		return
	}

	that.sink.RecordEvent(event)
}
