package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/rocketscienceinc/tictactoe-solo/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-solo/internal/entity"
)

const helpText = `Commands:
  start      begin a new game
  0-8        play a cell by index
  row col    play a cell by row and column, e.g. "1 2"
  cpu        let the CPU retry a failed move
  reset      abandon the current game
  history    show recent games
  help       show this help
  quit       leave`

type gameSession interface {
	Start(ctx context.Context) error
	SubmitMove(index int) error
	TakeCPUTurn(ctx context.Context) (int, error)
	Reset()
	CurrentState() entity.State
	Reflect(ctx context.Context) (string, error)
}

type historyService interface {
	Recent(ctx context.Context, limit int) ([]*entity.GameRecord, error)
}

// Console plays one game at a time over a line-based terminal.
type Console struct {
	logger *slog.Logger

	game         gameSession
	history      historyService
	historyLimit int

	in  io.Reader
	out *termenv.Output

	xStyle, oStyle, winStyle, hintStyle termenv.Style
}

func NewConsole(logger *slog.Logger, game gameSession, history historyService, historyLimit int, in io.Reader, out *termenv.Output) *Console {
	return &Console{
		logger: logger.With("component", "console"),

		game:         game,
		history:      history,
		historyLimit: historyLimit,

		in:  in,
		out: out,

		xStyle:    out.String().Foreground(out.Color("9")).Bold(),
		oStyle:    out.String().Foreground(out.Color("12")).Bold(),
		winStyle:  out.String().Foreground(out.Color("10")).Bold().Reverse(),
		hintStyle: out.String().Faint(),
	}
}

// Run reads commands until quit, end of input or ctx is canceled.
func (that *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(that.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	that.println("Tic-Tac-Toe. You against the CPU.")
	that.println(helpText)

	for {
		that.print("> ")

		var (
			line string
			ok   bool
		)

		select {
		case <-ctx.Done():
			that.println("")
			return nil
		case line, ok = <-lines:
		}

		if !ok {
			that.println("")
			select {
			case err := <-readErr:
				if err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
			default:
			}
			return nil
		}

		if quit := that.handle(ctx, strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

func (that *Console) handle(ctx context.Context, line string) bool {
	switch strings.ToLower(line) {
	case "":
		return false
	case "quit", "exit", "q":
		that.println("Bye.")
		return true
	case "help", "?":
		that.println(helpText)
	case "start", "new":
		that.start(ctx)
	case "reset":
		that.game.Reset()
		that.println("Game reset. Type 'start' to play again.")
	case "history":
		that.showHistory(ctx)
	case "cpu":
		if !that.game.CurrentState().IsCPUTurn() {
			that.println("It is not the CPU's turn.")
			return false
		}
		that.advance(ctx)
	default:
		cell, err := parseCell(line)
		if err != nil {
			that.println("Unknown command. Type 'help' for the list.")
			return false
		}
		that.move(ctx, cell)
	}

	return false
}

func (that *Console) start(ctx context.Context) {
	if err := that.game.Start(ctx); err != nil {
		that.reportError(err)
		return
	}

	state := that.game.CurrentState()
	if state.FirstPlayer == entity.PlayerHuman {
		that.printf("You go first as %s.\n", that.mark(state.HumanMark))
	} else {
		that.printf("The CPU goes first. You play %s.\n", that.mark(state.HumanMark))
	}

	that.advance(ctx)
}

func (that *Console) move(ctx context.Context, cell int) {
	if err := that.game.SubmitMove(cell); err != nil {
		that.reportError(err)
		return
	}

	that.advance(ctx)
}

// advance plays the CPU's turn if it is due and then shows where the game stands.
func (that *Console) advance(ctx context.Context) {
	state := that.game.CurrentState()

	if state.IsCPUTurn() {
		cell, err := that.game.TakeCPUTurn(ctx)
		if err != nil {
			that.logger.Error("cpu turn failed", "error", err)
			that.println("The CPU could not move. Type 'cpu' to let it try again.")
			return
		}

		that.printf("CPU plays %d.\n", cell)
		state = that.game.CurrentState()
	}

	that.println(that.renderBoard(state))

	if !state.IsFinished() {
		that.printf("Your move (%s).\n", that.mark(state.HumanMark))
		return
	}

	switch state.WinnerRole() {
	case entity.PlayerHuman:
		that.println("You win!")
	case entity.PlayerCPU:
		that.println("CPU wins.")
	default:
		that.println("It's a draw.")
	}

	comment, err := that.game.Reflect(ctx)
	if err == nil && comment != "" {
		that.println(that.hintStyle.Styled(comment))
	}

	that.println("Type 'start' to play again.")
}

func (that *Console) showHistory(ctx context.Context) {
	records, err := that.history.Recent(ctx, that.historyLimit)
	if err != nil {
		that.logger.Error("failed to load history", "error", err)
		that.println("History is unavailable.")
		return
	}

	if err = PrintHistory(that.out, records); err != nil {
		that.logger.Error("failed to print history", "error", err)
	}
}

func (that *Console) reportError(err error) {
	switch {
	case errors.Is(err, apperror.ErrInvalidIndex):
		that.println("Pick a cell from 0 to 8, or a row and column from 0 to 2.")
	case errors.Is(err, apperror.ErrOccupiedCell):
		that.println("That cell is taken.")
	case errors.Is(err, apperror.ErrGameInProgress):
		that.println("A game is already running. Type 'reset' to abandon it.")
	case errors.Is(err, apperror.ErrOutOfTurn):
		if that.game.CurrentState().Phase == entity.PhaseInProgress {
			that.println("Wait for the CPU.")
		} else {
			that.println("No game is running. Type 'start' to play.")
		}
	default:
		that.logger.Error("unexpected game error", "error", err)
		that.println("Something went wrong.")
	}
}

func (that *Console) renderBoard(state entity.State) string {
	var sb strings.Builder

	for row := 0; row < entity.BoardSide; row++ {
		if row > 0 {
			sb.WriteString("---+---+---\n")
		}

		for col := 0; col < entity.BoardSide; col++ {
			index := row*entity.BoardSide + col
			if col > 0 {
				sb.WriteString("|")
			}

			sb.WriteString(" ")
			sb.WriteString(that.cell(state, index))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (that *Console) cell(state entity.State, index int) string {
	mark := state.Board.Get(index)

	switch {
	case mark == entity.EmptyCell:
		return that.hintStyle.Styled(strconv.Itoa(index))
	case slices.Contains(state.WinningLine, index):
		return that.winStyle.Styled(string(mark))
	default:
		return that.mark(mark)
	}
}

func (that *Console) mark(mark entity.Mark) string {
	if mark == entity.PlayerX {
		return that.xStyle.Styled(string(mark))
	}

	return that.oStyle.Styled(string(mark))
}

func (that *Console) print(s string) {
	_, _ = io.WriteString(that.out, s)
}

func (that *Console) println(s string) {
	that.print(s + "\n")
}

func (that *Console) printf(format string, args ...any) {
	that.print(fmt.Sprintf(format, args...))
}

// parseCell reads "n" as an index or "r c" as row and column.
func parseCell(line string) (int, error) {
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))

	switch len(fields) {
	case 1:
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("not a cell: %w", err)
		}
		return index, nil
	case 2:
		row, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("not a row: %w", err)
		}
		col, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("not a column: %w", err)
		}
		// out-of-range rows reach the board as an invalid index
		index, err := entity.IndexOf(row, col)
		if err != nil {
			return -1, nil
		}
		return index, nil
	default:
		return 0, fmt.Errorf("not a cell: %q", line)
	}
}

// PrintHistory writes one line per record, newest first.
func PrintHistory(w io.Writer, records []*entity.GameRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No games played yet.")
		return err
	}

	for i, record := range records {
		if _, err := fmt.Fprintln(w, formatRecord(i+1, record)); err != nil {
			return fmt.Errorf("failed to print history: %w", err)
		}
	}

	return nil
}

func formatRecord(n int, record *entity.GameRecord) string {
	var outcome string
	switch record.Winner {
	case entity.PlayerHuman:
		outcome = "you won"
	case entity.PlayerCPU:
		outcome = "cpu won"
	default:
		outcome = "draw"
	}

	took := strings.TrimSpace(humanize.RelTime(record.StartTime, record.EndTime, "", ""))

	return fmt.Sprintf("%-5s %-8s you %s, %d moves, took %s, %s",
		humanize.Ordinal(n)+".",
		outcome,
		record.HumanMark,
		len(record.Moves),
		took,
		humanize.Time(record.EndTime),
	)
}
