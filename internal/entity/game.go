package entity

import "time"

type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

type Outcome string

const (
	OutcomeOngoing Outcome = "ongoing"
	OutcomeWin     Outcome = "win"
	OutcomeDraw    Outcome = "draw"
)

// Result is always derived from the board, never stored on it.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Winner  Mark    `json:"winner,omitempty"`
}

func Ongoing() Result {
	return Result{Outcome: OutcomeOngoing}
}

func Win(mark Mark) Result {
	return Result{Outcome: OutcomeWin, Winner: mark}
}

func Draw() Result {
	return Result{Outcome: OutcomeDraw}
}

func (that Result) IsTerminal() bool {
	return that.Outcome == OutcomeWin || that.Outcome == OutcomeDraw
}

type Player string

const (
	PlayerHuman Player = "human"
	PlayerCPU   Player = "cpu"

	// ResultDraw is used where a winner role is expected but nobody won.
	ResultDraw Player = "draw"
)

type Move struct {
	Player   Player `json:"player"`
	Mark     Mark   `json:"mark"`
	Position int    `json:"position"`
}

// State is what presentation layers render. It never aliases the live game.
type State struct {
	GameID        string   `json:"game_id,omitempty"`
	Phase         Phase    `json:"phase"`
	Board         Snapshot `json:"board"`
	Turn          Mark     `json:"turn,omitempty"`
	CurrentPlayer Player   `json:"current_player,omitempty"`
	FirstPlayer   Player   `json:"first_player,omitempty"`
	HumanMark     Mark     `json:"human_mark,omitempty"`
	CPUMark       Mark     `json:"cpu_mark,omitempty"`
	Result        Result   `json:"result"`
	WinningLine   []int    `json:"winning_line,omitempty"`
	Moves         []Move   `json:"moves"`
}

func (that *State) IsFinished() bool {
	return that.Phase == PhaseFinished
}

func (that *State) IsHumanTurn() bool {
	return that.Phase == PhaseInProgress && that.CurrentPlayer == PlayerHuman
}

func (that *State) IsCPUTurn() bool {
	return that.Phase == PhaseInProgress && that.CurrentPlayer == PlayerCPU
}

// WinnerRole maps the result onto the player roles of this game.
func (that *State) WinnerRole() Player {
	return WinnerRole(that.Result, that.HumanMark)
}

func WinnerRole(result Result, humanMark Mark) Player {
	switch {
	case result.Outcome == OutcomeDraw:
		return ResultDraw
	case result.Outcome != OutcomeWin:
		return ""
	case result.Winner == humanMark:
		return PlayerHuman
	default:
		return PlayerCPU
	}
}

// GameRecord is one finished game as kept in the history store.
type GameRecord struct {
	ID          string    `json:"id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	FirstPlayer Player    `json:"first_player"`
	HumanMark   Mark      `json:"human_mark"`
	CPUMark     Mark      `json:"cpu_mark"`
	Moves       []Move    `json:"moves"`
	Winner      Player    `json:"winner"`
}
