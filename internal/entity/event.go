package entity

import "time"

type EventKind string

const (
	EventStart   EventKind = "start"
	EventMove    EventKind = "move"
	EventFinish  EventKind = "finish"
	EventAbandon EventKind = "abandon"
)

// Event is emitted by the game manager to its sink.
// Start events fill FirstPlayer and the marks, move events fill Move,
// finish events fill Result and Winner. Abandon events carry only the id
// of a game dropped before it finished.
type Event struct {
	Kind        EventKind `json:"kind"`
	GameID      string    `json:"game_id"`
	Time        time.Time `json:"time"`
	FirstPlayer Player    `json:"first_player,omitempty"`
	HumanMark   Mark      `json:"human_mark,omitempty"`
	CPUMark     Mark      `json:"cpu_mark,omitempty"`
	Move        *Move     `json:"move,omitempty"`
	Result      *Result   `json:"result,omitempty"`
	Winner      Player    `json:"winner,omitempty"`
}
