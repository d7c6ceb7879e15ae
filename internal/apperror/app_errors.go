package apperror

import "errors"

var (
	ErrInvalidIndex    = errors.New("invalid cell index")
	ErrOccupiedCell    = errors.New("cell is already occupied")
	ErrInvalidMark     = errors.New("invalid player mark")
	ErrOutOfTurn       = errors.New("it's not your turn")
	ErrNoMoveAvailable = errors.New("no available moves")
	ErrGameInProgress  = errors.New("game is already in progress")
	ErrGameNotFinished = errors.New("game is not finished")
	ErrSessionNotFound = errors.New("session not found")
	ErrGameNotFound    = errors.New("game not found")
)
