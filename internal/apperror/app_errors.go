package apperror

import "errors"

var (
	ErrGameFinished    = errors.New("game is already finished")
	ErrNotYourTurn     = errors.New("it's not your turn")
	ErrOutOfBounds     = errors.New("move is out of bounds")
	ErrCellOccupied    = errors.New("intersection is already occupied")
	ErrSessionNotFound = errors.New("session not found")
)
