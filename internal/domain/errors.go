package domain

import "errors"

// Domain errors
var (
	ErrPlayerNotFound  = errors.New("player not found on board")
	ErrBoardNotFound   = errors.New("ranking board not found")
	ErrBoardNotTracked = errors.New("ranking board is not tracked")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrBoardNotFound)
}
