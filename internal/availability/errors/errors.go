package errors

import "errors"

var (
	ErrNotFound = errors.New("availability window not found")

	ErrInvalidID = errors.New("invalid availability window ID format")

	ErrDuplicate = errors.New("availability window already exists for this day")
)
