package errors

import "errors"

var (
	ErrNotFound = errors.New("session not found")

	ErrInvalidID = errors.New("invalid session ID format")

	// ErrDuplicate means another active session already holds the slot.
	ErrDuplicate = errors.New("slot already booked")

	// ErrStatusConflict means the session is not in a status the requested
	// transition may start from.
	ErrStatusConflict = errors.New("session status does not allow this transition")
)
