package domain

import "errors"

var (
	// ErrNotFound indicates that a command referenced an id absent from the board.
	// Stale ids are expected while dragging, so callers treat it as a no-op.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference indicates a task was created against a column that does not exist.
	ErrInvalidReference = errors.New("invalid column reference")

	// ErrConcurrentDragRejected is returned when a drag starts while another one is active.
	ErrConcurrentDragRejected = errors.New("drag already in progress")

	// ErrNoActiveDrag is returned for drag events that do not belong to the active session.
	ErrNoActiveDrag = errors.New("no matching drag in progress")

	ErrUnknownCommand = errors.New("unknown command type")
	ErrInvalidPayload = errors.New("invalid command payload")
)
