package api

import (
	"context"

	"kanban-api/board"
)

// Boards resolves the board owned by a user.
type Boards interface {
	Get(userID string) *board.Board
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents a command from being applied twice when a client retries.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
}

// Streams registers stream clients for a board.
type Streams interface {
	Register(boardID string) (<-chan []byte, func())
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error
