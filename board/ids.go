package board

import (
	"github.com/google/uuid"

	"kanban-api/domain"
)

// IDGenerator produces unique identifiers for new columns and tasks.
type IDGenerator interface {
	NewID() domain.ID
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() domain.ID

func (f IDFunc) NewID() domain.ID { return f() }

// UUIDs generates random v4 UUID identifiers.
type UUIDs struct{}

func (UUIDs) NewID() domain.ID { return domain.ID(uuid.NewString()) }
