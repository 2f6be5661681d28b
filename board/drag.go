package board

import (
	"fmt"

	"kanban-api/domain"
)

type hoverTarget struct {
	id   domain.ID
	kind domain.EntityKind
}

// Tracker records the single active drag session. It performs no geometry:
// activation thresholds are the caller's concern.
type Tracker struct {
	session domain.DragSession
	last    hoverTarget
}

// Begin starts a session. Only one drag may be active at a time.
func (t *Tracker) Begin(kind domain.EntityKind, id domain.ID) error {
	if t.session.Active() {
		return fmt.Errorf("%s %s is being dragged: %w", t.session.Kind, t.session.ID, domain.ErrConcurrentDragRejected)
	}
	t.session = domain.DragSession{Kind: kind, ID: id}
	t.last = hoverTarget{}
	return nil
}

// End clears the session. Calling it while idle is a no-op.
func (t *Tracker) End() {
	t.session = domain.DragSession{}
	t.last = hoverTarget{}
}

func (t *Tracker) Current() domain.DragSession { return t.session }

// repeats reports whether the hover target equals the last one applied in this session.
func (t *Tracker) repeats(id domain.ID, kind domain.EntityKind) bool {
	return t.last.id != "" && t.last == hoverTarget{id: id, kind: kind}
}

func (t *Tracker) hovered(id domain.ID, kind domain.EntityKind) {
	t.last = hoverTarget{id: id, kind: kind}
}
