package board

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Notifier receives a change after every mutation that alters the board.
// Notify is called while the board is locked, so changes arrive in commit order;
// implementations must return without waiting on I/O and must not call back
// into the board.
type Notifier interface {
	Notify(change domain.Change)
}

// Board combines a Store and a drag Tracker and processes commands and gesture
// events one at a time, strictly in arrival order.
type Board struct {
	mu       sync.Mutex
	id       string
	store    *Store
	drag     Tracker
	notifier Notifier
	logger   *log.Logger
}

// New creates a board around store. A nil store starts empty; notifier may be nil.
func New(id string, store *Store, notifier Notifier, logger *log.Logger) *Board {
	if store == nil {
		store = NewStore(nil)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Board{id: id, store: store, notifier: notifier, logger: logger}
}

func (b *Board) ID() string { return b.id }

func (b *Board) Snapshot() domain.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *Board) CreateColumn(title string) (domain.Column, domain.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.store.Version()
	col := b.store.CreateColumn(title)
	return col, b.commit(before, domain.CreateColumn)
}

// DeleteColumn removes the column and its tasks. A drag of the column, or of
// one of its tasks, is cancelled.
func (b *Board) DeleteColumn(id domain.ID) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.store.Version()
	if err := b.store.DeleteColumn(id); err != nil {
		return b.snapshotLocked(), err
	}
	b.cancelIfGone()
	return b.commit(before, domain.DeleteColumn), nil
}

func (b *Board) RenameColumn(id domain.ID, title string) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.store.Version()
	if err := b.store.RenameColumn(id, title); err != nil {
		return b.snapshotLocked(), err
	}
	return b.commit(before, domain.RenameColumn), nil
}

func (b *Board) CreateTask(columnID domain.ID, content string) (domain.Task, domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.store.Version()
	task, err := b.store.CreateTask(columnID, content)
	if err != nil {
		return domain.Task{}, b.snapshotLocked(), err
	}
	return task, b.commit(before, domain.CreateTask), nil
}

func (b *Board) DeleteTask(id domain.ID) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.store.Version()
	if err := b.store.DeleteTask(id); err != nil {
		return b.snapshotLocked(), err
	}
	b.cancelIfGone()
	return b.commit(before, domain.DeleteTask), nil
}

func (b *Board) UpdateTaskContent(id domain.ID, content string) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.store.Version()
	if err := b.store.UpdateTaskContent(id, content); err != nil {
		return b.snapshotLocked(), err
	}
	return b.commit(before, domain.UpdateTaskContent), nil
}

// DragStart lifts a column or task.
func (b *Board) DragStart(kind domain.EntityKind, id domain.ID) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !kind.Valid() {
		return b.snapshotLocked(), fmt.Errorf("drag kind %q: %w", kind, domain.ErrInvalidPayload)
	}
	if !b.exists(kind, id) {
		return b.snapshotLocked(), fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	if err := b.drag.Begin(kind, id); err != nil {
		b.logger.WithFields(log.Fields{"board": b.id, "kind": kind, "id": id}).Debug("drag start rejected")
		return b.snapshotLocked(), err
	}
	return b.snapshotLocked(), nil
}

// DragOver applies a hover tick. Task drags are repositioned and committed
// immediately; column drags are left alone until the drop. Repeating the last
// applied target within a session changes nothing.
func (b *Board) DragOver(activeID, overID domain.ID, overKind domain.EntityKind) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess := b.drag.Current()
	if !sess.Active() || sess.ID != activeID {
		return b.snapshotLocked(), fmt.Errorf("drag over %s: %w", activeID, domain.ErrNoActiveDrag)
	}
	if sess.Kind != domain.KindTask || overID == "" || overID == activeID {
		return b.snapshotLocked(), nil
	}
	if !b.store.HasTask(activeID) {
		b.drag.End()
		return b.snapshotLocked(), fmt.Errorf("task %s: %w", activeID, domain.ErrNotFound)
	}
	if b.drag.repeats(overID, overKind) {
		return b.snapshotLocked(), nil
	}
	b.drag.hovered(overID, overKind)

	before := b.store.Version()
	if next, changed := MoveTasks(b.store.columns, b.store.tasks, activeID, overID, overKind); changed {
		b.store.setTasks(next)
	}
	return b.commit(before, domain.DragOver), nil
}

// DragEnd drops the active entity and returns to idle. Column drags are
// reordered here; task drags were already committed while hovering.
func (b *Board) DragEnd(activeID, overID domain.ID) (domain.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess := b.drag.Current()
	b.drag.End()

	before := b.store.Version()
	if sess.Kind == domain.KindColumn && sess.ID == activeID {
		if next, changed := MoveColumns(b.store.columns, activeID, overID); changed {
			b.store.setColumns(next)
		}
	}
	return b.commit(before, domain.DragEnd), nil
}

// DragCancel abandons the active drag without reordering anything further.
func (b *Board) DragCancel() domain.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag.End()
	return b.snapshotLocked()
}

func (b *Board) exists(kind domain.EntityKind, id domain.ID) bool {
	if kind == domain.KindColumn {
		return b.store.HasColumn(id)
	}
	return b.store.HasTask(id)
}

func (b *Board) cancelIfGone() {
	sess := b.drag.Current()
	if !sess.Active() || b.exists(sess.Kind, sess.ID) {
		return
	}
	b.drag.End()
	b.logger.WithFields(log.Fields{"board": b.id, "kind": sess.Kind, "id": sess.ID}).Debug("dragged entity deleted, drag cancelled")
}

func (b *Board) snapshotLocked() domain.Snapshot {
	snap := b.store.Snapshot()
	snap.Drag = b.drag.Current()
	return snap
}

func (b *Board) commit(before uint64, reason string) domain.Snapshot {
	snap := b.snapshotLocked()
	if snap.Version == before || b.notifier == nil {
		return snap
	}
	b.notifier.Notify(domain.Change{
		BoardID:   b.id,
		Version:   snap.Version,
		Reason:    reason,
		Timestamp: nextTimestamp(),
		Snapshot:  snap,
	})
	return snap
}
