package domain

// ID references a column or a task.
type ID string

// EntityKind distinguishes draggable entities.
type EntityKind string

const (
	KindNone   EntityKind = ""
	KindColumn EntityKind = "column"
	KindTask   EntityKind = "task"
)

// Valid reports whether k names a draggable entity.
func (k EntityKind) Valid() bool {
	return k == KindColumn || k == KindTask
}

// Column is a named group of tasks. Its position is its index in the column sequence.
type Column struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

// Task is a single board item owned by a column. Its position within the column is
// the order in which it appears in the global task sequence.
type Task struct {
	ID       ID     `json:"id"`
	ColumnID ID     `json:"columnId"`
	Content  string `json:"content"`
}

// DragSession describes the entity currently being dragged. A zero value means idle.
type DragSession struct {
	Kind EntityKind `json:"kind,omitempty"`
	ID   ID         `json:"id,omitempty"`
}

// Active reports whether a drag is in progress.
func (s DragSession) Active() bool {
	return s.Kind != KindNone
}

// Snapshot is a read-only view of a board.
type Snapshot struct {
	Version uint64      `json:"version"`
	Columns []Column    `json:"columns"`
	Tasks   []Task      `json:"tasks"`
	Drag    DragSession `json:"drag"`
}

// TasksIn returns the tasks owned by columnID in board order.
func (s Snapshot) TasksIn(columnID ID) []Task {
	out := make([]Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ColumnID == columnID {
			out = append(out, t)
		}
	}
	return out
}

// Change is emitted after every mutation that alters a board.
type Change struct {
	BoardID   string   `json:"boardId"`
	Version   uint64   `json:"version"`
	Reason    string   `json:"reason"`
	Timestamp int64    `json:"timestamp"`
	Snapshot  Snapshot `json:"snapshot"`
}
