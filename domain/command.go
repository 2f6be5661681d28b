package domain

import "github.com/bytedance/sonic"

const (
	CreateColumn      = "create-column"
	DeleteColumn      = "delete-column"
	RenameColumn      = "rename-column"
	CreateTask        = "create-task"
	DeleteTask        = "delete-task"
	UpdateTaskContent = "update-task-content"
	DragStart         = "drag-start"
	DragOver          = "drag-over"
	DragEnd           = "drag-end"
	DragCancel        = "drag-cancel"
)

// Command represents a single board mutation or gesture event sent by a client.
type Command struct {
	IdempotencyKey string                 `json:"idempotencyKey"`
	Type           string                 `json:"type"`
	Data           sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp,omitempty"`
}

type CreateColumnData struct {
	Title string `json:"title"`
}

type ColumnRefData struct {
	ID ID `json:"id"`
}

type RenameColumnData struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
}

type CreateTaskData struct {
	ColumnID ID     `json:"columnId"`
	Content  string `json:"content"`
}

type TaskRefData struct {
	ID ID `json:"id"`
}

type UpdateTaskContentData struct {
	ID      ID     `json:"id"`
	Content string `json:"content"`
}

type DragStartData struct {
	Kind EntityKind `json:"kind"`
	ID   ID         `json:"id"`
}

// DragOverData carries a hover tick. OverID is empty when the pointer is outside any target.
type DragOverData struct {
	ActiveID ID         `json:"activeId"`
	OverID   ID         `json:"overId"`
	OverKind EntityKind `json:"overKind"`
}

// DragEndData carries the drop. OverID is empty when dropped outside any target.
type DragEndData struct {
	ActiveID ID `json:"activeId"`
	OverID   ID `json:"overId"`
}
