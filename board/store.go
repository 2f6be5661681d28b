package board

import (
	"fmt"
	"slices"

	"kanban-api/domain"
)

// Store owns the ordered column and task sequences of a single board.
//
// Sequences are copy-on-write: a mutation always installs a new slice, so a
// slice handed out earlier never changes underneath its reader. Store is not
// safe for concurrent use; Board serializes access.
type Store struct {
	ids     IDGenerator
	columns []domain.Column
	tasks   []domain.Task
	version uint64
}

// NewStore creates an empty store. A nil generator falls back to UUIDs.
func NewStore(ids IDGenerator) *Store {
	if ids == nil {
		ids = UUIDs{}
	}
	return &Store{ids: ids, columns: []domain.Column{}, tasks: []domain.Task{}}
}

// Version increments on every change to either sequence.
func (s *Store) Version() uint64 { return s.version }

// CreateColumn appends a column. An empty title becomes "Column N".
func (s *Store) CreateColumn(title string) domain.Column {
	if title == "" {
		title = fmt.Sprintf("Column %d", len(s.columns)+1)
	}
	col := domain.Column{ID: s.ids.NewID(), Title: title}
	s.setColumns(append(slices.Clip(s.columns), col))
	return col
}

// DeleteColumn removes the column and every task it owns.
func (s *Store) DeleteColumn(id domain.ID) error {
	idx := columnIndex(s.columns, id)
	if idx < 0 {
		return fmt.Errorf("column %s: %w", id, domain.ErrNotFound)
	}
	s.setColumns(slices.Delete(slices.Clone(s.columns), idx, idx+1))

	remaining := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.ColumnID != id {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) != len(s.tasks) {
		s.tasks = remaining
	}
	return nil
}

// RenameColumn replaces the column title.
func (s *Store) RenameColumn(id domain.ID, title string) error {
	idx := columnIndex(s.columns, id)
	if idx < 0 {
		return fmt.Errorf("column %s: %w", id, domain.ErrNotFound)
	}
	if s.columns[idx].Title == title {
		return nil
	}
	next := slices.Clone(s.columns)
	next[idx].Title = title
	s.setColumns(next)
	return nil
}

// CreateTask appends a task to the end of the task sequence, making it the last
// task of its column. An empty content becomes "Task N".
func (s *Store) CreateTask(columnID domain.ID, content string) (domain.Task, error) {
	if columnIndex(s.columns, columnID) < 0 {
		return domain.Task{}, fmt.Errorf("column %s: %w", columnID, domain.ErrInvalidReference)
	}
	if content == "" {
		content = fmt.Sprintf("Task %d", len(s.tasks)+1)
	}
	task := domain.Task{ID: s.ids.NewID(), ColumnID: columnID, Content: content}
	s.setTasks(append(slices.Clip(s.tasks), task))
	return task, nil
}

func (s *Store) DeleteTask(id domain.ID) error {
	idx := taskIndex(s.tasks, id)
	if idx < 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	s.setTasks(slices.Delete(slices.Clone(s.tasks), idx, idx+1))
	return nil
}

func (s *Store) UpdateTaskContent(id domain.ID, content string) error {
	idx := taskIndex(s.tasks, id)
	if idx < 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if s.tasks[idx].Content == content {
		return nil
	}
	next := slices.Clone(s.tasks)
	next[idx].Content = content
	s.setTasks(next)
	return nil
}

func (s *Store) HasColumn(id domain.ID) bool { return columnIndex(s.columns, id) >= 0 }

func (s *Store) HasTask(id domain.ID) bool { return taskIndex(s.tasks, id) >= 0 }

// Snapshot returns copies of both sequences.
func (s *Store) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Version: s.version,
		Columns: slices.Clone(s.columns),
		Tasks:   slices.Clone(s.tasks),
	}
}

func (s *Store) setColumns(next []domain.Column) {
	s.columns = next
	s.version++
}

func (s *Store) setTasks(next []domain.Task) {
	s.tasks = next
	s.version++
}
