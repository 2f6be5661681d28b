package board

import "kanban-api/domain"

// arrayMove returns a new slice with the element at from removed and reinserted at to.
// Elements between the two positions shift by one slot. Out-of-range indices return s unchanged.
func arrayMove[T any](s []T, from, to int) []T {
	if from < 0 || from >= len(s) || to < 0 || to >= len(s) || from == to {
		return s
	}
	out := make([]T, 0, len(s))
	moved := s[from]
	for i, v := range s {
		if i == from {
			continue
		}
		if len(out) == to {
			out = append(out, moved)
		}
		out = append(out, v)
	}
	if len(out) == to {
		out = append(out, moved)
	}
	return out
}

func columnIndex(cols []domain.Column, id domain.ID) int {
	for i := range cols {
		if cols[i].ID == id {
			return i
		}
	}
	return -1
}

func taskIndex(tasks []domain.Task, id domain.ID) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// MoveColumns computes the column order after activeID is dropped on overID.
// It reports false and returns cols untouched when the drop implies no change:
// no target, a drop on itself, or an id that is no longer on the board.
func MoveColumns(cols []domain.Column, activeID, overID domain.ID) ([]domain.Column, bool) {
	if overID == "" || activeID == overID {
		return cols, false
	}
	from := columnIndex(cols, activeID)
	to := columnIndex(cols, overID)
	if from < 0 || to < 0 {
		return cols, false
	}
	return arrayMove(cols, from, to), true
}

// MoveTasks computes the task sequence after the active task hovers over a target.
//
// Hovering a task adopts that task's column and moves the active task to the
// hovered task's index in the global sequence. Hovering a column only relabels
// the active task; its index is kept, so it does not jump to the end of the
// column's list.
func MoveTasks(cols []domain.Column, tasks []domain.Task, activeID, overID domain.ID, overKind domain.EntityKind) ([]domain.Task, bool) {
	if overID == "" || activeID == overID {
		return tasks, false
	}
	from := taskIndex(tasks, activeID)
	if from < 0 {
		return tasks, false
	}

	switch overKind {
	case domain.KindTask:
		to := taskIndex(tasks, overID)
		if to < 0 {
			return tasks, false
		}
		out := arrayMove(tasks, from, to)
		out[to].ColumnID = tasks[to].ColumnID
		return out, true
	case domain.KindColumn:
		if columnIndex(cols, overID) < 0 || tasks[from].ColumnID == overID {
			return tasks, false
		}
		out := make([]domain.Task, len(tasks))
		copy(out, tasks)
		out[from].ColumnID = overID
		return out, true
	}
	return tasks, false
}
