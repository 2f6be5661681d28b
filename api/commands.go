package api

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"kanban-api/board"
	"kanban-api/domain"
)

// applyCommand runs one command against b and reports its outcome. Errors are
// folded into the result; none of them abort the rest of the batch.
func applyCommand(b *board.Board, cmd domain.Command) commandResult {
	res := commandResult{IdempotencyKey: cmd.IdempotencyKey}
	err := dispatch(b, cmd, &res)
	res.Status = statusFor(err)
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func dispatch(b *board.Board, cmd domain.Command, res *commandResult) error {
	switch cmd.Type {
	case domain.CreateColumn:
		var d domain.CreateColumnData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		col, _ := b.CreateColumn(d.Title)
		res.Column = &col
		return nil
	case domain.DeleteColumn:
		var d domain.ColumnRefData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.DeleteColumn(d.ID)
		return err
	case domain.RenameColumn:
		var d domain.RenameColumnData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.RenameColumn(d.ID, d.Title)
		return err
	case domain.CreateTask:
		var d domain.CreateTaskData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		task, _, err := b.CreateTask(d.ColumnID, d.Content)
		if err != nil {
			return err
		}
		res.Task = &task
		return nil
	case domain.DeleteTask:
		var d domain.TaskRefData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.DeleteTask(d.ID)
		return err
	case domain.UpdateTaskContent:
		var d domain.UpdateTaskContentData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.UpdateTaskContent(d.ID, d.Content)
		return err
	case domain.DragStart:
		var d domain.DragStartData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.DragStart(d.Kind, d.ID)
		return err
	case domain.DragOver:
		var d domain.DragOverData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.DragOver(d.ActiveID, d.OverID, d.OverKind)
		return err
	case domain.DragEnd:
		var d domain.DragEndData
		if err := decodeData(cmd, &d); err != nil {
			return err
		}
		_, err := b.DragEnd(d.ActiveID, d.OverID)
		return err
	case domain.DragCancel:
		b.DragCancel()
		return nil
	}
	return fmt.Errorf("%q: %w", cmd.Type, domain.ErrUnknownCommand)
}

func decodeData(cmd domain.Command, v any) error {
	if len(cmd.Data) == 0 {
		return fmt.Errorf("%s: missing data: %w", cmd.Type, domain.ErrInvalidPayload)
	}
	if err := sonic.Unmarshal(cmd.Data, v); err != nil {
		return fmt.Errorf("%s: %v: %w", cmd.Type, err, domain.ErrInvalidPayload)
	}
	return nil
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, domain.ErrNotFound):
		return statusNotFound
	case errors.Is(err, domain.ErrInvalidReference):
		return statusInvalidReference
	case errors.Is(err, domain.ErrConcurrentDragRejected):
		return statusRejected
	case errors.Is(err, domain.ErrNoActiveDrag):
		return statusIgnored
	default:
		return statusInvalid
	}
}
