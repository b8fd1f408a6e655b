package publish

import (
	"context"
	"fmt"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/edit"
)

// CommandType enumerates the editing commands a UI can dispatch. Routing
// every interaction through one dispatch point decouples the UI surface
// from the edit/save state machines.
type CommandType string

const (
	CmdBeginEdit    CommandType = "begin_edit"
	CmdCommitEdit   CommandType = "commit_edit"
	CmdCancelEdit   CommandType = "cancel_edit"
	CmdUndo         CommandType = "undo"
	CmdRedo         CommandType = "redo"
	CmdSave         CommandType = "save"
	CmdAddEntity    CommandType = "add_entity"
	CmdDeleteEntity CommandType = "delete_entity"
)

// Command is one dispatched editing action.
type Command struct {
	Type  CommandType
	Kind  content.Kind
	ID    string
	Field string
	Value any
	// Confirmed carries the UI's explicit confirmation for deletions.
	Confirmed bool
}

// Dispatcher routes commands into the editor, coordinator, and store.
type Dispatcher struct {
	store  *content.Store
	editor *edit.Editor
	coord  *Coordinator
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(store *content.Store, editor *edit.Editor, coord *Coordinator) *Dispatcher {
	return &Dispatcher{store: store, editor: editor, coord: coord}
}

// Dispatch executes one command. The returned value depends on the command:
// a SaveResult for Save, the new slug ID for AddEntity, nil otherwise.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Type {
	case CmdBeginEdit:
		key, err := d.store.ResolveKey(cmd.Kind, cmd.ID)
		if err != nil {
			return nil, err
		}
		return nil, d.editor.BeginEdit(edit.FieldRef{Kind: cmd.Kind, Key: key, Field: cmd.Field})

	case CmdCommitEdit:
		return nil, d.editor.CommitEdit(ctx, cmd.Value)

	case CmdCancelEdit:
		return nil, d.editor.CancelEdit()

	case CmdUndo:
		return nil, d.editor.Undo()

	case CmdRedo:
		return nil, d.editor.Redo()

	case CmdSave:
		return d.coord.Save(ctx)

	case CmdAddEntity:
		return d.store.AddEntity(cmd.Kind)

	case CmdDeleteEntity:
		if !cmd.Confirmed {
			return nil, ErrConfirmRequired
		}
		removed, err := d.store.RemoveEntity(cmd.Kind, cmd.ID)
		if err != nil {
			return nil, err
		}
		if !removed {
			// Absent IDs are a logged no-op the caller must surface.
			return nil, fmt.Errorf("%w: %s %q", content.ErrNotFound, cmd.Kind, cmd.ID)
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}
