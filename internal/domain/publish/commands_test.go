package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/edit"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *content.Store, *fakeRemote) {
	t.Helper()
	coord, store, remote, _ := newTestCoordinator(t)
	editor := edit.NewEditor(store, edit.NewHistory(0), coord, nil)
	return NewDispatcher(store, editor, coord), store, remote
}

func TestDispatchEditCycle(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Command{Type: CmdBeginEdit, Kind: content.KindProject, ID: "project-1", Field: "title"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, Command{Type: CmdCommitEdit, Value: "Camera Rig v2"})
	require.NoError(t, err)

	v, err := store.GetField(content.KindProject, "project-1", "title")
	require.NoError(t, err)
	require.Equal(t, "Camera Rig v2", v)

	_, err = d.Dispatch(ctx, Command{Type: CmdUndo})
	require.NoError(t, err)
	v, _ = store.GetField(content.KindProject, "project-1", "title")
	require.Equal(t, "Camera Rig", v)

	_, err = d.Dispatch(ctx, Command{Type: CmdRedo})
	require.NoError(t, err)
	v, _ = store.GetField(content.KindProject, "project-1", "title")
	require.Equal(t, "Camera Rig v2", v)
}

func TestDispatchCancel(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Command{Type: CmdBeginEdit, Kind: content.KindSite, ID: string(content.KindSite), Field: "title"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, Command{Type: CmdCancelEdit})
	require.NoError(t, err)

	v, err := store.GetField(content.KindSite, string(content.KindSite), "title")
	require.NoError(t, err)
	require.Equal(t, "Field Notes", v)
}

func TestDispatchSave(t *testing.T) {
	d, store, remote := newTestDispatcher(t)
	require.NoError(t, store.SetField(content.KindSite, string(content.KindSite), "title", "New"))

	out, err := d.Dispatch(context.Background(), Command{Type: CmdSave})
	require.NoError(t, err)
	result, ok := out.(*SaveResult)
	require.True(t, ok)
	require.True(t, result.Saved)
	require.Equal(t, 1, remote.writes)
}

func TestDispatchAddEntity(t *testing.T) {
	d, store, _ := newTestDispatcher(t)

	out, err := d.Dispatch(context.Background(), Command{Type: CmdAddEntity, Kind: content.KindLog})
	require.NoError(t, err)
	require.Equal(t, "log-002", out)

	doc, err := store.Document()
	require.NoError(t, err)
	require.Len(t, doc.ExplorerLog, 2)
}

func TestDispatchDeleteRequiresConfirmation(t *testing.T) {
	d, store, _ := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, Command{Type: CmdDeleteEntity, Kind: content.KindProject, ID: "project-1"})
	require.ErrorIs(t, err, ErrConfirmRequired)

	doc, err := store.Document()
	require.NoError(t, err)
	require.Len(t, doc.Projects, 1)

	_, err = d.Dispatch(ctx, Command{Type: CmdDeleteEntity, Kind: content.KindProject, ID: "project-1", Confirmed: true})
	require.NoError(t, err)

	doc, err = store.Document()
	require.NoError(t, err)
	require.Empty(t, doc.Projects)
}

func TestDispatchDeleteMissingEntity(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Command{
		Type: CmdDeleteEntity, Kind: content.KindLog, ID: "log-999", Confirmed: true,
	})
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestDispatchUnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Command{Type: CommandType("teleport")})
	require.ErrorIs(t, err, ErrUnknownCommand)
}
