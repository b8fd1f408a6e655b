package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/edit"
	"github.com/jhall/workbench/internal/github"
	"github.com/jhall/workbench/internal/repository"
	"github.com/jhall/workbench/internal/repository/mocks"
)

// fakeRemote is an in-memory RemoteStore with SHA preconditions.
type fakeRemote struct {
	files     map[string]*github.File
	writes    int
	conflicts int
	failWith  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string]*github.File{}}
}

func (f *fakeRemote) seed(path string, body []byte, sha string) {
	f.files[path] = &github.File{Path: path, Content: body, SHA: sha}
}

func (f *fakeRemote) ReadFile(_ context.Context, path string) (*github.File, error) {
	file, ok := f.files[path]
	if !ok {
		return nil, &github.ReadError{Path: path, Status: 404}
	}
	copied := *file
	return &copied, nil
}

func (f *fakeRemote) WriteFile(_ context.Context, path string, body []byte, expectedSHA, _ string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	if existing, ok := f.files[path]; ok && expectedSHA != existing.SHA {
		f.conflicts++
		return "", &github.ConflictError{Path: path, ExpectedSHA: expectedSHA, Status: 409}
	}
	f.writes++
	sha := fmt.Sprintf("sha-%d", f.writes)
	f.files[path] = &github.File{Path: path, Content: body, SHA: sha}
	return sha, nil
}

// fakeChanges is a stateful change log keyed by (kind, entity, field).
type fakeChanges struct {
	rows map[string]repository.Change
}

func newFakeChanges() *fakeChanges {
	return &fakeChanges{rows: map[string]repository.Change{}}
}

func (f *fakeChanges) key(c *repository.Change) string {
	return c.Kind + "|" + c.EntityID + "|" + c.Field
}

func (f *fakeChanges) Upsert(_ context.Context, change *repository.Change) error {
	f.rows[f.key(change)] = *change
	return nil
}

func (f *fakeChanges) List(_ context.Context, _ int) ([]repository.Change, error) {
	var out []repository.Change
	for _, c := range f.rows {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeChanges) Prune(_ context.Context, _ int) error { return nil }

func testDocument() content.Document {
	return content.Document{
		Site: content.Site{Title: "Field Notes", Description: "Notes"},
		ExplorerLog: []content.LogEntry{
			{ID: "log-001", Date: "2025.07.01", Content: "first"},
		},
		Projects: []content.Project{
			{ID: "project-1", Title: "Camera Rig", Description: "rig"},
		},
		OtherProjects: []string{},
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *content.Store, *fakeRemote, *fakeChanges) {
	t.Helper()
	store := content.NewStore()
	require.NoError(t, store.Load(testDocument(), "sha-0"))

	remote := newFakeRemote()
	payload, err := store.Serialize()
	require.NoError(t, err)
	remote.seed("data.json", payload, "sha-0")

	changes := newFakeChanges()
	coord := NewCoordinator(store, remote, changes, "data.json", nil)
	coord.SetClock(func() time.Time {
		return time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	})
	return coord, store, remote, changes
}

func TestSaveCleanStoreIsNoOp(t *testing.T) {
	coord, _, remote, _ := newTestCoordinator(t)

	result, err := coord.Save(context.Background())
	require.NoError(t, err)
	require.False(t, result.Saved)
	require.Equal(t, "sha-0", result.SHA)
	require.Zero(t, remote.writes)
}

func TestSaveReplacesSHA(t *testing.T) {
	coord, store, remote, _ := newTestCoordinator(t)
	require.NoError(t, store.SetField(content.KindSite, string(content.KindSite), "title", "New"))

	result, err := coord.Save(context.Background())
	require.NoError(t, err)
	require.True(t, result.Saved)
	require.False(t, result.Retried)
	require.Equal(t, "sha-1", result.SHA)
	require.Equal(t, "sha-1", store.SHA())
	require.False(t, store.IsDirty())
	require.Equal(t, 1, remote.writes)
}

func TestSaveRetriesOnceOnConflict(t *testing.T) {
	coord, store, remote, _ := newTestCoordinator(t)
	require.NoError(t, store.SetField(content.KindSite, string(content.KindSite), "title", "New"))

	// Another writer bumped the blob since our last fetch.
	remote.seed("data.json", []byte(`{}`), "sha-theirs")

	result, err := coord.Save(context.Background())
	require.NoError(t, err)
	require.True(t, result.Retried)
	require.Equal(t, 1, remote.conflicts)
	require.Equal(t, 1, remote.writes)
	require.Equal(t, result.SHA, store.SHA())
	require.False(t, store.IsDirty())

	// Last write wins: our payload replaced theirs.
	file, err := remote.ReadFile(context.Background(), "data.json")
	require.NoError(t, err)
	require.Contains(t, string(file.Content), "New")
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	coord, store, remote, _ := newTestCoordinator(t)
	require.NoError(t, store.SetField(content.KindSite, string(content.KindSite), "title", "New"))
	remote.failWith = &github.WriteError{Path: "data.json", Status: 500}

	_, err := coord.Save(context.Background())
	require.Error(t, err)
	require.True(t, store.IsDirty())
	require.Equal(t, "sha-0", store.SHA())
}

func TestSaveWithoutRemote(t *testing.T) {
	store := content.NewStore()
	require.NoError(t, store.Load(testDocument(), ""))
	store.MarkDirty()

	coord := NewCoordinator(store, nil, newFakeChanges(), "data.json", nil)
	_, err := coord.Save(context.Background())
	require.ErrorIs(t, err, ErrNoRemote)
}

func TestSaveCommitMessageFormat(t *testing.T) {
	coord, store, remote, _ := newTestCoordinator(t)
	require.NoError(t, store.SetField(content.KindSite, string(content.KindSite), "title", "New"))

	capture := &messageCapture{inner: remote}
	coord.remote = capture

	_, err := coord.Save(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Update content via admin panel - 2025-08-15T10:00:00Z", capture.lastMessage)
}

type messageCapture struct {
	inner       RemoteStore
	lastMessage string
}

func (m *messageCapture) ReadFile(ctx context.Context, path string) (*github.File, error) {
	return m.inner.ReadFile(ctx, path)
}

func (m *messageCapture) WriteFile(ctx context.Context, path string, body []byte, sha, message string) (string, error) {
	m.lastMessage = message
	return m.inner.WriteFile(ctx, path, body, sha, message)
}

func TestApplyFieldEdit(t *testing.T) {
	coord, store, remote, changes := newTestCoordinator(t)

	result, err := coord.ApplyFieldEdit(context.Background(), FieldEdit{
		ContentType: "project-title",
		ElementID:   "project-1-title",
		NewContent:  "Camera Rig v2",
	})
	require.NoError(t, err)
	require.True(t, result.Synced)
	require.NotZero(t, result.Timestamp)

	v, err := store.GetField(content.KindProject, "project-1", "title")
	require.NoError(t, err)
	require.Equal(t, "Camera Rig v2", v)

	row, ok := changes.rows["projects|project-1|title"]
	require.True(t, ok)
	require.Equal(t, "Camera Rig v2", row.NewValue)
	require.Equal(t, "Camera Rig", row.OriginalValue)
	require.Equal(t, 1, remote.writes)
}

func TestApplyFieldEditIdempotentChangeLog(t *testing.T) {
	coord, _, _, changes := newTestCoordinator(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		_, err := coord.ApplyFieldEdit(ctx, FieldEdit{
			ContentType: "project-title",
			ElementID:   "project-1-title",
			NewContent:  title,
		})
		require.NoError(t, err)
	}

	// Re-editing the same field replaces the row instead of appending.
	require.Len(t, changes.rows, 1)
	require.Equal(t, "C", changes.rows["projects|project-1|title"].NewValue)
}

func TestApplyFieldEditValidation(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := coord.ApplyFieldEdit(ctx, FieldEdit{ContentType: "site-title"})
	require.ErrorIs(t, err, ErrMissingFields)

	_, err = coord.ApplyFieldEdit(ctx, FieldEdit{ContentType: "nav-menu", ElementID: "nav", NewContent: "x"})
	require.ErrorIs(t, err, ErrUnknownContentType)

	_, err = coord.ApplyFieldEdit(ctx, FieldEdit{ContentType: "log-content", ElementID: "log-999", NewContent: "x"})
	require.ErrorIs(t, err, content.ErrNotFound)
}

func TestApplyFieldEditSurvivesRemoteFailure(t *testing.T) {
	coord, store, remote, changes := newTestCoordinator(t)
	remote.failWith = &github.WriteError{Path: "data.json", Status: 500}

	result, err := coord.ApplyFieldEdit(context.Background(), FieldEdit{
		ContentType: "site-description",
		ElementID:   "site-description",
		NewContent:  "Updated notes",
	})
	require.NoError(t, err)
	require.False(t, result.Synced)

	// The edit is applied and recorded despite the sync failure.
	v, err := store.GetField(content.KindSite, string(content.KindSite), "description")
	require.NoError(t, err)
	require.Equal(t, "Updated notes", v)
	require.Len(t, changes.rows, 1)
}

func TestPersistEditRecordsSlugID(t *testing.T) {
	coord, store, _, changes := newTestCoordinator(t)

	key, err := store.ResolveKey(content.KindProject, "project-1")
	require.NoError(t, err)

	err = coord.PersistEdit(context.Background(),
		edit.FieldRef{Kind: content.KindProject, Key: key, Field: "title"},
		"Renamed", "Camera Rig")
	require.NoError(t, err)

	row, ok := changes.rows["projects|project-1|title"]
	require.True(t, ok)
	require.Equal(t, "Renamed", row.NewValue)
}

func TestPersistEditUsesMockRepository(t *testing.T) {
	store := content.NewStore()
	require.NoError(t, store.Load(testDocument(), "sha-0"))

	changeRepo := &mocks.ChangeRepository{}
	changeRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(c *repository.Change) bool {
		return c.Kind == string(content.KindSite) && c.Field == "title"
	})).Return(nil)
	changeRepo.On("Prune", mock.Anything, 50).Return(nil)

	coord := NewCoordinator(store, nil, changeRepo, "data.json", nil)
	err := coord.PersistEdit(context.Background(),
		edit.FieldRef{Kind: content.KindSite, Key: string(content.KindSite), Field: "title"},
		"New", "Field Notes")
	require.NoError(t, err)
	changeRepo.AssertExpectations(t)
}

func TestPersistEditChangeLogFailureIsFatal(t *testing.T) {
	store := content.NewStore()
	require.NoError(t, store.Load(testDocument(), "sha-0"))

	boom := errors.New("disk full")
	changeRepo := &mocks.ChangeRepository{}
	changeRepo.On("Upsert", mock.Anything, mock.Anything).Return(boom)

	coord := NewCoordinator(store, nil, changeRepo, "data.json", nil)
	err := coord.PersistEdit(context.Background(),
		edit.FieldRef{Kind: content.KindSite, Key: string(content.KindSite), Field: "title"},
		"New", "Field Notes")
	require.ErrorIs(t, err, boom)
}

func TestSyncFilesWithoutRemote(t *testing.T) {
	store := content.NewStore()
	require.NoError(t, store.Load(testDocument(), ""))
	coord := NewCoordinator(store, nil, newFakeChanges(), "data.json", nil)

	outcome, err := coord.SyncFiles(context.Background(), "desc", []FileChange{{Path: "a.md", Content: "x"}})
	require.NoError(t, err)
	require.False(t, outcome.Synced)
	require.Equal(t, "Changes saved locally (GitHub sync not configured)", outcome.Message)
}

func TestSyncFilesWritesEachFile(t *testing.T) {
	coord, _, remote, _ := newTestCoordinator(t)
	remote.seed("notes.md", []byte("old"), "sha-notes")

	outcome, err := coord.SyncFiles(context.Background(), "Update docs", []FileChange{
		{Path: "notes.md", Content: "new notes"},
		{Path: "fresh.md", Content: "brand new"},
	})
	require.NoError(t, err)
	require.True(t, outcome.Synced)
	require.Equal(t, "Changes synced to GitHub successfully", outcome.Message)
	require.NotEmpty(t, outcome.SHA)

	file, err := remote.ReadFile(context.Background(), "notes.md")
	require.NoError(t, err)
	require.Equal(t, "new notes", string(file.Content))
	_, err = remote.ReadFile(context.Background(), "fresh.md")
	require.NoError(t, err)
}

func TestSyncFilesValidation(t *testing.T) {
	coord, _, _, _ := newTestCoordinator(t)

	_, err := coord.SyncFiles(context.Background(), "", []FileChange{{Path: "a", Content: "b"}})
	require.ErrorIs(t, err, ErrMissingFields)

	_, err = coord.SyncFiles(context.Background(), "desc", nil)
	require.ErrorIs(t, err, ErrMissingFields)
}
