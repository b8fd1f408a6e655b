// Package publish is the single chokepoint through which local mutations
// become remote writes: whole-document saves keyed by blob SHA for the
// admin path, and durable per-field edits with best-effort remote sync for
// workshop mode.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/edit"
	"github.com/jhall/workbench/internal/github"
	"github.com/jhall/workbench/internal/repository"
)

// changeLogBound caps the durable change log, matching the browser's
// last-50-edits window.
const changeLogBound = 50

// RemoteStore reads and writes blobs in the remote repository.
type RemoteStore interface {
	ReadFile(ctx context.Context, path string) (*github.File, error)
	WriteFile(ctx context.Context, path string, content []byte, expectedSHA, message string) (string, error)
}

// Coordinator orchestrates the save cycle over one content store.
type Coordinator struct {
	store    *content.Store
	remote   RemoteStore
	changes  repository.ChangeRepository
	dataPath string
	logger   *slog.Logger
	now      func() time.Time
}

// NewCoordinator creates a coordinator. remote may be nil, in which case
// whole-document saves fail and per-field edits are durable locally only.
func NewCoordinator(store *content.Store, remote RemoteStore, changes repository.ChangeRepository, dataPath string, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dataPath == "" {
		dataPath = "data.json"
	}
	return &Coordinator{
		store:    store,
		remote:   remote,
		changes:  changes,
		dataPath: dataPath,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// SaveResult reports the outcome of a whole-document save.
type SaveResult struct {
	// Saved is false when the store was clean and nothing was transmitted.
	Saved bool
	// SHA is the remote blob's new version token.
	SHA string
	// Retried is true when a stale-SHA conflict forced a refetch-and-retry.
	Retried bool
}

// Save pushes the full serialized document to the remote using the last
// observed SHA. A clean store is an informational no-op. A stale-SHA
// conflict triggers exactly one refetch-and-retry with the freshest SHA
// (last write wins); any other failure leaves the dirty flag set so the
// caller can re-trigger the save.
func (c *Coordinator) Save(ctx context.Context) (*SaveResult, error) {
	if !c.store.IsDirty() {
		return &SaveResult{Saved: false, SHA: c.store.SHA()}, nil
	}
	if c.remote == nil {
		return nil, ErrNoRemote
	}

	payload, err := c.store.Serialize()
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Update content via admin panel - %s", c.now().UTC().Format(time.RFC3339))
	result := &SaveResult{Saved: true}

	sha, err := c.remote.WriteFile(ctx, c.dataPath, payload, c.store.SHA(), message)
	if errors.Is(err, github.ErrConflict) {
		c.logger.Warn("save conflict, refetching latest sha", "path", c.dataPath)
		latest, readErr := c.remote.ReadFile(ctx, c.dataPath)
		if readErr != nil {
			return nil, fmt.Errorf("refetching after conflict: %w", readErr)
		}
		result.Retried = true
		sha, err = c.remote.WriteFile(ctx, c.dataPath, payload, latest.SHA, message)
	}
	if err != nil {
		return nil, err
	}

	c.store.SetSHA(sha)
	c.store.ClearDirty()
	result.SHA = sha
	c.logger.Info("document saved", "path", c.dataPath, "sha", sha, "retried", result.Retried)
	return result, nil
}

// PersistEdit implements edit.Persister for workshop-mode commits: the edit
// is recorded durably in the change log, then the whole document is pushed
// to the remote on a best-effort basis. A change-log failure is an error
// (the editor reverts its optimistic update); a remote failure is only
// logged.
func (c *Coordinator) PersistEdit(ctx context.Context, ref edit.FieldRef, newValue, prior any) error {
	entityID := string(ref.Kind)
	if ref.Kind != content.KindSite {
		id, err := c.store.GetFieldByKey(ref.Kind, ref.Key, "id")
		if err != nil {
			return fmt.Errorf("resolving entity id: %w", err)
		}
		entityID = id.(string)
	}

	if err := c.recordChange(ctx, string(ref.Kind), entityID, ref.Field, newValue, prior); err != nil {
		return err
	}

	c.syncBestEffort(ctx, fmt.Sprintf("Workshop edit: %s %s.%s", ref.Kind, entityID, ref.Field))
	return nil
}

// FieldEdit is one per-field write from the workshop endpoint, carrying the
// content-type tag and element identifier from the wire.
type FieldEdit struct {
	ContentType     string `json:"contentType"`
	ElementID       string `json:"elementId"`
	NewContent      string `json:"newContent"`
	OriginalContent string `json:"originalContent"`
}

// EditResult reports a per-field write. Synced false means the change is
// durable locally but not confirmed on the remote; callers must treat
// success as best-effort, not a remote durability guarantee.
type EditResult struct {
	Timestamp int64
	Synced    bool
}

// ApplyFieldEdit validates and applies one workshop edit: resolve the
// target from the content-type tag, mutate the store, record the change
// idempotently (keyed by entity and field), then best-effort sync.
func (c *Coordinator) ApplyFieldEdit(ctx context.Context, fe FieldEdit) (*EditResult, error) {
	if fe.ContentType == "" || fe.ElementID == "" {
		return nil, ErrMissingFields
	}

	kind, id, field, err := resolveContentType(fe.ContentType, fe.ElementID)
	if err != nil {
		return nil, err
	}

	prior, err := c.store.GetField(kind, id, field)
	if err != nil {
		return nil, err
	}
	if err := c.store.SetField(kind, id, field, fe.NewContent); err != nil {
		return nil, err
	}

	entityID := id
	if kind == content.KindSite {
		entityID = string(content.KindSite)
	}
	if err := c.recordChange(ctx, string(kind), entityID, field, fe.NewContent, prior); err != nil {
		// The store mutation is rolled back so a failed write never leaves
		// the document out of step with the change log.
		if revertErr := c.store.SetField(kind, id, field, prior); revertErr != nil {
			c.logger.Error("failed to revert field edit", "error", revertErr)
		}
		return nil, err
	}

	synced := c.syncBestEffort(ctx, fmt.Sprintf("Workshop edit: %s %s.%s", kind, entityID, field))
	return &EditResult{Timestamp: c.now().UnixMilli(), Synced: synced}, nil
}

// FileChange is one file in a background sync request.
type FileChange struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// SyncOutcome reports a background sync.
type SyncOutcome struct {
	Synced  bool
	Message string
	SHA     string
}

// SyncFiles commits arbitrary files to the remote. Without a configured
// remote the request degrades gracefully: changes stay local and the
// caller is told sync was skipped rather than getting an error.
func (c *Coordinator) SyncFiles(ctx context.Context, description string, files []FileChange) (*SyncOutcome, error) {
	if description == "" || len(files) == 0 {
		return nil, ErrMissingFields
	}
	if c.remote == nil {
		c.logger.Info("remote sync skipped: not configured", "files", len(files))
		return &SyncOutcome{Synced: false, Message: "Changes saved locally (GitHub sync not configured)"}, nil
	}

	var lastSHA string
	for _, file := range files {
		expected := ""
		if existing, err := c.remote.ReadFile(ctx, file.Path); err == nil {
			expected = existing.SHA
		} else if !errors.Is(err, github.ErrNotFound) {
			c.logger.Error("remote sync failed", "path", file.Path, "error", err)
			return &SyncOutcome{Synced: false, Message: "Changes saved locally (GitHub sync failed)"}, nil
		}

		sha, err := c.remote.WriteFile(ctx, file.Path, []byte(file.Content), expected, description)
		if err != nil {
			c.logger.Error("remote sync failed", "path", file.Path, "error", err)
			return &SyncOutcome{Synced: false, Message: "Changes saved locally (GitHub sync failed)"}, nil
		}
		lastSHA = sha
	}

	return &SyncOutcome{Synced: true, Message: "Changes synced to GitHub successfully", SHA: lastSHA}, nil
}

func (c *Coordinator) recordChange(ctx context.Context, kind, entityID, field string, newValue, prior any) error {
	if c.changes == nil {
		return nil
	}
	change := &repository.Change{
		Kind:          kind,
		EntityID:      entityID,
		Field:         field,
		NewValue:      fmt.Sprint(newValue),
		OriginalValue: fmt.Sprint(prior),
		UpdatedAt:     c.now(),
	}
	if err := c.changes.Upsert(ctx, change); err != nil {
		return fmt.Errorf("recording change: %w", err)
	}
	if err := c.changes.Prune(ctx, changeLogBound); err != nil {
		c.logger.Warn("failed to prune change log", "error", err)
	}
	return nil
}

// syncBestEffort pushes the current document to the remote when one is
// configured. Failures are logged, never propagated: the caller's edit is
// already durable locally.
func (c *Coordinator) syncBestEffort(ctx context.Context, message string) bool {
	if c.remote == nil {
		c.logger.Info("remote sync skipped: not configured")
		return false
	}

	payload, err := c.store.Serialize()
	if err != nil {
		c.logger.Error("cannot serialize document for sync", "error", err)
		return false
	}

	sha, err := c.remote.WriteFile(ctx, c.dataPath, payload, c.store.SHA(), message)
	if errors.Is(err, github.ErrConflict) {
		latest, readErr := c.remote.ReadFile(ctx, c.dataPath)
		if readErr != nil {
			c.logger.Error("remote sync conflict refetch failed", "error", readErr)
			return false
		}
		sha, err = c.remote.WriteFile(ctx, c.dataPath, payload, latest.SHA, message)
	}
	if err != nil {
		c.logger.Error("remote sync failed", "error", err)
		return false
	}

	c.store.SetSHA(sha)
	c.store.ClearDirty()
	return true
}

// resolveContentType maps a wire content-type tag and element identifier to
// a store address. Project tags carry the field as an element-id suffix.
func resolveContentType(contentType, elementID string) (content.Kind, string, string, error) {
	switch contentType {
	case "explorer-log", "log-content":
		return content.KindLog, elementID, "content", nil
	case "log-date":
		return content.KindLog, elementID, "date", nil
	case "project-title":
		return content.KindProject, strings.TrimSuffix(elementID, "-title"), "title", nil
	case "project-description":
		return content.KindProject, strings.TrimSuffix(elementID, "-description"), "description", nil
	case "site-title":
		return content.KindSite, string(content.KindSite), "title", nil
	case "site-description":
		return content.KindSite, string(content.KindSite), "description", nil
	default:
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}
}
