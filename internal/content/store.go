package content

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the authoritative in-memory document, the last observed
// remote blob SHA, and a dirty flag. Mutations are in-memory only; no
// network I/O happens here.
//
// The SHA is the sole concurrency token: exactly one is held at a time,
// replaced after every successful remote write.
type Store struct {
	mu    sync.RWMutex
	doc   *Document
	sha   string
	dirty bool
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Validate checks the structural invariants of a document: all four
// top-level keys present and the required site fields non-empty.
func Validate(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}
	if doc.Site.Title == "" {
		return fmt.Errorf("%w: site.title is required", ErrInvalidDocument)
	}
	if doc.Site.Description == "" {
		return fmt.Errorf("%w: site.description is required", ErrInvalidDocument)
	}
	if doc.ExplorerLog == nil {
		return fmt.Errorf("%w: explorerLog is required", ErrInvalidDocument)
	}
	if doc.Projects == nil {
		return fmt.Errorf("%w: projects is required", ErrInvalidDocument)
	}
	if doc.OtherProjects == nil {
		return fmt.Errorf("%w: otherProjects is required", ErrInvalidDocument)
	}
	return nil
}

// Load replaces the current document and SHA and clears the dirty flag.
// Entities are assigned fresh surrogate keys.
func (s *Store) Load(doc Document, sha string) error {
	if err := Validate(&doc); err != nil {
		return err
	}

	copied := cloneDocument(&doc)
	for i := range copied.ExplorerLog {
		copied.ExplorerLog[i].Key = uuid.NewString()
	}
	for i := range copied.Projects {
		copied.Projects[i].Key = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = copied
	s.sha = sha
	s.dirty = false
	return nil
}

// Document returns a deep copy of the current document.
func (s *Store) Document() (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return Document{}, ErrNotLoaded
	}
	return *cloneDocument(s.doc), nil
}

// SHA returns the last observed remote blob SHA.
func (s *Store) SHA() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sha
}

// SetSHA records the SHA returned by a successful remote write.
func (s *Store) SetSHA(sha string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sha = sha
}

// IsDirty reports whether unsaved local mutations exist.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkDirty flags the store as holding unsaved mutations.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// ClearDirty resets the dirty flag after a successful save.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// SetDirty restores a previously observed dirty state. Used when reverting
// an optimistic update that should not leave the flag raised.
func (s *Store) SetDirty(dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = dirty
}

// Serialize validates the document and renders it as indent-2 JSON, the
// canonical wire form for whole-document writes. Validation failures reject
// the document before any transmission.
func (s *Store) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	if err := Validate(s.doc); err != nil {
		return nil, err
	}
	return json.MarshalIndent(s.doc, "", "  ")
}

// SortedLog returns log entries ordered by date descending.
func (s *Store) SortedLog() ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	return SortLog(s.doc.ExplorerLog), nil
}

// ResolveKey maps a slug ID to the entity's surrogate key.
func (s *Store) ResolveKey(kind Kind, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return "", ErrNotLoaded
	}
	switch kind {
	case KindLog:
		for i := range s.doc.ExplorerLog {
			if s.doc.ExplorerLog[i].ID == id {
				return s.doc.ExplorerLog[i].Key, nil
			}
		}
	case KindProject:
		for i := range s.doc.Projects {
			if s.doc.Projects[i].ID == id {
				return s.doc.Projects[i].Key, nil
			}
		}
	case KindSite:
		return string(KindSite), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return "", fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// GetField reads a field from the entity with the given slug ID.
func (s *Store) GetField(kind Kind, id, field string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access(kind, byID(id), field, nil, false)
}

// SetField writes a field on the entity with the given slug ID and marks
// the store dirty. Setting the ID itself is permitted; outstanding lookups
// keyed by the old slug are not migrated.
func (s *Store) SetField(kind Kind, id, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.access(kind, byID(id), field, value, true)
	return err
}

// GetFieldByKey reads a field addressed by surrogate key, so callers
// holding a reference survive slug renames.
func (s *Store) GetFieldByKey(kind Kind, key, field string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access(kind, byKey(key), field, nil, false)
}

// SetFieldByKey writes a field addressed by surrogate key and marks the
// store dirty.
func (s *Store) SetFieldByKey(kind Kind, key, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.access(kind, byKey(key), field, value, true)
	return err
}

// AddEntity appends a new entity with deterministic defaults and returns
// its generated slug ID. IDs derive from the current slice length, not a
// persisted counter, so they can collide after deletions; callers accept
// that documented risk.
func (s *Store) AddEntity(kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", ErrNotLoaded
	}
	switch kind {
	case KindLog:
		id := fmt.Sprintf("log-%03d", len(s.doc.ExplorerLog)+1)
		s.doc.ExplorerLog = append(s.doc.ExplorerLog, LogEntry{
			Key:     uuid.NewString(),
			ID:      id,
			Date:    s.now().Format("2006.01.02"),
			Content: "New log entry - click to edit",
		})
		s.dirty = true
		return id, nil
	case KindProject:
		id := fmt.Sprintf("project-%d", len(s.doc.Projects)+1)
		s.doc.Projects = append(s.doc.Projects, Project{
			Key:         uuid.NewString(),
			ID:          id,
			Title:       "New Project",
			Description: "Project description...",
		})
		s.dirty = true
		return id, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// RemoveEntity removes the entity with the given slug ID. A missing ID is a
// no-op and returns false; callers surface that condition.
func (s *Store) RemoveEntity(kind Kind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return false, ErrNotLoaded
	}
	switch kind {
	case KindLog:
		for i := range s.doc.ExplorerLog {
			if s.doc.ExplorerLog[i].ID == id {
				s.doc.ExplorerLog = append(s.doc.ExplorerLog[:i], s.doc.ExplorerLog[i+1:]...)
				s.dirty = true
				return true, nil
			}
		}
	case KindProject:
		for i := range s.doc.Projects {
			if s.doc.Projects[i].ID == id {
				s.doc.Projects = append(s.doc.Projects[:i], s.doc.Projects[i+1:]...)
				s.dirty = true
				return true, nil
			}
		}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return false, nil
}

type selector struct {
	id    string
	key   string
	byKey bool
}

func byID(id string) selector   { return selector{id: id} }
func byKey(key string) selector { return selector{key: key, byKey: true} }

func (sel selector) String() string {
	if sel.byKey {
		return sel.key
	}
	return sel.id
}

// access locates the target entity and reads or writes one field. Callers
// hold the appropriate lock.
func (s *Store) access(kind Kind, sel selector, field string, value any, write bool) (any, error) {
	if s.doc == nil {
		return nil, ErrNotLoaded
	}
	switch kind {
	case KindSite:
		return s.accessSite(field, value, write)
	case KindLog:
		for i := range s.doc.ExplorerLog {
			entry := &s.doc.ExplorerLog[i]
			if sel.byKey && entry.Key != sel.key {
				continue
			}
			if !sel.byKey && entry.ID != sel.id {
				continue
			}
			return s.accessLog(entry, field, value, write)
		}
	case KindProject:
		for i := range s.doc.Projects {
			proj := &s.doc.Projects[i]
			if sel.byKey && proj.Key != sel.key {
				continue
			}
			if !sel.byKey && proj.ID != sel.id {
				continue
			}
			return s.accessProject(proj, field, value, write)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil, fmt.Errorf("%w: %s %q", ErrNotFound, kind, sel)
}

func (s *Store) accessSite(field string, value any, write bool) (any, error) {
	var target *string
	switch field {
	case "title":
		target = &s.doc.Site.Title
	case "description":
		target = &s.doc.Site.Description
	case "url":
		target = &s.doc.Site.URL
	default:
		return nil, fmt.Errorf("%w: site.%s", ErrUnknownField, field)
	}
	if !write {
		return *target, nil
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: site.%s expects a string", ErrInvalidValue, field)
	}
	*target = str
	s.dirty = true
	return nil, nil
}

func (s *Store) accessLog(entry *LogEntry, field string, value any, write bool) (any, error) {
	var target *string
	switch field {
	case "id":
		target = &entry.ID
	case "date":
		target = &entry.Date
	case "content":
		target = &entry.Content
	default:
		return nil, fmt.Errorf("%w: explorerLog.%s", ErrUnknownField, field)
	}
	if !write {
		return *target, nil
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: explorerLog.%s expects a string", ErrInvalidValue, field)
	}
	*target = str
	s.dirty = true
	return nil, nil
}

func (s *Store) accessProject(proj *Project, field string, value any, write bool) (any, error) {
	if field == "featured" {
		if !write {
			return proj.Featured, nil
		}
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: projects.featured expects a bool", ErrInvalidValue)
		}
		proj.Featured = b
		s.dirty = true
		return nil, nil
	}

	var target *string
	switch field {
	case "id":
		target = &proj.ID
	case "title":
		target = &proj.Title
	case "description":
		target = &proj.Description
	case "fullDescription":
		target = &proj.FullDescription
	case "image":
		target = &proj.Image
	case "category":
		target = &proj.Category
	case "date":
		target = &proj.Date
	case "status":
		target = &proj.Status
	case "process":
		target = &proj.Process
	case "notes":
		target = &proj.Notes
	case "specs":
		target = &proj.Metadata.Specs
	default:
		return nil, fmt.Errorf("%w: projects.%s", ErrUnknownField, field)
	}
	if !write {
		return *target, nil
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: projects.%s expects a string", ErrInvalidValue, field)
	}
	*target = str
	s.dirty = true
	return nil, nil
}

func cloneDocument(doc *Document) *Document {
	copied := *doc
	copied.ExplorerLog = make([]LogEntry, len(doc.ExplorerLog))
	copy(copied.ExplorerLog, doc.ExplorerLog)
	copied.Projects = make([]Project, len(doc.Projects))
	copy(copied.Projects, doc.Projects)
	for i := range copied.Projects {
		if doc.Projects[i].Links != nil {
			links := make([]Link, len(doc.Projects[i].Links))
			copy(links, doc.Projects[i].Links)
			copied.Projects[i].Links = links
		}
	}
	copied.OtherProjects = make([]string, len(doc.OtherProjects))
	copy(copied.OtherProjects, doc.OtherProjects)
	return &copied
}
