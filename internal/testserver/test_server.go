// Package testserver wires the full stack against an in-memory database
// and a fake contents API for integration-style tests.
package testserver

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/auth"
	"github.com/jhall/workbench/internal/domain/publish"
	"github.com/jhall/workbench/internal/github"
	"github.com/jhall/workbench/internal/sqlite"
	"github.com/jhall/workbench/internal/transport"
)

// PIN is the workshop PIN every test server accepts.
const PIN = "1234"

// FakeRepo emulates the contents API for a single repository: base64
// blobs versioned by SHA, with stale-SHA writes rejected as conflicts.
type FakeRepo struct {
	Server *httptest.Server

	mu        sync.Mutex
	files     map[string]fakeFile
	writes    int
	conflicts int
	// FailWrites forces every write to fail with a server error.
	FailWrites bool
}

type fakeFile struct {
	content []byte
	sha     string
}

// NewFakeRepo starts the fake contents API.
func NewFakeRepo(t *testing.T) *FakeRepo {
	t.Helper()
	fr := &FakeRepo{files: map[string]fakeFile{}}
	fr.Server = httptest.NewServer(http.HandlerFunc(fr.handle))
	t.Cleanup(fr.Server.Close)
	return fr
}

// Put seeds or replaces a file directly, bypassing the API.
func (fr *FakeRepo) Put(path string, content []byte) string {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	sha := blobSHA(content)
	fr.files[path] = fakeFile{content: content, sha: sha}
	return sha
}

// Get returns the current content and SHA of a file.
func (fr *FakeRepo) Get(path string) ([]byte, string, bool) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	f, ok := fr.files[path]
	return f.content, f.sha, ok
}

// Writes reports how many PUT requests succeeded.
func (fr *FakeRepo) Writes() int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.writes
}

// Conflicts reports how many writes were rejected for a stale SHA.
func (fr *FakeRepo) Conflicts() int {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.conflicts
}

func (fr *FakeRepo) handle(w http.ResponseWriter, r *http.Request) {
	const prefix = "/repos/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	// /repos/{owner}/{repo}/contents/{path...}
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, prefix), "/contents/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	path := parts[1]

	switch r.Method {
	case http.MethodGet:
		fr.handleRead(w, path)
	case http.MethodPut:
		fr.handleWrite(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fr *FakeRepo) handleRead(w http.ResponseWriter, path string) {
	fr.mu.Lock()
	f, ok := fr.files[path]
	fr.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeBody(w, http.StatusOK, map[string]any{
		"content": base64.StdEncoding.EncodeToString(f.content),
		"sha":     f.sha,
		"path":    path,
	})
}

func (fr *FakeRepo) handleWrite(w http.ResponseWriter, r *http.Request, path string) {
	var req struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.FailWrites {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if existing, ok := fr.files[path]; ok && req.SHA != existing.sha {
		fr.conflicts++
		w.WriteHeader(http.StatusConflict)
		return
	}

	sha := blobSHA(raw)
	fr.files[path] = fakeFile{content: raw, sha: sha}
	fr.writes++
	writeBody(w, http.StatusOK, map[string]any{
		"content": map[string]any{"sha": sha, "path": path},
	})
}

func blobSHA(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// TestServer is the full stack behind an httptest listener.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Repo   *FakeRepo
	Store  *content.Store
	Auth   *auth.Service
	Coord  *publish.Coordinator
}

// New builds the stack: in-memory database, fake remote seeded with the
// sample document, preloaded store, and the HTTP router.
func New(t *testing.T) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	repo := NewFakeRepo(t)
	doc := SampleDocument()
	seed, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	sha := repo.Put("data.json", seed)

	store := content.NewStore()
	require.NoError(t, store.Load(doc, sha))

	client := github.NewClient("tester", "portfolio", "main", "test-token",
		github.Options{BaseURL: repo.Server.URL}, nil)

	changeRepo := sqlite.NewChangeRepository(db)
	attemptRepo := sqlite.NewAttemptRepository(db)

	coord := publish.NewCoordinator(store, client, changeRepo, "data.json", nil)
	authSvc := auth.NewService(auth.Config{
		PINHash:     auth.HashPIN(PIN),
		TokenSecret: "test-secret",
	}, attemptRepo, nil)

	server := httptest.NewServer(transport.NewServer(authSvc, store, coord, nil))

	ts := &TestServer{
		Server: server,
		DB:     db,
		Repo:   repo,
		Store:  store,
		Auth:   authSvc,
		Coord:  coord,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// SessionToken authenticates with the test PIN and returns the bearer
// credential.
func (ts *TestServer) SessionToken(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(ts.Server.URL+"/auth", "application/json",
		strings.NewReader(fmt.Sprintf(`{"pin":%q}`, PIN)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SessionToken string `json:"sessionToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.SessionToken)
	return body.SessionToken
}

// SampleDocument is a small but structurally complete document.
func SampleDocument() content.Document {
	return content.Document{
		Site: content.Site{
			Title:       "Field Notes",
			Description: "Inventor, tinkerer, chronic documenter",
			URL:         "https://example.com",
		},
		ExplorerLog: []content.LogEntry{
			{ID: "log-001", Date: "2025.07.01", Content: "Rebuilt the workbench power rail."},
			{ID: "log-002", Date: "2025.07.15", Content: "CNC spoilboard resurfaced, finally flat."},
			{ID: "log-003", Date: "2025.08.02", Content: "First light on the camera rig."},
		},
		Projects: []content.Project{
			{
				ID:          "project-1",
				Title:       "Camera Rig",
				Description: "Motion-control camera rig from printer parts.",
				Featured:    true,
				Status:      content.StatusInProgress,
			},
			{
				ID:          "project-2",
				Title:       "Workshop Lights",
				Description: "High-CRI shop lighting with scene presets.",
				Featured:    true,
				Status:      content.StatusComplete,
			},
			{
				ID:          "project-3",
				Title:       "Pen Plotter",
				Description: "A2 pen plotter with a homemade gondola.",
				Featured:    false,
				Status:      content.StatusPlanning,
			},
		},
		OtherProjects: []string{"Magnetic toolholders", "Shop CO2 monitor"},
	}
}
