package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("octo", "portfolio", "main", "secret-token", Options{BaseURL: server.URL}, nil)
}

func TestReadFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/repos/octo/portfolio/contents/data.json", r.URL.Path)
		require.Equal(t, "token secret-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))

		// The API wraps long base64 payloads with newlines.
		encoded := base64.StdEncoding.EncodeToString([]byte(`{"site":{}}`))
		wrapped := encoded[:8] + "\n" + encoded[8:] + "\n"
		_ = json.NewEncoder(w).Encode(map[string]string{
			"content": wrapped,
			"sha":     "abc123",
			"path":    "data.json",
		})
	})

	file, err := client.ReadFile(context.Background(), "data.json")
	require.NoError(t, err)
	require.Equal(t, `{"site":{}}`, string(file.Content))
	require.Equal(t, "abc123", file.SHA)
}

func TestReadFileNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.ReadFile(context.Background(), "missing.json")
	require.ErrorIs(t, err, ErrNotFound)

	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	require.Equal(t, http.StatusNotFound, readErr.Status)
	require.Equal(t, "missing.json", readErr.Path)
}

func TestWriteFile(t *testing.T) {
	var captured struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch"`
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"sha": "new-sha"},
		})
	})

	sha, err := client.WriteFile(context.Background(), "data.json", []byte(`{}`), "old-sha", "Update content")
	require.NoError(t, err)
	require.Equal(t, "new-sha", sha)
	require.Equal(t, "Update content", captured.Message)
	require.Equal(t, "old-sha", captured.SHA)
	require.Equal(t, "main", captured.Branch)

	decoded, err := base64.StdEncoding.DecodeString(captured.Content)
	require.NoError(t, err)
	require.Equal(t, `{}`, string(decoded))
}

func TestWriteFileConflict(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.WriteFile(context.Background(), "data.json", []byte(`{}`), "stale", "msg")
		require.ErrorIs(t, err, ErrConflict)

		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, "stale", conflict.ExpectedSHA)
		require.Equal(t, status, conflict.Status)
	}
}

func TestWriteFileServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.WriteFile(context.Background(), "data.json", []byte(`{}`), "", "msg")
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	require.False(t, errors.Is(err, ErrConflict))
}

func TestWriteBinaryGeneratesTimestampPath(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"sha": "img-sha"},
		})
	})

	dest, sha, err := client.WriteBinary(context.Background(), "images", ".png", []byte{0x89}, "Add image")
	require.NoError(t, err)
	require.Equal(t, "img-sha", sha)
	require.Regexp(t, `^images/project-\d+\.png$`, dest)
	require.Regexp(t, `^/repos/octo/portfolio/contents/images/project-\d+\.png$`, path)
}
