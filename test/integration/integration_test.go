package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/testserver"
)

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestWorkshopEditFlow(t *testing.T) {
	ts := testserver.New(t)
	token := ts.SessionToken(t)

	resp := postJSON(t, ts.Server.URL+"/edit", token, map[string]any{
		"contentType":     "site-title",
		"elementId":       "site-title",
		"newContent":      "Field Notes Mk II",
		"originalContent": "Field Notes",
	})
	var body struct {
		Success bool  `json:"success"`
		Synced  bool  `json:"synced"`
		Stamp   int64 `json:"timestamp"`
	}
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.True(t, body.Synced)
	require.NotZero(t, body.Stamp)

	// The edit reached the fake remote.
	raw, _, ok := ts.Repo.Get("data.json")
	require.True(t, ok)
	var doc content.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Equal(t, "Field Notes Mk II", doc.Site.Title)

	// And is visible on the public read.
	getResp, err := http.Get(ts.Server.URL + "/content")
	require.NoError(t, err)
	var public content.Document
	decodeBody(t, getResp, &public)
	require.Equal(t, "Field Notes Mk II", public.Site.Title)
}

func TestEditRequiresSession(t *testing.T) {
	ts := testserver.New(t)

	resp := postJSON(t, ts.Server.URL+"/edit", "", map[string]any{
		"contentType": "site-title",
		"elementId":   "site-title",
		"newContent":  "nope",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, ts.Server.URL+"/edit", "garbage-token", map[string]any{
		"contentType": "site-title",
		"elementId":   "site-title",
		"newContent":  "nope",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Document untouched.
	doc, err := ts.Store.Document()
	require.NoError(t, err)
	require.Equal(t, "Field Notes", doc.Site.Title)
}

func TestEditSurvivesRemoteOutage(t *testing.T) {
	ts := testserver.New(t)
	token := ts.SessionToken(t)

	ts.Repo.FailWrites = true

	resp := postJSON(t, ts.Server.URL+"/edit", token, map[string]any{
		"contentType": "project-title",
		"elementId":   "project-1-title",
		"newContent":  "Camera Rig v2",
	})
	var body struct {
		Success bool `json:"success"`
		Synced  bool `json:"synced"`
	}
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.False(t, body.Synced)

	// The edit is still applied locally.
	doc, err := ts.Store.Document()
	require.NoError(t, err)
	require.Equal(t, "Camera Rig v2", doc.Projects[0].Title)

	// And recorded durably.
	var count int
	require.NoError(t, ts.DB.QueryRow(
		`SELECT COUNT(*) FROM workshop_changes WHERE entity_id = ? AND field = ?`,
		"project-1", "title").Scan(&count))
	require.Equal(t, 1, count)
}

func TestPINLockoutOverHTTP(t *testing.T) {
	ts := testserver.New(t)

	for i := 0; i < 5; i++ {
		resp := postJSON(t, ts.Server.URL+"/auth", "", map[string]string{"pin": "0000"})
		if i < 4 {
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		} else {
			require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Even the correct PIN is rejected while locked.
	resp := postJSON(t, ts.Server.URL+"/auth", "", map[string]string{"pin": testserver.PIN})
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSyncEndpoint(t *testing.T) {
	ts := testserver.New(t)
	token := ts.SessionToken(t)

	resp := postJSON(t, ts.Server.URL+"/sync", token, map[string]any{
		"changeDescription": "Update content via admin panel",
		"files": []map[string]string{
			{"path": "notes.md", "content": "# Shop notes\n"},
		},
	})
	var body struct {
		Success bool   `json:"success"`
		Synced  bool   `json:"synced"`
		Message string `json:"message"`
	}
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.True(t, body.Synced)
	require.True(t, strings.Contains(body.Message, "synced"))

	raw, _, ok := ts.Repo.Get("notes.md")
	require.True(t, ok)
	require.Equal(t, "# Shop notes\n", string(raw))
}

func TestUnknownContentTypeRejected(t *testing.T) {
	ts := testserver.New(t)
	token := ts.SessionToken(t)

	resp := postJSON(t, ts.Server.URL+"/edit", token, map[string]any{
		"contentType": "nav-menu",
		"elementId":   "nav",
		"newContent":  "x",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
