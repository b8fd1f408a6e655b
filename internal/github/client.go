// Package github reads and writes files in a fixed remote repository and
// branch through the GitHub contents API, tracking each blob by its SHA.
// The SHA is an optimistic concurrency precondition, not a lock: a write
// carrying a stale SHA is rejected by the remote and surfaced as a
// ConflictError.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// File is a remote blob: decoded content plus its current version token.
type File struct {
	Path    string
	Content []byte
	SHA     string
}

// Client talks to the contents API for one repository and branch.
type Client struct {
	baseURL string
	owner   string
	repo    string
	branch  string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// Options configures optional client behavior.
type Options struct {
	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string
	// Timeout bounds every request. Zero means 30 seconds.
	Timeout time.Duration
}

// NewClient creates a contents API client authenticated by a bearer
// credential.
func NewClient(owner, repo, branch, token string, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		owner:   owner,
		repo:    repo,
		branch:  branch,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type contentResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
	Path    string `json:"path"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type writeResponse struct {
	Content contentResponse `json:"content"`
}

// ReadFile fetches and base64-decodes the blob at path.
func (c *Client) ReadFile(ctx context.Context, path string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("building read request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ReadError{Path: path, Status: resp.StatusCode}
	}

	var body contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response for %s: %w", path, err)
	}

	// The API wraps base64 payloads with newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decoding content of %s: %w", path, err)
	}

	c.logger.Debug("read remote file", "path", path, "sha", body.SHA, "bytes", len(raw))
	return &File{Path: path, Content: raw, SHA: body.SHA}, nil
}

// WriteFile base64-encodes content and writes it to path. A non-empty
// expectedSHA is sent as a precondition so the remote can detect concurrent
// modification; leave it empty for brand-new paths. The returned SHA must
// replace the caller's stored token before the next write.
func (c *Client) WriteFile(ctx context.Context, path string, content []byte, expectedSHA, message string) (string, error) {
	payload, err := json.Marshal(writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     expectedSHA,
		Branch:  c.branch,
	})
	if err != nil {
		return "", fmt.Errorf("encoding write request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentURL(path), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building write request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		io.Copy(io.Discard, resp.Body)
		return "", &ConflictError{Path: path, ExpectedSHA: expectedSHA, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		io.Copy(io.Discard, resp.Body)
		return "", &WriteError{Path: path, Status: resp.StatusCode}
	}

	var body writeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding write response for %s: %w", path, err)
	}

	c.logger.Info("wrote remote file", "path", path, "sha", body.Content.SHA)
	return body.Content.SHA, nil
}

// WriteBinary writes content to a freshly generated, timestamp-derived
// destination so no SHA precondition is needed; collision is structurally
// avoided. Returns the destination path and new SHA.
func (c *Client) WriteBinary(ctx context.Context, dir, extension string, content []byte, message string) (string, string, error) {
	name := fmt.Sprintf("project-%d.%s", time.Now().UnixMilli(), strings.TrimPrefix(extension, "."))
	path := name
	if dir != "" {
		path = strings.TrimSuffix(dir, "/") + "/" + name
	}
	sha, err := c.WriteFile(ctx, path, content, "", message)
	if err != nil {
		return "", "", err
	}
	return path, sha, nil
}

func (c *Client) contentURL(path string) string {
	escaped := url.PathEscape(path)
	// Keep directory separators readable in request logs.
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, escaped)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
}
