// Package fallback produces a content document for first paint even when
// the published document cannot be fetched. The chain is strict: one
// attempt at the remote document, then the snapshot embedded at build time,
// then an explicit placeholder. No stage is retried.
package fallback

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jhall/workbench/internal/content"
)

//go:embed data.json
var embeddedSnapshot []byte

// Source identifies which stage of the fallback chain produced the document.
type Source string

const (
	SourceRemote      Source = "remote"
	SourceEmbedded    Source = "embedded"
	SourcePlaceholder Source = "placeholder"
)

// Loader fetches the published document with a plain unauthenticated GET.
type Loader struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// NewLoader creates a loader for the published document URL. An empty URL
// skips the remote stage entirely.
func NewLoader(url string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{
		url:    url,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Load runs the fallback chain and reports which stage succeeded. It never
// returns an error for a missing remote document; only a corrupt embedded
// snapshot alongside a failed remote fetch degrades to the placeholder.
func (l *Loader) Load(ctx context.Context) (content.Document, Source, error) {
	if doc, err := l.fetchRemote(ctx); err == nil {
		return doc, SourceRemote, nil
	} else {
		l.logger.Warn("remote document unavailable, falling back", "url", l.url, "error", err)
	}

	if doc, err := decodeSnapshot(embeddedSnapshot); err == nil {
		return doc, SourceEmbedded, nil
	} else {
		l.logger.Error("embedded snapshot unusable", "error", err)
	}

	return Placeholder(), SourcePlaceholder, nil
}

func (l *Loader) fetchRemote(ctx context.Context) (content.Document, error) {
	if l.url == "" {
		return content.Document{}, fmt.Errorf("no published document URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return content.Document{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return content.Document{}, fmt.Errorf("fetching document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return content.Document{}, fmt.Errorf("fetching document: status %d", resp.StatusCode)
	}

	var doc content.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return content.Document{}, fmt.Errorf("parsing document: %w", err)
	}
	if err := content.Validate(&doc); err != nil {
		return content.Document{}, err
	}
	return doc, nil
}

func decodeSnapshot(raw []byte) (content.Document, error) {
	var doc content.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return content.Document{}, fmt.Errorf("parsing embedded snapshot: %w", err)
	}
	if err := content.Validate(&doc); err != nil {
		return content.Document{}, err
	}
	return doc, nil
}

// Placeholder is the explicit "content unavailable" document rendered when
// every other stage fails; pages are never left blank.
func Placeholder() content.Document {
	return content.Document{
		Site: content.Site{
			Title:       "Content unavailable",
			Description: "The site content could not be loaded.",
		},
		ExplorerLog:   []content.LogEntry{},
		Projects:      []content.Project{},
		OtherProjects: []string{},
	}
}
