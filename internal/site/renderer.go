// Package site renders the public static pages from a content document:
// the homepage, the full log archive, the project gallery, and one page
// per project.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/jhall/workbench/internal/content"
)

//go:embed templates/*.html
var templateFS embed.FS

// homeLogLimit and homeProjectLimit bound the homepage excerpts.
const (
	homeLogLimit     = 3
	homeProjectLimit = 2
)

// Renderer turns a document into static HTML pages.
type Renderer struct {
	tmpl   *template.Template
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewRenderer parses the embedded templates and configures the markdown
// converter. Raw HTML in content bodies is not passed through.
func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		logger: logger,
	}

	tmpl, err := template.New("site").Funcs(template.FuncMap{
		"markdown": r.Markdown,
		"specs":    ParseSpecs,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Markdown converts a content body to HTML for template embedding.
// Conversion failures degrade to escaped plain text rather than failing
// the whole build.
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		r.logger.Warn("markdown conversion failed", "error", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// Spec is one key:value line from a project's metadata specs block.
type Spec struct {
	Label string
	Value string
}

// ParseSpecs splits the newline-delimited specs text into label/value
// pairs. Lines without a colon become value-only rows.
func ParseSpecs(raw string) []Spec {
	var specs []Spec
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, found := strings.Cut(line, ":")
		if !found {
			specs = append(specs, Spec{Value: line})
			continue
		}
		specs = append(specs, Spec{Label: strings.TrimSpace(label), Value: strings.TrimSpace(value)})
	}
	return specs
}

type homePage struct {
	Site     content.Site
	Log      []content.LogEntry
	Featured []content.Project
}

type logPage struct {
	Site content.Site
	Log  []content.LogEntry
}

type projectsPage struct {
	Site          content.Site
	Projects      []content.Project
	OtherProjects []string
}

type projectPage struct {
	Site    content.Site
	Project content.Project
}

// Build renders every page into outDir. Project pages land under
// outDir/projects/<id>.html.
func (r *Renderer) Build(doc content.Document, outDir string) error {
	if err := os.MkdirAll(filepath.Join(outDir, "projects"), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	sorted := content.SortLog(doc.ExplorerLog)

	home := homePage{
		Site:     doc.Site,
		Log:      sorted,
		Featured: content.FeaturedProjects(doc.Projects, homeProjectLimit),
	}
	if len(home.Log) > homeLogLimit {
		home.Log = home.Log[:homeLogLimit]
	}
	if err := r.writePage(filepath.Join(outDir, "index.html"), "index.html", home); err != nil {
		return err
	}

	if err := r.writePage(filepath.Join(outDir, "log.html"), "log.html", logPage{Site: doc.Site, Log: sorted}); err != nil {
		return err
	}

	gallery := projectsPage{Site: doc.Site, Projects: doc.Projects, OtherProjects: doc.OtherProjects}
	if err := r.writePage(filepath.Join(outDir, "projects.html"), "projects.html", gallery); err != nil {
		return err
	}

	for _, p := range doc.Projects {
		path := filepath.Join(outDir, "projects", p.ID+".html")
		if err := r.writePage(path, "project.html", projectPage{Site: doc.Site, Project: p}); err != nil {
			return err
		}
	}

	r.logger.Info("site rendered", "output", outDir, "projects", len(doc.Projects), "log_entries", len(sorted))
	return nil
}

// RenderPage executes one named template, for serving pages directly.
func (r *Renderer) RenderPage(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writePage(path, name string, data any) error {
	out, err := r.RenderPage(name, data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
