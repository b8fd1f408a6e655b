package content

import (
	"sort"
	"strings"
	"time"
)

// Kind selects one of the editable entity collections in the document.
type Kind string

const (
	KindSite    Kind = "site"
	KindLog     Kind = "explorerLog"
	KindProject Kind = "projects"
)

// Project status values suggested by the editing UI. Storage does not
// enforce them.
const (
	StatusPlanning   = "Planning"
	StatusInProgress = "In Progress"
	StatusComplete   = "Complete"
	StatusOnHold     = "On Hold"
)

// Statuses lists the suggested project status values in display order.
var Statuses = []string{StatusPlanning, StatusInProgress, StatusComplete, StatusOnHold}

// Document is the root content aggregate. All four top-level keys must be
// present for the document to be considered valid.
type Document struct {
	Site          Site       `json:"site"`
	ExplorerLog   []LogEntry `json:"explorerLog"`
	Projects      []Project  `json:"projects"`
	OtherProjects []string   `json:"otherProjects"`
}

// Site holds the singleton site configuration record.
type Site struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// LogEntry is one dated entry in the explorer log. Key is an internal
// surrogate identifier; it is never serialized, so the slug ID stays an
// independently mutable display field.
type LogEntry struct {
	Key     string `json:"-"`
	ID      string `json:"id"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// Project describes one portfolio project.
type Project struct {
	Key             string          `json:"-"`
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	FullDescription string          `json:"fullDescription,omitempty"`
	Image           string          `json:"image,omitempty"`
	Category        string          `json:"category,omitempty"`
	Date            string          `json:"date,omitempty"`
	Status          string          `json:"status,omitempty"`
	Featured        bool            `json:"featured"`
	Metadata        ProjectMetadata `json:"metadata,omitempty"`
	Links           []Link          `json:"links,omitempty"`
	Process         string          `json:"process,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// ProjectMetadata carries free-text specs, newline-delimited key:value
// pairs parsed only for display.
type ProjectMetadata struct {
	Specs string `json:"specs,omitempty"`
}

// Link is a titled external reference on a project.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ParseDate interprets a dot-separated YYYY.MM.DD date by reinterpreting
// dots as dashes. Unparseable dates sort last.
func ParseDate(date string) time.Time {
	t, err := time.Parse("2006-01-02", strings.ReplaceAll(date, ".", "-"))
	if err != nil {
		return time.Time{}
	}
	return t
}

// SortLog returns the entries ordered by date descending. Display order is
// always derived at read time; storage order is not trusted.
func SortLog(entries []LogEntry) []LogEntry {
	sorted := make([]LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ParseDate(sorted[i].Date).After(ParseDate(sorted[j].Date))
	})
	return sorted
}

// FeaturedProjects returns up to limit featured projects in storage order.
func FeaturedProjects(projects []Project, limit int) []Project {
	var featured []Project
	for _, p := range projects {
		if p.Featured {
			featured = append(featured, p)
			if len(featured) == limit {
				break
			}
		}
	}
	return featured
}
