package fallback

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhall/workbench/internal/content"
)

// GenerateScript produces the JavaScript fallback file that mirrors the
// published document for clients loading pages without network access.
// The document is validated first so a broken data file can never replace
// a working snapshot.
func GenerateScript(doc content.Document, now time.Time) ([]byte, error) {
	if err := content.Validate(&doc); err != nil {
		return nil, fmt.Errorf("refusing to embed invalid document: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}

	header := fmt.Sprintf(
		"// Auto-generated from data.json - DO NOT EDIT MANUALLY\n// Generated at: %s\n// Run 'workbench embed' to regenerate when data.json changes\n\n",
		now.UTC().Format(time.RFC3339))

	out := append([]byte(header), []byte("window.EMBEDDED_SITE_DATA = ")...)
	out = append(out, data...)
	out = append(out, []byte(";\n")...)
	return out, nil
}
