package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhall/workbench/internal/config"
	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/fallback"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Regenerate the embedded JavaScript fallback from the data file",
	Long: `Reads the local data file, validates it, and regenerates the
data-embedded.js fallback so pages opened without network access still
show current content.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().String("output", "data-embedded.js", "destination for the generated script")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	doc, err := readLocalDocument(cfg)
	if err != nil {
		return err
	}

	script, err := fallback.GenerateScript(doc, time.Now())
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if err := os.WriteFile(output, script, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	logger.Info("embedded fallback regenerated", "path", output, "bytes", len(script))
	return nil
}

func dataPath(cfg config.Config) string {
	if cfg.Site.DataPath != "" {
		return cfg.Site.DataPath
	}
	return cfg.Repo.DataFile
}

func readLocalDocument(cfg config.Config) (content.Document, error) {
	path := dataPath(cfg)
	raw, err := os.ReadFile(path)
	if err != nil {
		return content.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc content.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return content.Document{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := content.Validate(&doc); err != nil {
		return content.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
