package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhall/workbench/internal/content"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the data file from the remote repository",
	Long: `Fetches the content data file from the configured repository and
writes it to the local working tree, validating it first.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("output", "", "destination path (defaults to the configured data path)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	remote := newRemoteClient(cfg, logger)
	if remote == nil {
		return fmt.Errorf("remote repository not configured")
	}

	file, err := remote.ReadFile(cmd.Context(), cfg.Repo.DataFile)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", cfg.Repo.DataFile, err)
	}

	var doc content.Document
	if err := json.Unmarshal(file.Content, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", cfg.Repo.DataFile, err)
	}
	if err := content.Validate(&doc); err != nil {
		return fmt.Errorf("remote document invalid: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = dataPath(cfg)
	}
	if err := os.WriteFile(output, file.Content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	logger.Info("data file synchronized", "path", output, "sha", file.SHA, "bytes", len(file.Content))
	return nil
}
