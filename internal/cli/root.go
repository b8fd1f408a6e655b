// Package cli defines the workbench command tree: a long-running content
// server plus one-shot maintenance commands for the data file and the
// static site.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jhall/workbench/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Portfolio content server and site tools",
	Long: `Workbench serves the editable portfolio content API (workshop
authentication, per-field edits, repository sync) and provides one-shot
commands to pull the data file, regenerate the embedded fallback, and
render the static site.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	return cfg, logger, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
