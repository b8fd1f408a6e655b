package cli

import (
	"errors"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/fallback"
	"github.com/jhall/workbench/internal/site"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the static site",
	Long: `Renders the homepage, log archive, project gallery, and per-project
pages into the output directory. Uses the local data file when present,
otherwise the fallback chain.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("output", "", "output directory (defaults to the configured one, then ./public)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	doc, err := readLocalDocument(cfg)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		loader := fallback.NewLoader(cfg.Repo.RawURL, logger)
		var source fallback.Source
		doc, source, _ = loader.Load(cmd.Context())
		logger.Info("building from fallback document", "source", source)
	}
	if err := content.Validate(&doc); err != nil {
		return err
	}

	outDir, _ := cmd.Flags().GetString("output")
	if outDir == "" {
		outDir = cfg.Site.OutputDir
	}
	if outDir == "" {
		outDir = "public"
	}

	renderer, err := site.NewRenderer(logger)
	if err != nil {
		return err
	}
	return renderer.Build(doc, outDir)
}
