package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhall/workbench/internal/config"
	"github.com/jhall/workbench/internal/content"
	"github.com/jhall/workbench/internal/domain/auth"
	"github.com/jhall/workbench/internal/domain/publish"
	"github.com/jhall/workbench/internal/fallback"
	"github.com/jhall/workbench/internal/github"
	"github.com/jhall/workbench/internal/sqlite"
	"github.com/jhall/workbench/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the content API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	attemptRepo := sqlite.NewAttemptRepository(db)
	changeRepo := sqlite.NewChangeRepository(db)

	remote := newRemoteClient(cfg, logger)
	store := content.NewStore()
	loadDocument(cmd.Context(), cfg, store, remote, logger)

	coord := publish.NewCoordinator(store, remoteOrNil(remote), changeRepo, cfg.Repo.DataFile, logger)
	authSvc := auth.NewService(auth.Config{
		PINHash:       cfg.Auth.PINHash,
		TokenSecret:   cfg.Auth.TokenSecret,
		SessionTTL:    cfg.Auth.SessionTTL,
		MaxAttempts:   cfg.Auth.MaxAttempts,
		Lockout:       cfg.Auth.Lockout,
		AttemptWindow: cfg.Auth.AttemptWindow,
	}, attemptRepo, logger)

	router := transport.NewServer(authSvc, store, coord, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
	return nil
}

// newRemoteClient builds the repository client, or nil when the remote is
// not configured. A nil remote degrades to local-only persistence.
func newRemoteClient(cfg config.Config, logger *slog.Logger) *github.Client {
	if cfg.Repo.Owner == "" || cfg.Repo.Name == "" || cfg.Repo.Token == "" {
		logger.Info("remote repository not configured, running local-only")
		return nil
	}
	return github.NewClient(cfg.Repo.Owner, cfg.Repo.Name, cfg.Repo.Branch, cfg.Repo.Token,
		github.Options{BaseURL: cfg.Repo.APIURL}, logger)
}

// remoteOrNil keeps a typed-nil *github.Client out of the RemoteStore
// interface so nil checks downstream stay meaningful.
func remoteOrNil(c *github.Client) publish.RemoteStore {
	if c == nil {
		return nil
	}
	return c
}

// loadDocument primes the store. An authenticated read is preferred
// because it carries the blob SHA needed for conflict detection; without
// one the fallback chain still produces a document, just with no version
// token until the first refetch.
func loadDocument(ctx context.Context, cfg config.Config, store *content.Store, remote *github.Client, logger *slog.Logger) {
	if remote != nil {
		file, err := remote.ReadFile(ctx, cfg.Repo.DataFile)
		if err == nil {
			var doc content.Document
			if jsonErr := json.Unmarshal(file.Content, &doc); jsonErr == nil {
				if loadErr := store.Load(doc, file.SHA); loadErr == nil {
					logger.Info("document loaded", "source", "repository", "sha", file.SHA)
					return
				}
			}
			logger.Warn("repository document invalid, falling back", "path", cfg.Repo.DataFile)
		} else {
			logger.Warn("repository read failed, falling back", "error", err)
		}
	}

	loader := fallback.NewLoader(cfg.Repo.RawURL, logger)
	doc, source, _ := loader.Load(ctx)
	if err := store.Load(doc, ""); err != nil {
		logger.Error("fallback document rejected", "source", source, "error", err)
		_ = store.Load(fallback.Placeholder(), "")
		return
	}
	logger.Info("document loaded", "source", source)
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
