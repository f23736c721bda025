package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cyprienbrisset/ffemonitor/internal/adminapi"
	"github.com/cyprienbrisset/ffemonitor/internal/config"
	"github.com/cyprienbrisset/ffemonitor/internal/engine"
	"github.com/cyprienbrisset/ffemonitor/internal/log"
	"github.com/cyprienbrisset/ffemonitor/internal/repository"
	"github.com/cyprienbrisset/ffemonitor/internal/repository/boltstore"
	"github.com/cyprienbrisset/ffemonitor/internal/repository/sqlstore"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ffemonitor",
	Short: "FFEMonitor watches FFE competition pages and dispatches enrollment alerts",
	Long: `FFEMonitor polls FFE event pages on a schedule, detects the moment
a competition's enrollment opens, and fans out push and email
notifications to subscribers on a plan-tiered delay.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ffemonitor version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML/TOML/JSON, or env-only if empty)")

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the polling scheduler, dispatch worker and admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.LogLevel),
			JSONOutput: cfg.LogJSON,
		})
		logger := log.WithComponent("main")

		repo, err := openRepository(cfg.DatastoreURL)
		if err != nil {
			return fmt.Errorf("failed to open datastore: %w", err)
		}

		if err := repo.Init(cmd.Context()); err != nil {
			return fmt.Errorf("failed to initialize datastore: %w", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing datastore")
			}
		}()

		eng := engine.New(cfg, repo)
		eng.Start()
		defer eng.Stop()

		admin := adminapi.New(eng)
		errCh := make(chan error, 1)
		go func() {
			if err := admin.ListenAndServe(cfg.AdminListenAddr); err != nil {
				errCh <- fmt.Errorf("admin API error: %w", err)
			}
		}()

		logger.Info().
			Str("admin_addr", cfg.AdminListenAddr).
			Str("datastore", cfg.DatastoreURL).
			Msg("ffemonitor started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutdown signal received")
		case err := <-errCh:
			logger.Error().Err(err).Msg("admin API failed")
		}

		return nil
	},
}

// openRepository selects a repository.Repository backend from the
// datastore URL scheme: sqlite:// (or a bare file path) opens the GORM
// store, boltdb:// opens the bbolt store.
func openRepository(datastoreURL string) (repository.Repository, error) {
	switch {
	case strings.HasPrefix(datastoreURL, "boltdb://"):
		path := strings.TrimPrefix(datastoreURL, "boltdb://")
		return boltstore.Open(path)
	case strings.HasPrefix(datastoreURL, "sqlite://"):
		return sqlstore.Open(strings.TrimPrefix(datastoreURL, "sqlite://"))
	default:
		return sqlstore.Open(datastoreURL)
	}
}
