// Package cmd provides the CLI commands for collectord.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/collector"
	"github.com/relaymesh/collector/internal/config"
	"github.com/relaymesh/collector/internal/embed"
	"github.com/relaymesh/collector/internal/logging"
	"github.com/relaymesh/collector/internal/search"
	"github.com/relaymesh/collector/internal/store"
	"github.com/relaymesh/collector/pkg/version"
)

var (
	flagDataDir  string
	flagLogLevel string
	flagStatic   bool
)

// NewRootCmd creates the root command for the collectord CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collectord",
		Short: "Cross-source document index and retrieval engine",
		Long: `collectord indexes documents from Jira, Slack, Gmail, Drive,
Confluence, Calendar, and GitHub into per-source vector collections and
answers semantic, keyword, and hybrid queries over them.

Run 'collectord serve' to expose the engine to MCP clients.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("collectord version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (default ~/.collector)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&flagStatic, "static-embeddings", false, "Use deterministic hash embeddings (no network)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newNavigateCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads configuration with CLI flag overrides applied.
func loadConfig() (*config.Config, error) {
	// A .env next to the working directory is a convenience for API keys.
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.Data.Dir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.Server.LogLevel = flagLogLevel
	}
	if flagStatic {
		cfg.Embeddings.Provider = "static"
	}
	return cfg, nil
}

// setupLogging configures slog for a CLI run. Interactive commands log to
// the file only; the serve command also writes to stderr.
func setupLogging(cfg *config.Config, toStderr bool) func() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	logCfg.WriteToStderr = toStderr
	if cfg.Server.LogFile != "" {
		logCfg.FilePath = cfg.Server.LogFile
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Logging must never block the command itself.
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

// buildService wires the store, embedder, and service from configuration.
// The returned close function flushes indexes and releases the data
// directory lock.
func buildService(cfg *config.Config) (*collector.Service, func(), error) {
	embedder, err := embed.NewFromConfig(cfg.Embeddings)
	if err != nil {
		return nil, nil, fmt.Errorf("configure embedder: %w", err)
	}

	var st store.Store
	switch cfg.Store.Backend {
	case "chromem":
		st = store.NewChromemStore()
	default:
		st, err = store.NewLocalStore(cfg.Data.Dir, embedder.Dimensions(),
			store.WithHNSWParams(cfg.Store.HNSWM, cfg.Store.HNSWEfSearch))
		if err != nil {
			_ = embedder.Close()
			return nil, nil, err
		}
	}

	svc := collector.New(st, embedder,
		collector.WithSearchOptions(
			search.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit)))
	closeAll := func() {
		if err := st.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
		_ = embedder.Close()
	}
	return svc, closeAll, nil
}
