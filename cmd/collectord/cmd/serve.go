package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Start the collector MCP server. Tools are exposed over the stdio
transport, so stdout carries only protocol traffic; logs go to the log
file (and stderr).

Examples:
  collectord serve
  collectord serve --static-embeddings --data-dir /tmp/collector`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cleanup := setupLogging(cfg, true)
			defer cleanup()

			svc, closeSvc, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer closeSvc()

			srv, err := mcp.NewServer(svc, slog.Default())
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context(), cfg.Server.Transport)
		},
	}
}
