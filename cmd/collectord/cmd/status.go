package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/output"
)

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-source document counts and embedder readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cleanup := setupLogging(cfg, false)
			defer cleanup()

			svc, closeSvc, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer closeSvc()

			st, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			out := output.New(cmd.OutOrStdout())
			out.Header("collector status")
			out.KeyValue("model", st.EmbeddingModel)
			if st.EmbedderReady {
				out.Success("embedder ready")
			} else {
				out.Warning("embedder unavailable")
			}
			for _, src := range st.Sources {
				out.KeyValue(string(src.Source), fmt.Sprintf("%d documents", src.Count))
			}
			out.KeyValue("total", fmt.Sprintf("%d documents", st.TotalDocuments))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
