package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/output"
	"github.com/relaymesh/collector/internal/source"
)

func newGetCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "get <source> <id>",
		Short: "Fetch a single document by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := source.Parse(args[0])
			if err != nil {
				return err
			}

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

			doc, err := svc.GetDocument(cmd.Context(), ds, args[1])
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if doc == nil {
				out.Dim("not found")
				return nil
			}
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			out.Header(doc.ID)
			for key, value := range doc.Metadata {
				out.KeyValue(key, toDisplayString(value))
			}
			out.Println("")
			out.Println(doc.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func toDisplayString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
