package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/navigate"
	"github.com/relaymesh/collector/internal/output"
)

func newNavigateCmd() *cobra.Command {
	var (
		scope  string
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "navigate <document-id> <direction>",
		Short: "Walk a document's relatives",
		Long: `Resolve a document and list its relatives: previous/next chunk,
thread or folder siblings, parent, or children.

Directions: prev, next, siblings, parent, children.
Scopes (for prev/next/siblings): chunk, datapoint, context.

Examples:
  collectord navigate doc1_chunk_0 next --scope chunk
  collectord navigate slack_m42 siblings --scope datapoint
  collectord navigate confluence_c7 parent`,
		Args: cobra.ExactArgs(2),
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

			res, err := svc.Navigate(cmd.Context(), args[0],
				navigate.Direction(args[1]), navigate.Scope(scope), limit)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			out := output.New(cmd.OutOrStdout())
			if res.Current == nil {
				out.Dim("document not found in any source")
				return nil
			}
			out.Header("current: " + res.Current.ID)
			out.KeyValue("source", string(res.Current.Source))
			out.KeyValue("context", res.Navigation.ContextType)
			if res.Navigation.ParentID != nil {
				out.KeyValue("parent", *res.Navigation.ParentID)
			}
			for _, d := range res.Related {
				out.Printf("  [%s]  %s", d.Source, d.ID)
				out.Snippet(d.Content, 120)
			}
			if len(res.Related) == 0 {
				out.Dim("no related documents")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "chunk", "Navigation scope: chunk, datapoint, context")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum related documents")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
