package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/output"
	"github.com/relaymesh/collector/internal/prepare"
	"github.com/relaymesh/collector/internal/source"
)

// indexDocument is the JSON shape accepted by the index command.
type indexDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Chunks   []string       `json:"chunks,omitempty"`
}

func newIndexCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "index <source>",
		Short: "Index documents from a JSON file or stdin",
		Long: `Read a JSON array of documents and upsert them into one source's
collection. Long content is chunked automatically; re-indexing unchanged
content only refreshes metadata.

Examples:
  collectord index jira --file issues.json
  cat messages.json | collectord index slack`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := source.Parse(args[0])
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var raw []indexDocument
			if err := json.NewDecoder(in).Decode(&raw); err != nil {
				return fmt.Errorf("parse documents: %w", err)
			}
			docs := make([]prepare.Document, len(raw))
			for i, d := range raw {
				docs[i] = prepare.Document{
					ID:       d.ID,
					Content:  d.Content,
					Metadata: d.Metadata,
					Chunks:   d.Chunks,
				}
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

			out := output.New(cmd.OutOrStdout())
			if err := svc.UpsertDocuments(cmd.Context(), ds, docs); err != nil {
				out.Errorf("indexing failed: %v", err)
				return err
			}
			out.Successf("indexed %d documents into %s", len(docs), ds.Collection())
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read documents from this file instead of stdin")
	return cmd
}
