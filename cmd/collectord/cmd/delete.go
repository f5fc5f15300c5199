package cmd

import (
	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/output"
	"github.com/relaymesh/collector/internal/source"
)

func newDeleteCmd() *cobra.Command {
	var dropCollection bool

	cmd := &cobra.Command{
		Use:   "delete <source> [id]",
		Short: "Delete a document or a whole collection",
		Long: `Delete one document (and all of its chunks) from a source's
collection, or drop the entire collection with --collection.

Examples:
  collectord delete jira jira-123
  collectord delete slack --collection`,
		Args: cobra.RangeArgs(1, 2),
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

			out := output.New(cmd.OutOrStdout())
			if dropCollection {
				if err := svc.DeleteCollection(cmd.Context(), ds); err != nil {
					return err
				}
				out.Successf("dropped collection %s", ds.Collection())
				return nil
			}

			if len(args) < 2 {
				return cmd.Usage()
			}
			if err := svc.DeleteDocument(cmd.Context(), ds, args[1]); err != nil {
				return err
			}
			out.Successf("deleted %s from %s", args[1], ds.Collection())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dropCollection, "collection", false, "Drop the entire collection")
	return cmd
}
