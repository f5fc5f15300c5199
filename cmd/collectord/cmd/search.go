package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relaymesh/collector/internal/output"
	"github.com/relaymesh/collector/internal/search"
	"github.com/relaymesh/collector/internal/source"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	sources    []string
	searchType string
	limit      int
	offset     int
	startDate  string
	endDate    string
	minScore   float64
	where      []string
	format     string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed documents",
		Long: `Search across the per-source collections.

Examples:
  collectord search "deploy runbook"
  collectord search "incident review" --sources slack,jira --type hybrid
  collectord search "roadmap" --where status=open --start-date 2024-01-01
  collectord search "quarterly report" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.sources, "sources", "s", nil, "Restrict to sources (repeatable)")
	cmd.Flags().StringVarP(&opts.searchType, "type", "t", "", "Search type: vector, keyword, hybrid")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Results to skip")
	cmd.Flags().StringVar(&opts.startDate, "start-date", "", "Only documents created on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.endDate, "end-date", "", "Only documents created on or before this date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Drop results scoring below this")
	cmd.Flags().StringArrayVarP(&opts.where, "where", "w", nil, "Metadata equality filter, key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup := setupLogging(cfg, false)
	defer cleanup()

	var sources []source.DataSource
	for _, raw := range opts.sources {
		ds, err := source.Parse(raw)
		if err != nil {
			return err
		}
		sources = append(sources, ds)
	}

	where := make(map[string]any, len(opts.where))
	for _, pair := range opts.where {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --where filter %q, expected key=value", pair)
		}
		where[key] = value
	}

	svc, closeSvc, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer closeSvc()

	page, err := svc.Search(cmd.Context(), query, search.Options{
		Sources:   sources,
		Type:      search.Type(opts.searchType),
		Limit:     opts.limit,
		Offset:    opts.offset,
		Where:     where,
		StartDate: opts.startDate,
		EndDate:   opts.endDate,
		MinScore:  opts.minScore,
	})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}

	out := output.New(cmd.OutOrStdout())
	if len(page.Results) == 0 {
		out.Dim("no results")
		return nil
	}
	out.Header(fmt.Sprintf("%d of %d results for %q", len(page.Results), page.Total, query))
	for _, r := range page.Results {
		out.Printf("%.3f  [%s]  %s", r.Score, r.Source, r.ID)
		out.Snippet(r.Content, 160)
	}
	return nil
}
