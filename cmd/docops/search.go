package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
)

// searchFlags are shared by both search commands
type searchFlags struct {
	limit    int
	minScore float64
	json     bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", searcher.DefaultLimit, "Maximum number of results")
	cmd.Flags().Float64Var(&f.minScore, "min-score", -1, "Relevance threshold (default from config)")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print results as JSON")
}

func (f *searchFlags) threshold() *float64 {
	if f.minScore < 0 {
		return nil
	}
	v := f.minScore
	return &v
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var (
		flags  searchFlags
		subdir string
	)

	cmd := &cobra.Command{
		Use:   "search <project> <query...>",
		Short: "Search a project's markdown documentation",
		Long: `Search the markdown files under a project's documentation directory.

Examples:
  docops search docops-saas "invoice retries"
  docops search airport-food incident process --limit 3 --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.searcher.SearchDocs(cmd.Context(), searcher.DocsRequest{
				Project:  args[0],
				Query:    strings.Join(args[1:], " "),
				Subdir:   subdir,
				Limit:    flags.limit,
				MinScore: flags.threshold(),
			})
			if err != nil {
				return err
			}
			if flags.json {
				return printJSON(cmd, resp)
			}
			printHits(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&subdir, "subdir", repofs.DefaultDocsSubdir, "Documentation directory relative to the project root")
	return cmd
}

// printHits renders a response for terminals
func printHits(w io.Writer, resp *searcher.SearchResponse) {
	switch {
	case resp.Outcome == searcher.OutcomeScopeAbsent:
		_, _ = fmt.Fprintln(w, "No such project or documentation directory.")
		return
	case len(resp.Hits) == 0:
		_, _ = fmt.Fprintln(w, "No results.")
		return
	case resp.Fallback:
		_, _ = fmt.Fprintln(w, "No relevant matches; showing the first documents instead.")
	}

	for i, hit := range resp.Hits {
		_, _ = fmt.Fprintf(w, "%d. %s (score %.1f)\n", i+1, hit.ID, hit.Score)
		if hit.Title != "" && hit.Title != hit.ID {
			_, _ = fmt.Fprintf(w, "   %s\n", hit.Title)
		}
		_, _ = fmt.Fprintf(w, "   %s\n\n", strings.ReplaceAll(hit.Snippet, "\n", " "))
	}
}
