package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docops-mcp/internal/qa"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	var (
		maxDocs  int
		maxChars int
		model    string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <project> <question...>",
		Short: "Answer a question from a project's documentation",
		Long: `Search the project documentation, pass the best files to the configured
chat model and print its answer with the files it was given.

Examples:
  docops ask docops-saas "How are failed invoices retried?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			workflow, err := a.qa(cmd.Context())
			if err != nil {
				return err
			}

			result, err := workflow.Ask(cmd.Context(), qa.Request{
				Project:        args[0],
				Question:       strings.Join(args[1:], " "),
				MaxDocs:        maxDocs,
				MaxCharsPerDoc: maxChars,
				Model:          model,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, result)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, result.Answer)
			if len(result.Sources) > 0 {
				_, _ = fmt.Fprintln(w, "\nSources:")
				for _, src := range result.Sources {
					_, _ = fmt.Fprintf(w, "  - %s\n", src.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDocs, "max-docs", qa.DefaultMaxDocs, "Maximum number of files used as context")
	cmd.Flags().IntVar(&maxChars, "max-chars", qa.DefaultMaxCharsPerDoc, "Characters of each file included in the context")
	cmd.Flags().StringVar(&model, "model", "", "Chat model for this question (default: configured model)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
