package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/indexer"
)

func newIngestCmd(opts *globalOptions) *cobra.Command {
	var (
		subdir string
		force  bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [project...]",
		Short: "Copy project markdown documentation into the record store",
		Long: `Store every markdown file under the documentation directory of each project
as a record store document keyed by its path. Files whose content is unchanged
since the last ingest are skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			projects := args
			if all || len(projects) == 0 {
				projects, err = a.repos.Projects()
				if err != nil {
					return err
				}
			}

			results := make([]*indexer.Statistics, 0, len(projects))
			for _, project := range projects {
				stats, err := a.indexer.IndexProject(cmd.Context(), project, a.ingestConfig(subdir, force))
				if err != nil {
					a.logger.Error("ingest failed", zap.String("project", project), zap.Error(err))
					return err
				}
				results = append(results, stats)
			}
			return printJSON(cmd, results)
		},
	}
	cmd.Flags().StringVar(&subdir, "subdir", "", "Directory to ingest relative to each project root (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Store files even when their content is unchanged")
	cmd.Flags().BoolVar(&all, "all", false, "Ingest every project (the default when no project is named)")
	return cmd
}
