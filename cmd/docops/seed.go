package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/docops-mcp/internal/seed"
	"github.com/dshills/docops-mcp/internal/storage"
)

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var skipRegistry bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the demo repositories and project registry",
		Long: `Write the bundled demo repositories into the repos directory and reset the
project registry in the SQLite database. Existing repository files are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			var db seed.TxBeginner
			if !skipRegistry {
				if a.db == nil {
					a.db, err = storage.NewSQLiteStorage(a.cfg.Paths.DBPath)
					if err != nil {
						return fmt.Errorf("failed to open registry database: %w", err)
					}
				}
				db = a.db
			}

			report, err := seed.New(a.logger).Run(cmd.Context(), a.repos.Root(), db)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().BoolVar(&skipRegistry, "skip-registry", false, "Only write the demo repositories")
	return cmd
}
