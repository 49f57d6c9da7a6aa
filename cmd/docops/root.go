package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "docops",
		Short: "Search and answer questions over project documentation",
		Long: `docops indexes the markdown documentation of project repositories and
a record store of named documents, and serves lexical search, file access and
question answering over MCP (stdio) and HTTP.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $DOCOPS_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newServeCmd(opts),
		newHTTPCmd(opts),
		newSearchCmd(opts),
		newDocumentsCmd(opts),
		newAskCmd(opts),
		newIngestCmd(opts),
		newSeedCmd(opts),
		newVersionCmd(),
	)
	return root
}

// printJSON writes v as indented JSON to the command output
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
