package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/pkg/types"
)

func newDocumentsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage and search the record store",
	}
	cmd.AddCommand(newDocumentsSearchCmd(opts), newDocumentsUpsertCmd(opts))
	return cmd
}

func newDocumentsSearchCmd(opts *globalOptions) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <project> <query...>",
		Short: "Search the record store documents of a project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.searcher.SearchDocuments(cmd.Context(), searcher.DocumentsRequest{
				Project:  args[0],
				Query:    strings.Join(args[1:], " "),
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
	return cmd
}

func newDocumentsUpsertCmd(opts *globalOptions) *cobra.Command {
	var (
		title    string
		file     string
		metadata map[string]string
	)

	cmd := &cobra.Command{
		Use:   "upsert <project> <doc-id> [text]",
		Short: "Create or replace a record store document",
		Long: `Create or replace a document. The body is taken from the text argument,
from --file, or from stdin when --file is "-".

Examples:
  docops documents upsert docops-saas runbook-1 "Restart the gateway" --title "Runbook"
  docops documents upsert docops-saas adr-7 --file docs/adr-7.md --meta owner=platform`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := documentText(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			meta := make(map[string]any, len(metadata))
			for k, v := range metadata {
				meta[k] = v
			}

			res, err := a.searcher.Upsert(cmd.Context(), types.Document{
				Project:  args[0],
				ID:       args[1],
				Title:    title,
				Text:     text,
				Metadata: meta,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"status": "ok", "replaced": res.Replaced})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&file, "file", "", `Read the body from a file ("-" for stdin)`)
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "Metadata as key=value pairs")
	return cmd
}

// documentText resolves the document body from args or --file
func documentText(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case len(args) == 3 && file != "":
		return "", fmt.Errorf("pass the text argument or --file, not both")
	case len(args) == 3:
		return args[2], nil
	case file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("document text is required")
	}
}
