package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/docops-mcp/internal/mcp"
	"github.com/dshills/docops-mcp/internal/storage"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "docops %s\n", version)
			_, _ = fmt.Fprintf(w, "Build Time: %s\n", buildTime)
			_, _ = fmt.Fprintf(w, "MCP Server: %s %s\n", mcp.ServerName, mcp.ServerVersion)
			_, _ = fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
			_, _ = fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
		},
	}
}
