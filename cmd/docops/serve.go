package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/mcp"
	"github.com/dshills/docops-mcp/internal/storage"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the MCP server on stdin/stdout. Logs go to stderr.

Example MCP client configuration:
  {"mcpServers": {"docops": {"command": "docops", "args": ["serve"]}}}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *globalOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workflow, err := a.qa(ctx)
	if err != nil {
		return err
	}
	cf, err := a.confluence()
	if err != nil {
		return err
	}

	deps := mcp.Deps{
		Repos:    a.repos,
		Searcher: a.searcher,
		Store:    a.store,
		QA:       workflow,
		Indexer:  a.indexer,
		Logger:   a.logger,
	}
	if a.db != nil {
		deps.Registry = a.db
		deps.Status = a.db
	}
	if cf != nil {
		deps.Confluence = cf
	}

	server, err := mcp.NewServer(deps)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	a.logger.Info("docops MCP server starting",
		zap.String("version", version),
		zap.String("repos_dir", a.repos.Root()),
		zap.String("store", a.cfg.Storage.Backend),
		zap.String("build_mode", storage.BuildMode))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		a.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	a.logger.Info("server stopped")
	return nil
}
