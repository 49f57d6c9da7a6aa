package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/httpapi"
)

func newHTTPCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHTTP(cmd.Context(), opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func runHTTP(ctx context.Context, opts *globalOptions, addr string) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workflow, err := a.qa(ctx)
	if err != nil {
		return err
	}

	api, err := httpapi.New(httpapi.Deps{
		Repos:    a.repos,
		Searcher: a.searcher,
		Store:    a.store,
		Registry: a.registry(),
		QA:       workflow,
		Indexer:  a.indexer,
		Metrics:  a.metrics,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	a.logger.Info("server stopped gracefully")
	return nil
}
