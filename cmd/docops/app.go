package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/config"
	"github.com/dshills/docops-mcp/internal/confluence"
	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/logger"
	"github.com/dshills/docops-mcp/internal/metrics"
	"github.com/dshills/docops-mcp/internal/qa"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
)

// app holds the components shared by the commands
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	repos    *repofs.Repos
	store    storage.Store
	db       *storage.SQLiteStorage // Registry database, nil when absent
	searcher *searcher.Searcher
	indexer  *indexer.Indexer
}

// newApp loads the configuration and builds the search stack
func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	log, err := logger.New(cfg.Env, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  log,
		metrics: metrics.New(),
	}

	a.repos, err = repofs.New(cfg.Paths.ReposDir, log)
	if err != nil {
		return nil, err
	}

	a.store, err = storage.Open(cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	if db, ok := a.store.(*storage.SQLiteStorage); ok {
		a.db = db
	} else if _, err := os.Stat(cfg.Paths.DBPath); err == nil {
		a.db, err = storage.NewSQLiteStorage(cfg.Paths.DBPath)
		if err != nil {
			_ = a.store.Close()
			return nil, fmt.Errorf("failed to open registry database: %w", err)
		}
	}

	a.searcher = searcher.NewSearcher(a.repos, a.store, cfg.SearcherConfig(),
		searcher.WithLogger(log),
		searcher.WithMetrics(a.metrics),
	)
	a.indexer = indexer.New(a.repos, a.store,
		indexer.WithLogger(log),
		indexer.WithMetrics(a.metrics),
		indexer.WithUpserter(a.searcher),
	)

	log.Debug("configuration loaded", zap.Stringer("config", cfg))
	return a, nil
}

// registry returns the project registry when a database is available
func (a *app) registry() storage.Registry {
	if a.db == nil {
		return nil
	}
	return a.db
}

// qa builds the question answering workflow with the configured chat provider
func (a *app) qa(ctx context.Context) (*qa.Workflow, error) {
	chat, err := llm.New(ctx, a.cfg.LLMClientConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	a.logger.Info("llm client ready",
		zap.String("provider", chat.Provider()),
		zap.String("model", chat.Model()))
	return qa.New(a.searcher, a.repos, llm.Instrument(chat, a.metrics), a.logger), nil
}

// confluence returns a client, or nil when no credentials are configured
func (a *app) confluence() (*confluence.Client, error) {
	cfg := a.cfg.ConfluenceClientConfig()
	if !cfg.Configured() {
		return nil, nil
	}
	return confluence.New(cfg)
}

// ingestConfig returns the ingest settings from configuration
func (a *app) ingestConfig(subdir string, force bool) *indexer.Config {
	if subdir == "" {
		subdir = a.cfg.Ingest.Subdir
	}
	return &indexer.Config{
		Workers: a.cfg.Ingest.Workers,
		Subdir:  subdir,
		Force:   force,
	}
}

func (a *app) close() {
	var errs []error
	if a.db != nil && storage.Store(a.db) != a.store {
		errs = append(errs, a.db.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("failed to close storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}
