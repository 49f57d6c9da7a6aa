package indexer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docops-mcp/internal/metrics"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

// Metadata keys written on ingested documents
const (
	MetaSource      = "source"
	MetaPath        = "path"
	MetaContentHash = "content_hash"

	SourceGit = "git"
)

// ErrIndexInProgress is returned when the same project is already being ingested
var ErrIndexInProgress = errors.New("indexing already in progress")

// Upserter writes documents to the record store
type Upserter interface {
	Upsert(ctx context.Context, doc types.Document) (storage.UpsertResult, error)
}

// Indexer coordinates the ingestion pipeline: discover -> read -> upsert
type Indexer struct {
	repos   *repofs.Repos
	store   storage.Store
	sink    Upserter
	logger  *zap.Logger
	metrics *metrics.Metrics
	lock    ProjectLock

	// Worker pool configuration
	workers int
}

// Config contains configuration for an ingestion run
type Config struct {
	Workers int    // Number of concurrent readers (default: runtime.NumCPU())
	Subdir  string // Directory to ingest (default: repofs.DefaultDocsSubdir)
	Force   bool   // Upsert unchanged documents too
}

// Statistics contains statistics about the ingestion run
type Statistics struct {
	Project       string        `json:"project"`
	FilesFound    int           `json:"files_found"`
	FilesIndexed  int           `json:"files_indexed"`
	FilesReplaced int           `json:"files_replaced"`
	FilesSkipped  int           `json:"files_skipped"`
	FilesFailed   int           `json:"files_failed"`
	Duration      time.Duration `json:"duration_ns"`
	ErrorMessages []string      `json:"errors,omitempty"`
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Indexer) { idx.metrics = m }
}

// WithUpserter routes writes through u instead of the store, e.g. a searcher
// that purges its cache on upsert.
func WithUpserter(u Upserter) Option {
	return func(idx *Indexer) { idx.sink = u }
}

// New creates a new Indexer instance
func New(repos *repofs.Repos, store storage.Store, opts ...Option) *Indexer {
	idx := &Indexer{
		repos:   repos,
		store:   store,
		sink:    store,
		logger:  zap.NewNop(),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// loaded is the outcome of reading one file
type loaded struct {
	path string
	text string
	err  error
}

// IndexProject copies the markdown documentation of a project into the record
// store. Documents whose content hash is unchanged are skipped.
func (idx *Indexer) IndexProject(ctx context.Context, project string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire(project) {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release(project)

	if config == nil {
		config = &Config{}
	}
	workers := config.Workers
	if workers <= 0 {
		workers = idx.workers
	}
	subdir := config.Subdir
	if subdir == "" {
		subdir = repofs.DefaultDocsSubdir
	}

	startTime := time.Now()
	stats := &Statistics{
		Project:       project,
		ErrorMessages: make([]string, 0),
	}

	files, err := idx.discoverFiles(ctx, project, subdir)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	stats.FilesFound = len(files)

	docs, err := idx.readFiles(ctx, project, files, workers)
	if err != nil {
		return nil, fmt.Errorf("failed to read files: %w", err)
	}

	if err := idx.upsertAll(ctx, project, docs, config.Force, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)

	idx.metrics.ObserveIngest("indexed", stats.FilesIndexed)
	idx.metrics.ObserveIngest("skipped", stats.FilesSkipped)
	idx.metrics.ObserveIngest("failed", stats.FilesFailed)

	idx.logger.Info("ingestion finished",
		zap.String("project", project),
		zap.Int("found", stats.FilesFound),
		zap.Int("indexed", stats.FilesIndexed),
		zap.Int("skipped", stats.FilesSkipped),
		zap.Int("failed", stats.FilesFailed),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// discoverFiles lists markdown files under subdir
func (idx *Indexer) discoverFiles(ctx context.Context, project, subdir string) ([]string, error) {
	all, err := idx.repos.ListFiles(ctx, project, subdir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(all))
	for _, p := range all {
		if ok, _ := path.Match(repofs.DocPattern, path.Base(p)); ok {
			files = append(files, p)
		}
	}
	return files, nil
}

// readFiles reads files concurrently, keeping discovery order
func (idx *Indexer) readFiles(ctx context.Context, project string, files []string, workers int) ([]loaded, error) {
	results := make([]loaded, len(files))
	semaphore := make(chan struct{}, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			text, err := idx.repos.ReadFile(gctx, project, p)
			results[i] = loaded{path: p, text: text, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// upsertAll writes documents one at a time in discovery order
func (idx *Indexer) upsertAll(ctx context.Context, project string, docs []loaded, force bool, stats *Statistics) error {
	fail := func(p string, err error) {
		stats.FilesFailed++
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", p, err))
		idx.logger.Warn("failed to ingest document", zap.String("path", p), zap.Error(err))
	}

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.err != nil {
			fail(d.path, d.err)
			continue
		}

		hash := ContentHash(d.text)
		if !force {
			unchanged, err := idx.unchanged(ctx, project, d.path, hash)
			if err != nil {
				return fmt.Errorf("failed to check %s: %w", d.path, err)
			}
			if unchanged {
				stats.FilesSkipped++
				continue
			}
		}

		res, err := idx.sink.Upsert(ctx, types.Document{
			Project: project,
			ID:      d.path,
			Title:   repofs.Title(d.text, path.Base(d.path)),
			Text:    d.text,
			Metadata: map[string]any{
				MetaSource:      SourceGit,
				MetaPath:        d.path,
				MetaContentHash: hash,
			},
		})
		if err != nil {
			fail(d.path, err)
			continue
		}
		stats.FilesIndexed++
		if res.Replaced {
			stats.FilesReplaced++
		}
	}
	return nil
}

// unchanged reports whether the stored document already has this content hash
func (idx *Indexer) unchanged(ctx context.Context, project, id, hash string) (bool, error) {
	existing, err := idx.store.Get(ctx, project, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	stored, _ := existing.Metadata[MetaContentHash].(string)
	return stored == hash, nil
}

// ContentHash returns the hex xxhash64 digest of text
func ContentHash(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}
