package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/lexical"
	"github.com/dshills/docops-mcp/internal/metrics"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

// Outcome classifies a search response
type Outcome string

const (
	OutcomeOK          Outcome = "ok"           // At least one hit, ranked or fallback
	OutcomeEmpty       Outcome = "empty"        // The scope exists but nothing was returned
	OutcomeScopeAbsent Outcome = "scope_absent" // The project or its documentation scope does not exist
)

// Limits applied by validateRequest
const (
	DefaultLimit = 5
	MaxLimit     = 100
)

// Corpus labels used in responses and metrics
const (
	CorpusDocs    = "docs"
	CorpusRecords = "records"
)

// DocsRequest searches the markdown documentation of a project
type DocsRequest struct {
	Project  string
	Query    string
	Subdir   string   // Defaults to repofs.DefaultDocsSubdir
	Limit    int      // Defaults to DefaultLimit, capped at MaxLimit
	MinScore *float64 // Overrides Config.MinScore
}

// DocumentsRequest searches the record store documents of a project
type DocumentsRequest struct {
	Project  string
	Query    string
	Limit    int
	MinScore *float64
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Hits     []types.SearchHit `json:"hits"`
	Outcome  Outcome           `json:"outcome"`
	Fallback bool              `json:"fallback"`
	Scanned  int               `json:"scanned"`
	Skipped  int               `json:"skipped,omitempty"`
	Duration time.Duration     `json:"-"`
	CacheHit bool              `json:"cache_hit,omitempty"`
}

// Config tunes the engine
type Config struct {
	MinScore     float64
	Fallback     bool
	DocsWindow   lexical.Window
	RecordWindow lexical.Window
	CacheSize    int           // Record store query cache entries; 0 disables the cache
	CacheTTL     time.Duration // Lifetime of a cached response
}

// DefaultConfig returns the canonical engine settings
func DefaultConfig() Config {
	return Config{
		MinScore:     lexical.DefaultMinScore,
		Fallback:     true,
		DocsWindow:   lexical.PathWindow,
		RecordWindow: lexical.RecordWindow,
		CacheSize:    0,
		CacheTTL:     time.Minute,
	}
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs lexical searches over project documentation and the record store
type Searcher struct {
	repos   *repofs.Repos
	store   storage.Store
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// Option configures a Searcher
type Option func(*Searcher)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) { s.metrics = m }
}

// NewSearcher creates a new Searcher instance. repos or store may be nil when
// the corresponding corpus is not served.
func NewSearcher(repos *repofs.Repos, store storage.Store, cfg Config, opts ...Option) *Searcher {
	s := &Searcher{
		repos:  repos,
		store:  store,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[[32]byte, *cacheEntry](cfg.CacheSize)
		if err != nil {
			// This should never happen with valid size parameter
			panic(fmt.Sprintf("failed to create LRU cache: %v", err))
		}
		s.cache = cache
	}

	return s
}

// SearchDocs searches a project's markdown documentation.
// A missing project or docs directory yields OutcomeScopeAbsent, not an error.
func (s *Searcher) SearchDocs(ctx context.Context, req DocsRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if s.repos == nil {
		return nil, fmt.Errorf("documentation repositories not configured")
	}

	limit, minScore, err := s.validateRequest(req.Query, req.Limit, req.MinScore)
	if err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	scope, ok, err := s.repos.Docs(req.Project, req.Subdir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.finish(CorpusDocs, scopeAbsent(), startTime), nil
	}

	res, err := lexical.Search(ctx, req.Query, scope.Walker(), lexical.Options{
		Limit:    limit,
		MinScore: minScore,
		Fallback: s.cfg.Fallback,
		Window:   s.cfg.DocsWindow,
		Source:   types.SourceDocs,
	})
	if err != nil {
		return nil, err
	}

	response := fromResult(res)
	response.Skipped = scope.Skipped()
	return s.finish(CorpusDocs, response, startTime), nil
}

// SearchDocuments searches a project's record store documents.
// A project without documents yields OutcomeScopeAbsent, not an error.
func (s *Searcher) SearchDocuments(ctx context.Context, req DocumentsRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if s.store == nil {
		return nil, fmt.Errorf("document store not configured")
	}

	limit, minScore, err := s.validateRequest(req.Query, req.Limit, req.MinScore)
	if err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	key, cacheable := s.recordsCacheKey(ctx, req.Project, req.Query, limit, minScore)
	if cacheable {
		if cached := s.checkCache(key); cached != nil {
			cached.CacheHit = true
			return s.finish(CorpusRecords, cached, startTime), nil
		}
	}

	docs, err := s.store.List(ctx, req.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		return s.finish(CorpusRecords, scopeAbsent(), startTime), nil
	}

	res, err := lexical.Search(ctx, req.Query, lexical.DocumentsWalker(docs), lexical.Options{
		Limit:    limit,
		MinScore: minScore,
		Fallback: s.cfg.Fallback,
		Window:   s.cfg.RecordWindow,
		Source:   types.SourceRecords,
	})
	if err != nil {
		return nil, err
	}

	response := fromResult(res)
	if cacheable {
		s.storeInCache(key, response)
	}
	return s.finish(CorpusRecords, response, startTime), nil
}

// Upsert writes a document to the record store and drops cached responses
func (s *Searcher) Upsert(ctx context.Context, doc types.Document) (storage.UpsertResult, error) {
	if s.store == nil {
		return storage.UpsertResult{}, fmt.Errorf("document store not configured")
	}

	res, err := s.store.Upsert(ctx, doc)
	s.metrics.ObserveUpsert(res.Replaced, err)
	if err != nil {
		return res, err
	}

	s.InvalidateCache()
	return res, nil
}

// validateRequest ensures search request is valid and resolves defaults
func (s *Searcher) validateRequest(query string, limit int, minScore *float64) (int, float64, error) {
	if strings.TrimSpace(query) == "" {
		return 0, 0, types.ErrEmptyQuery
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	threshold := s.cfg.MinScore
	if minScore != nil {
		if *minScore < 0 || math.IsNaN(*minScore) || math.IsInf(*minScore, 0) {
			return 0, 0, types.ErrInvalidScore
		}
		threshold = *minScore
	}

	return limit, threshold, nil
}

func (s *Searcher) finish(corpus string, response *SearchResponse, startTime time.Time) *SearchResponse {
	response.Duration = time.Since(startTime)
	s.metrics.ObserveSearch(corpus, string(response.Outcome), response.Duration.Seconds(), response.Skipped)
	s.logger.Debug("search completed",
		zap.String("corpus", corpus),
		zap.String("outcome", string(response.Outcome)),
		zap.Int("hits", len(response.Hits)),
		zap.Bool("fallback", response.Fallback),
		zap.Bool("cache_hit", response.CacheHit),
		zap.Duration("duration", response.Duration))
	return response
}

func fromResult(res *lexical.Result) *SearchResponse {
	outcome := OutcomeOK
	if len(res.Hits) == 0 {
		outcome = OutcomeEmpty
	}
	return &SearchResponse{
		Hits:     res.Hits,
		Outcome:  outcome,
		Fallback: res.Fallback,
		Scanned:  res.Scanned,
	}
}

func scopeAbsent() *SearchResponse {
	return &SearchResponse{Hits: []types.SearchHit{}, Outcome: OutcomeScopeAbsent}
}

// recordsCacheKey keys a record store query on the store's current version.
// Stores that cannot report a version are never cached.
func (s *Searcher) recordsCacheKey(ctx context.Context, project, query string, limit int, minScore float64) ([32]byte, bool) {
	if s.cache == nil {
		return [32]byte{}, false
	}
	v, ok := s.store.(storage.Versioner)
	if !ok {
		return [32]byte{}, false
	}
	version, err := v.Version(ctx)
	if err != nil {
		s.logger.Debug("store version unavailable, skipping cache", zap.Error(err))
		return [32]byte{}, false
	}
	return computeQueryHash(CorpusRecords, project, version, query, limit, minScore), true
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	if s.cache == nil {
		return nil
	}

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		s.metrics.ObserveCache(false)
		return nil
	}

	// Check expiry while holding the read lock
	if time.Now().After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		s.metrics.ObserveCache(false)
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	s.metrics.ObserveCache(true)
	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(key [32]byte, response *SearchResponse) {
	if s.cache == nil {
		return
	}

	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(s.cfg.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response
func (s *Searcher) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Hits = make([]types.SearchHit, len(src.Hits))
	for i, hit := range src.Hits {
		dst.Hits[i] = hit
		dst.Hits[i].Matched = append([]string(nil), hit.Matched...)
		if hit.Metadata != nil {
			dst.Hits[i].Metadata = make(map[string]any, len(hit.Metadata))
			for k, v := range hit.Metadata {
				dst.Hits[i].Metadata[k] = v
			}
		}
	}
	return &dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(corpus, project, version, query string, limit int, minScore float64) [32]byte {
	var data strings.Builder
	data.WriteString(corpus)
	data.WriteString("|")
	data.WriteString(project)
	data.WriteString("|")
	data.WriteString(version)
	data.WriteString("|")
	data.WriteString(query)
	data.WriteString(fmt.Sprintf("|%d|%.4f", limit, minScore))

	return sha256.Sum256([]byte(data.String()))
}
