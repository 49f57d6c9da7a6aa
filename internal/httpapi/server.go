// Package httpapi serves the search engine, record store and Q&A workflow
// over JSON HTTP.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/metrics"
	"github.com/dshills/docops-mcp/internal/qa"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
)

// Deps are the components behind the API. Repos, Searcher and Store are
// required; QA, Indexer, Registry and Metrics enable their routes.
type Deps struct {
	Repos    *repofs.Repos
	Searcher *searcher.Searcher
	Store    storage.Store
	Registry storage.Registry
	QA       *qa.Workflow
	Indexer  *indexer.Indexer
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Server holds the HTTP handlers
type Server struct {
	repos         *repofs.Repos
	searcher      *searcher.Searcher
	store         storage.Store
	registry      storage.Registry
	qa            *qa.Workflow
	indexer       *indexer.Indexer
	metrics       *metrics.Metrics
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// New creates an HTTP API server
func New(deps Deps) (*Server, error) {
	if deps.Repos == nil || deps.Searcher == nil || deps.Store == nil {
		return nil, errors.New("repos, searcher and store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		repos:         deps.Repos,
		searcher:      deps.Searcher,
		store:         deps.Store,
		registry:      deps.Registry,
		qa:            deps.QA,
		indexer:       deps.Indexer,
		metrics:       deps.Metrics,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}, nil
}

// Handler builds the router with its middleware chain
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(requestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(s.metrics.Middleware())

	r.Get("/healthz", s.Healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", s.ListProjects)
		r.Route("/{project}", func(r chi.Router) {
			r.Get("/docs/search", s.SearchDocs)
			r.Get("/files", s.ListFiles)
			r.Get("/files/*", s.ReadFile)
			r.Get("/documents/search", s.SearchDocuments)
			r.Get("/documents/*", s.GetDocument)
			r.Put("/documents/*", s.UpsertDocument)
			if s.qa != nil {
				r.Post("/ask", s.Ask)
			}
			if s.indexer != nil {
				r.Post("/ingest", s.Ingest)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}
