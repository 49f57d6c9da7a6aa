package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/confluence"
	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/qa"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docops-mcp"
	// ServerVersion is the current server version
	ServerVersion = "0.3.0"
)

// ConfluenceClient is the subset of the Confluence REST client used by the tools
type ConfluenceClient interface {
	SearchPages(ctx context.Context, query, spaceKey string, limit int) ([]confluence.PageSummary, error)
	GetPage(ctx context.Context, pageID string) (*confluence.Page, error)
	CreatePage(ctx context.Context, req confluence.CreatePageRequest) (*confluence.Page, error)
	BaseURL() string
}

// StatusReporter reports database statistics
type StatusReporter interface {
	GetStatus(ctx context.Context) (*storage.Status, error)
}

// Deps are the components the server exposes as tools.
// Repos, Searcher and Store are required; the rest enable optional tools.
type Deps struct {
	Repos      *repofs.Repos
	Searcher   *searcher.Searcher
	Store      storage.Store
	Registry   storage.Registry
	Status     StatusReporter
	QA         *qa.Workflow
	Indexer    *indexer.Indexer
	Confluence ConfluenceClient
	Logger     *zap.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	repos      *repofs.Repos
	searcher   *searcher.Searcher
	store      storage.Store
	registry   storage.Registry
	status     StatusReporter
	qa         *qa.Workflow
	indexer    *indexer.Indexer
	confluence ConfluenceClient
	importer   *confluence.Importer
	logger     *zap.Logger
	tools      []string
}

// NewServer creates a new MCP server instance
func NewServer(deps Deps) (*Server, error) {
	if deps.Repos == nil || deps.Searcher == nil || deps.Store == nil {
		return nil, errors.New("repos, searcher and store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion, server.WithResourceCapabilities(false, false)),
		repos:      deps.Repos,
		searcher:   deps.Searcher,
		store:      deps.Store,
		registry:   deps.Registry,
		status:     deps.Status,
		qa:         deps.QA,
		indexer:    deps.Indexer,
		confluence: deps.Confluence,
		logger:     logger,
	}
	if s.confluence != nil {
		s.importer = confluence.NewImporter(s.confluence, s.searcher, s.confluence.BaseURL(), logger)
	}

	s.registerTools()
	s.mcp.AddResourceTemplate(repoFileTemplate(), s.handleReadRepoFile)
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
// The caller owns the store and closes it.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio",
		zap.Strings("tools", s.tools),
		zap.String("resources", RepoFileTemplate))
	return server.ServeStdio(s.mcp)
}

// Tools returns the names of the registered tools in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

// registerTools registers all MCP tools whose dependencies are available
func (s *Server) registerTools() {
	s.addTool(searchInDocsTool(), s.handleSearchInDocs)
	s.addTool(listFilesTool(), s.handleListFiles)
	s.addTool(readFileTool(), s.handleReadFile)
	s.addTool(upsertDocumentTool(), s.handleUpsertDocument)
	s.addTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.addTool(listProjectsTool(), s.handleListProjects)
	s.addTool(getStatusTool(), s.handleGetStatus)

	if s.qa != nil {
		s.addTool(askDocsTool(), s.handleAskDocs)
	}
	if s.indexer != nil {
		s.addTool(ingestDocsTool(), s.handleIngestDocs)
	}
	if s.confluence != nil {
		s.addTool(confluenceSearchPagesTool(), s.handleConfluenceSearchPages)
		s.addTool(confluenceGetPageTool(), s.handleConfluenceGetPage)
		s.addTool(confluenceCreatePageTool(), s.handleConfluenceCreatePage)
		s.addTool(confluenceImportPageTool(), s.handleConfluenceImportPage)
	}
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}
