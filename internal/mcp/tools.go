package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/confluence"
	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/qa"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // Project directory does not exist
	ErrorCodeIndexingInProgress = -32002 // Another ingest of the project is running
	ErrorCodeFileNotFound       = -32003 // File does not exist in the project
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeNotFound           = -32005 // Remote page or record does not exist
	ErrorCodeUpstream           = -32006 // LLM provider or Confluence failure
)

// handleSearchInDocs handles the search_in_docs tool invocation
func (s *Server) handleSearchInDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	query, err := requireQuery(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := limitParam(args, "max_results")
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.SearchDocs(ctx, searcher.DocsRequest{
		Project:  project,
		Query:    query,
		Subdir:   getStringDefault(args, "docs_subdir", repofs.DefaultDocsSubdir),
		Limit:    limit,
		MinScore: getFloatPtr(args, "min_score"),
	})
	if err != nil {
		return nil, s.toolError("search failed", err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, map[string]interface{}{
			"path":    hit.ID,
			"title":   hit.Title,
			"score":   hit.Score,
			"snippet": hit.Snippet,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results":  results,
		"outcome":  resp.Outcome,
		"fallback": resp.Fallback,
		"scanned":  resp.Scanned,
		"skipped":  resp.Skipped,
	})), nil
}

// handleListFiles handles the list_files tool invocation
func (s *Server) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	subdir := getStringDefault(args, "subdir", "")

	files, err := s.repos.ListFiles(ctx, project, subdir)
	if err != nil {
		return nil, s.toolError("failed to list files", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"project": project,
		"subdir":  subdir,
		"files":   files,
	})), nil
}

// handleReadFile returns the raw file content as text
func (s *Server) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	content, err := s.repos.ReadFile(ctx, project, path)
	if err != nil {
		return nil, s.toolError("failed to read file", err)
	}
	return mcp.NewToolResultText(content), nil
}

// handleUpsertDocument handles the upsert_document tool invocation
func (s *Server) handleUpsertDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	docID, err := requireString(args, "doc_id")
	if err != nil {
		return nil, err
	}

	var metadata map[string]any
	if raw, ok := args["metadata"]; ok && raw != nil {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "metadata must be an object", map[string]interface{}{
				"param": "metadata",
			})
		}
		metadata = m
	}

	result, err := s.searcher.Upsert(ctx, types.Document{
		Project:  project,
		ID:       docID,
		Title:    getStringDefault(args, "title", ""),
		Text:     getStringDefault(args, "text", ""),
		Metadata: metadata,
	})
	if err != nil {
		return nil, s.toolError("upsert failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status":   "ok",
		"replaced": result.Replaced,
	})), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	query, err := requireQuery(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := limitParam(args, "limit")
	if err != nil {
		return nil, err
	}

	resp, err := s.searcher.SearchDocuments(ctx, searcher.DocumentsRequest{
		Project:  project,
		Query:    query,
		Limit:    limit,
		MinScore: getFloatPtr(args, "min_score"),
	})
	if err != nil {
		return nil, s.toolError("search failed", err)
	}

	results := make([]map[string]interface{}, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		metadata := hit.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		results = append(results, map[string]interface{}{
			"doc_id":   hit.ID,
			"title":    hit.Title,
			"score":    hit.Score,
			"snippet":  hit.Snippet,
			"metadata": metadata,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"results":  results,
		"outcome":  resp.Outcome,
		"fallback": resp.Fallback,
		"scanned":  resp.Scanned,
	})), nil
}

// handleAskDocs handles the ask_docs tool invocation
func (s *Server) handleAskDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	question, err := requireQuery(args, "question")
	if err != nil {
		return nil, err
	}

	result, err := s.qa.Ask(ctx, qa.Request{
		Project:        project,
		Question:       question,
		MaxDocs:        getIntDefault(args, "max_docs", qa.DefaultMaxDocs),
		MaxCharsPerDoc: getIntDefault(args, "max_chars_per_doc", qa.DefaultMaxCharsPerDoc),
		Model:          getStringDefault(args, "model", ""),
	})
	if err != nil {
		return nil, s.toolError("ask failed", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"request_id":  result.RequestID,
		"answer":      result.Answer,
		"sources":     result.Sources,
		"provider":    result.Provider,
		"model":       result.Model,
		"duration_ms": result.Duration.Milliseconds(),
	})), nil
}

// handleIngestDocs handles the ingest_docs tool invocation
func (s *Server) handleIngestDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}

	stats, err := s.indexer.IndexProject(ctx, project, &indexer.Config{
		Subdir: getStringDefault(args, "subdir", repofs.DefaultDocsSubdir),
		Force:  getBoolDefault(args, "force", false),
	})
	if err != nil {
		return nil, s.toolError("ingest failed", err)
	}

	response := map[string]interface{}{
		"project":        stats.Project,
		"files_found":    stats.FilesFound,
		"files_indexed":  stats.FilesIndexed,
		"files_replaced": stats.FilesReplaced,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"duration_ms":    stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListProjects lists project directories, enriched from the registry when present
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.repos.Projects()
	if err != nil {
		return nil, s.toolError("failed to list projects", err)
	}

	registered := map[string]*storage.Project{}
	if s.registry != nil {
		entries, err := s.registry.ListProjects(ctx)
		if err != nil {
			return nil, s.toolError("failed to read project registry", err)
		}
		for _, p := range entries {
			registered[p.Slug] = p
		}
	}

	results := make([]map[string]interface{}, 0, len(projects))
	for _, slug := range projects {
		entry := map[string]interface{}{"slug": slug}
		if p, ok := registered[slug]; ok {
			entry["name"] = p.Name
			entry["description"] = p.Description
		}
		results = append(results, entry)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"projects": results,
	})), nil
}

// handleGetStatus reports the record store contents
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.store.Projects(ctx)
	if err != nil {
		return nil, s.toolError("failed to get status", err)
	}

	documents := make(map[string]int, len(projects))
	total := 0
	for _, project := range projects {
		docs, err := s.store.List(ctx, project)
		if err != nil {
			return nil, s.toolError("failed to get status", err)
		}
		documents[project] = len(docs)
		total += len(docs)
	}

	response := map[string]interface{}{
		"server":          ServerName,
		"version":         ServerVersion,
		"documents":       documents,
		"total_documents": total,
	}
	if s.status != nil {
		status, err := s.status.GetStatus(ctx)
		if err != nil {
			return nil, s.toolError("failed to get database status", err)
		}
		response["database"] = status
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// newMCPError creates a new MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Error implements the error interface
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// errorCode maps a domain error to its MCP error code
func errorCode(err error) int {
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return ErrorCodeEmptyQuery
	case errors.Is(err, types.ErrPathEscape),
		errors.Is(err, types.ErrMissingProject),
		errors.Is(err, types.ErrMissingDocID),
		errors.Is(err, types.ErrInvalidScore),
		errors.Is(err, confluence.ErrEmptyQuery),
		errors.Is(err, confluence.ErrInvalidPage),
		errors.Is(err, confluence.ErrEmptyPage):
		return ErrorCodeInvalidParams
	case errors.Is(err, types.ErrProjectNotFound):
		return ErrorCodeProjectNotFound
	case errors.Is(err, types.ErrFileNotFound):
		return ErrorCodeFileNotFound
	case errors.Is(err, indexer.ErrIndexInProgress):
		return ErrorCodeIndexingInProgress
	case errors.Is(err, confluence.ErrPageNotFound), errors.Is(err, storage.ErrNotFound):
		return ErrorCodeNotFound
	}

	var apiErr *confluence.APIError
	if errors.As(err, &apiErr) || errors.Is(err, llm.ErrProviderError) || errors.Is(err, llm.ErrRequestRejected) {
		return ErrorCodeUpstream
	}
	return ErrorCodeInternalError
}

// toolError converts a handler failure into an MCPError and logs internal ones
func (s *Server) toolError(message string, err error) error {
	code := errorCode(err)
	if code == ErrorCodeInternalError || code == ErrorCodeUpstream {
		s.logger.Error(message, zap.Error(err))
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// Parameter helpers

// arguments extracts the argument object of a tool call
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// requireString extracts a required non-blank string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// requireQuery is requireString with the empty-query error code
func requireQuery(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, key+" parameter is required and cannot be empty", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// limitParam validates an optional result limit
func limitParam(args map[string]interface{}, key string) (int, error) {
	limit := getIntDefault(args, key, searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("%s must be between 1 and %d", key, searcher.MaxLimit), map[string]interface{}{
			"param": key,
			"value": limit,
		})
	}
	return limit, nil
}

// formatJSON formats data as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to format response: %s"}`, err.Error())
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getFloatPtr extracts an optional number parameter
func getFloatPtr(args map[string]interface{}, key string) *float64 {
	switch val := args[key].(type) {
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	}
	return nil
}
