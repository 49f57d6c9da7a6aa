package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docops-mcp/internal/confluence"
)

// handleConfluenceSearchPages handles the confluence_search_pages tool invocation
func (s *Server) handleConfluenceSearchPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, err := requireQuery(args, "query")
	if err != nil {
		return nil, err
	}
	limit := getIntDefault(args, "limit", confluence.DefaultSearchLimit)
	if limit < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	pages, err := s.confluence.SearchPages(ctx, query, getStringDefault(args, "space_key", ""), limit)
	if err != nil {
		return nil, s.toolError("confluence search failed", err)
	}
	if pages == nil {
		pages = []confluence.PageSummary{}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"pages": pages,
	})), nil
}

// handleConfluenceGetPage handles the confluence_get_page tool invocation
func (s *Server) handleConfluenceGetPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	pageID, err := requireString(args, "page_id")
	if err != nil {
		return nil, err
	}

	page, err := s.confluence.GetPage(ctx, pageID)
	if err != nil {
		return nil, s.toolError("failed to get confluence page", err)
	}
	return mcp.NewToolResultText(formatJSON(page)), nil
}

// handleConfluenceCreatePage handles the confluence_create_page tool invocation
func (s *Server) handleConfluenceCreatePage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	spaceKey, err := requireString(args, "space_key")
	if err != nil {
		return nil, err
	}
	title, err := requireString(args, "title")
	if err != nil {
		return nil, err
	}

	page, err := s.confluence.CreatePage(ctx, confluence.CreatePageRequest{
		SpaceKey:     spaceKey,
		Title:        title,
		BodyStorage:  getStringDefault(args, "body_storage", ""),
		ParentPageID: getStringDefault(args, "parent_page_id", ""),
	})
	if err != nil {
		return nil, s.toolError("failed to create confluence page", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":      page.ID,
		"title":   page.Title,
		"space":   page.Space.Key,
		"version": page.Version.Number,
		"url":     page.Links.WebUI,
	})), nil
}

// handleConfluenceImportPage handles the confluence_import_page tool invocation
func (s *Server) handleConfluenceImportPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	project, err := requireString(args, "project_slug")
	if err != nil {
		return nil, err
	}
	pageID, err := requireString(args, "page_id")
	if err != nil {
		return nil, err
	}

	result, err := s.importer.Import(ctx, project, pageID)
	if err != nil {
		return nil, s.toolError("confluence import failed", err)
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}
