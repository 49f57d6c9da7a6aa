package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
)

// projectSlugProperty is shared by every project-scoped tool
func projectSlugProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Project slug (directory name under the repos root)",
	}
}

func minScoreProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Relevance threshold a document must reach (default 5.0)",
		"minimum":     0.0,
	}
}

// searchInDocsTool returns the tool definition for search_in_docs
func searchInDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_in_docs",
		Description: "Search a project's markdown documentation. Phrase matches rank above single words; when nothing is relevant the first documents are returned as a fallback.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"docs_subdir": map[string]interface{}{
					"type":        "string",
					"description": "Documentation directory relative to the project root",
					"default":     repofs.DefaultDocsSubdir,
				},
				"max_results": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"min_score": minScoreProperty(),
			},
			Required: []string{"project_slug", "query"},
		},
	}
}

// listFilesTool returns the tool definition for list_files
func listFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_files",
		Description: "List every file under a project subdirectory as paths relative to the project root",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"subdir": map[string]interface{}{
					"type":        "string",
					"description": "Subdirectory relative to the project root (empty for the whole project)",
					"default":     "",
				},
			},
			Required: []string{"project_slug"},
		},
	}
}

// readFileTool returns the tool definition for read_file
func readFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "read_file",
		Description: "Read a UTF-8 file from a project repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path relative to the project root, e.g. docs/billing_overview.md",
				},
			},
			Required: []string{"project_slug", "path"},
		},
	}
}

// upsertDocumentTool returns the tool definition for upsert_document
func upsertDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "upsert_document",
		Description: "Store a document in the record store, replacing any document with the same project and id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"doc_id": map[string]interface{}{
					"type":        "string",
					"description": "Document identifier, unique within the project",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Document title",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Document body",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Arbitrary metadata stored with the document",
				},
			},
			Required: []string{"project_slug", "doc_id", "title", "text"},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search the record store documents of a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"min_score": minScoreProperty(),
			},
			Required: []string{"project_slug", "query"},
		},
	}
}

// askDocsTool returns the tool definition for ask_docs
func askDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_docs",
		Description: "Answer a question from a project's documentation and list the files used as sources",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question in natural language",
				},
				"max_docs": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of documentation files used as context",
					"default":     5,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"max_chars_per_doc": map[string]interface{}{
					"type":        "integer",
					"description": "Characters of each file included in the context",
					"default":     2000,
					"minimum":     1,
				},
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Chat model for this question (default: the configured model)",
				},
			},
			Required: []string{"project_slug", "question"},
		},
	}
}

// ingestDocsTool returns the tool definition for ingest_docs
func ingestDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_docs",
		Description: "Copy a project's markdown documentation into the record store; unchanged files are skipped",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"subdir": map[string]interface{}{
					"type":        "string",
					"description": "Directory to ingest relative to the project root",
					"default":     repofs.DefaultDocsSubdir,
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, store every file even when its content is unchanged",
					"default":     false,
				},
			},
			Required: []string{"project_slug"},
		},
	}
}

// listProjectsTool returns the tool definition for list_projects
func listProjectsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_projects",
		Description: "List the projects available in the repos root together with their registry details",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report record store contents per project and storage statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// confluenceSearchPagesTool returns the tool definition for confluence_search_pages
func confluenceSearchPagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "confluence_search_pages",
		Description: "Full-text search of Confluence pages, optionally limited to one space",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Text to search for",
				},
				"space_key": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the search to this space",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of pages to return",
					"default":     10,
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// confluenceGetPageTool returns the tool definition for confluence_get_page
func confluenceGetPageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "confluence_get_page",
		Description: "Fetch a Confluence page with its storage-format body, version and space",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"page_id": map[string]interface{}{
					"type":        "string",
					"description": "Confluence page id",
				},
			},
			Required: []string{"page_id"},
		},
	}
}

// confluenceCreatePageTool returns the tool definition for confluence_create_page
func confluenceCreatePageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "confluence_create_page",
		Description: "Create a Confluence page from storage-format XHTML",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"space_key": map[string]interface{}{
					"type":        "string",
					"description": "Space the page is created in",
				},
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Page title",
				},
				"body_storage": map[string]interface{}{
					"type":        "string",
					"description": "Page body in Confluence storage format",
				},
				"parent_page_id": map[string]interface{}{
					"type":        "string",
					"description": "Optional parent page id",
				},
			},
			Required: []string{"space_key", "title", "body_storage"},
		},
	}
}

// confluenceImportPageTool returns the tool definition for confluence_import_page
func confluenceImportPageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "confluence_import_page",
		Description: "Convert a Confluence page to markdown and store it in a project's record store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_slug": projectSlugProperty(),
				"page_id": map[string]interface{}{
					"type":        "string",
					"description": "Confluence page id",
				},
			},
			Required: []string{"project_slug", "page_id"},
		},
	}
}
