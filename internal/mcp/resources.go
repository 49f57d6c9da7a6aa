package mcp

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// RepoURIScheme prefixes repository file resources
	RepoURIScheme = "repo://"
	// RepoFileTemplate addresses a file inside a project repository
	RepoFileTemplate = RepoURIScheme + "{project_slug}/{+path}"
)

// repoFileTemplate returns the resource template for repository files
func repoFileTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		RepoFileTemplate,
		"repo_file",
		mcp.WithTemplateDescription("Raw text of a file in a project repository, e.g. repo://docops-saas/docs/billing_overview.md"),
		mcp.WithTemplateMIMEType("text/plain"),
	)
}

// parseRepoURI splits repo://<project>/<path> into its parts
func parseRepoURI(uri string) (project, filePath string, err error) {
	rest, ok := strings.CutPrefix(uri, RepoURIScheme)
	if !ok {
		return "", "", newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("resource URI must start with %s", RepoURIScheme), nil)
	}
	project, filePath, ok = strings.Cut(rest, "/")
	if !ok || project == "" || filePath == "" {
		return "", "", newMCPError(ErrorCodeInvalidParams, "resource URI must be repo://<project_slug>/<path>", nil)
	}
	return project, filePath, nil
}

// handleReadRepoFile serves repo://{project_slug}/{path} resources
func (s *Server) handleReadRepoFile(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	project, filePath, err := parseRepoURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	content, err := s.repos.ReadFile(ctx, project, filePath)
	if err != nil {
		return nil, s.toolError("failed to read file", err)
	}

	mimeType := "text/plain"
	if strings.EqualFold(path.Ext(filePath), ".md") {
		mimeType = "text/markdown"
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: mimeType,
			Text:     content,
		},
	}, nil
}
