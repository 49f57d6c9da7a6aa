// Package types provides shared type definitions for the docops MCP server.
//
// This package defines the domain types exchanged between the corpora, the
// lexical search engine and the transports (MCP tools, HTTP API, CLI).
//
// # Core Types
//
// Document is a unit of searchable text scoped to a project. Two corpora produce
// documents: the project documentation tree, where the ID is a relative path,
// and the record store, where the ID is chosen by the caller:
//
//	doc := &types.Document{
//	    Project: "docops-saas",
//	    ID:      "docs/billing_overview.md",
//	    Title:   "Billing service",
//	    Text:    content,
//	}
//
// SearchHit is a scored excerpt produced fresh for every query and never
// persisted:
//
//	hit := types.SearchHit{
//	    ID:      "docs/billing_overview.md",
//	    Source:  types.SourceDocs,
//	    Score:   23.0,
//	    Snippet: "...the billing service computes subscription prices...",
//	}
//
// Scores are raw lexical scores (phrase and token occurrence weights), not
// normalized. A score of 0 marks a fallback hit returned when nothing in the
// corpus cleared the relevance threshold.
//
// # Errors
//
// Sentinel errors in this package are wrapped with %w by callers, so use
// errors.Is to classify them:
//
//	if errors.Is(err, types.ErrPathEscape) {
//	    // reject the request, never clamp the path
//	}
package types
