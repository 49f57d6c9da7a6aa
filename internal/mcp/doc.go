// Package mcp implements the Model Context Protocol (MCP) server for docops.
//
// The server exposes documentation search and record store tools to MCP
// clients over stdio:
//   - search_in_docs: rank a project's markdown documentation against a query
//   - list_files, read_file: browse a project repository inside its sandbox
//   - upsert_document, search_documents: write and search the record store
//   - ask_docs: answer a question using the documentation as context
//   - ingest_docs: copy markdown documentation into the record store
//   - list_projects, get_status: inspect projects and store contents
//   - confluence_*: search, read, create and import Confluence pages
//     (registered only when a Confluence client is configured)
//
// # Tool: search_in_docs
//
//	Request:
//	{
//	  "name": "search_in_docs",
//	  "arguments": {
//	    "project_slug": "docops-saas",
//	    "query": "invoice retries",
//	    "docs_subdir": "docs",
//	    "max_results": 5
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "path": "docs/billing_overview.md",
//	      "title": "Billing overview",
//	      "score": 16,
//	      "snippet": "... Failed invoice retries run three times ..."
//	    }
//	  ],
//	  "outcome": "ok",
//	  "fallback": false
//	}
//
// When no document reaches the score threshold the first documents of the
// scope are returned with "fallback": true. A project or directory that does
// not exist yields an empty result with "outcome": "scope_absent".
//
// # Error Handling
//
// Tool failures are returned as MCPError values:
//   - -32602: Invalid params (missing argument, path escaping the project)
//   - -32603: Internal error (storage, filesystem)
//   - -32001: Project not found
//   - -32002: Ingest already running
//   - -32003: File not found
//   - -32004: Empty query
//   - -32005: Confluence page or record not found
//   - -32006: LLM provider or Confluence failure
//
// # Logging
//
// stdout carries the protocol; the server logs to stderr through zap.
package mcp
