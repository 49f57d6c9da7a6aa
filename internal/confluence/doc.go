// Package confluence talks to the Confluence REST API and imports wiki pages
// into the record store.
//
// The Client covers the three operations the assistant needs: CQL page search,
// page retrieval with its storage-format body, and page creation. Requests use
// HTTP basic auth with the account email and an API token.
//
// # Import
//
// Importer fetches a page, converts its storage-format XHTML to markdown with
// html-to-markdown and upserts it as document "confluence/<page id>". Metadata
// records the space key, page version and web URL so a later import of the same
// page replaces the document in place.
package confluence
