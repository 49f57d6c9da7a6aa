// Package indexer copies a project's markdown documentation into the record store.
//
// After ingestion the documents are searchable through the record store search
// (search_documents) as well as the path-addressed docs search.
//
// # Basic Usage
//
//	idx := indexer.New(repos, store, indexer.WithUpserter(searcher))
//
//	stats, err := idx.IndexProject(ctx, "billing", &indexer.Config{Subdir: "docs"})
//
//	fmt.Printf("Indexed %d files in %v\n", stats.FilesIndexed, stats.Duration)
//
// # Pipeline
//
//  1. Discovery: list *.md files under the subdirectory (default "docs")
//  2. Read: load files concurrently, bounded by Config.Workers
//  3. Incremental decision: compare the xxhash of the content with the
//     content_hash metadata of the stored document, skip unchanged files
//  4. Store: upsert documents sequentially in discovery order
//
// Writes are sequential because the JSONL store rewrites the whole file on
// every upsert.
//
// # Document Shape
//
// The document ID is the slash-separated path relative to the project root
// (e.g. "docs/billing.md"), the title is the first "# " heading or the file name.
// Metadata carries source "git", the path and the content hash.
//
// # Concurrency
//
// Only one ingestion per project runs at a time. A second call for the same
// project while one is in progress fails fast with ErrIndexInProgress; other
// projects are not blocked.
//
// # Error Handling
//
// A file that cannot be read or stored is counted in FilesFailed and described in
// ErrorMessages; the run continues. Discovery errors, store read errors and
// context cancellation abort the run.
package indexer
