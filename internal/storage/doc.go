// Package storage persists the record store documents and the project registry.
//
// Two Store backends share one contract:
//
//   - JSONLStore keeps every document as one line of a JSON Lines file. Each
//     upsert reads the whole file, replaces the matching record in place or
//     appends a new one, and rewrites the file. This is the default backend.
//     Only one process may write the file at a time.
//   - SQLiteStorage keeps documents in a table keyed by (project_slug, doc_id)
//     and upserts inside a transaction. It also holds the project registry.
//
// Both backends return a project's documents in stored order: a replaced
// document keeps its position, a new one goes last.
//
// # Record Format
//
// One JSON object per line:
//
//	{"project_slug":"billing","doc_id":"runbook","title":"Runbook","text":"...","metadata":{}}
//
// project_slug and doc_id are required. title and text default to empty,
// metadata to an empty object. A line that fails to parse fails the whole
// load with types.ErrMalformedRecord.
//
// # Database Schema
//
// Tables:
//   - schema_version: applied migrations (semantic versions)
//   - projects: registered projects by slug
//   - repos: repositories of a project
//   - confluence_spaces: wiki spaces of a project
//   - demo_queries: sample questions of a project
//   - documents: record store documents (sqlite backend)
//
// # Basic Usage
//
//	store, err := storage.Open(storage.Options{
//	    Backend:   storage.BackendJSONL,
//	    JSONLPath: "data/vector_store/documents.jsonl",
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	res, err := store.Upsert(ctx, types.Document{
//	    Project: "billing",
//	    ID:      "runbook",
//	    Title:   "Runbook",
//	    Text:    "Restart the billing service ...",
//	})
//
// # Transactions
//
// Registry writes that must land together go through BeginTx:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.UpsertProject(ctx, project); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Build Modes
//
// The default build uses modernc.org/sqlite. Building with -tags sqlite_cgo
// switches to github.com/mattn/go-sqlite3.
package storage
