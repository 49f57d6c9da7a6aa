// Package searcher runs lexical relevance search over the two document
// corpora of a project.
//
//   - SearchDocs scans <repos_dir>/<project>/<subdir>/**/*.md (Corpus A)
//   - SearchDocuments scans the record store documents of a project (Corpus B)
//
// Both go through the same engine in package lexical: query normalization,
// weighted scoring, threshold with fallback, snippet windowing and ranking.
// Only the snippet window differs between the corpora.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(repos, store, searcher.DefaultConfig(),
//	    searcher.WithLogger(logger),
//	    searcher.WithMetrics(m))
//
//	resp, err := s.SearchDocs(ctx, searcher.DocsRequest{
//	    Project: "billing",
//	    Query:   "billing service deploy",
//	    Limit:   5,
//	})
//	if err != nil {
//	    return err
//	}
//
//	for _, hit := range resp.Hits {
//	    fmt.Printf("%s (score: %.1f) %s\n", hit.ID, hit.Score, hit.Snippet)
//	}
//
// # Outcomes
//
// Every response carries an Outcome:
//   - ok: at least one hit (check Fallback to tell ranked hits from prefixes)
//   - empty: the scope exists but returned nothing
//   - scope_absent: the project, its docs directory, or its records do not exist
//
// A missing scope is not an error. Errors are reserved for invalid requests
// (types.ErrEmptyQuery, types.ErrPathEscape, types.ErrInvalidScore) and for
// storage failures such as types.ErrMalformedRecord.
//
// # Caching
//
// The cache is off by default: every query scans the whole corpus. With
// Config.CacheSize > 0, record store responses are cached in an LRU keyed by
// the SHA-256 of the request and the store's version (storage.Versioner), so
// a write from another process changes the key. Stores without a version are
// not cached. Upsert purges the cache and entries expire after
// Config.CacheTTL. Documentation searches are never cached.
//
// # Limits
//
// Limit defaults to 5 and is capped at 100. MinScore defaults to 5.0.
package searcher
