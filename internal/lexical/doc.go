// Package lexical implements the relevance search and snippet extraction engine
// shared by the project documentation tree and the record store.
//
// A search runs five stages over one project scope:
//
//  1. Normalize: lower-case the query, split it into tokens (stop words and
//     words of two runes or fewer removed) and extract phrases (runs of one to
//     three ASCII words starting with a letter).
//  2. Score: phrases add 10 per occurrence, tokens add 1 per occurrence, and
//     two or more distinct matched tokens add 2 per distinct token.
//  3. Threshold: documents scoring below MinScore are dropped. If nothing is
//     left and fallback is enabled, the first documents are returned with a
//     prefix snippet and score 0.
//  4. Snippet: a window around the first occurrence of the best matched term.
//  5. Rank: stable sort by score, truncated to the limit.
//
// # Basic Usage
//
//	res, err := lexical.Search(ctx, "billing service", walker, lexical.Options{
//	    Limit:    5,
//	    MinScore: lexical.DefaultMinScore,
//	    Fallback: true,
//	    Window:   lexical.PathWindow,
//	    Source:   types.SourceDocs,
//	})
//
// Every document is scored before ranking; there is no index and no early
// termination. The functions are pure and safe for concurrent use.
package lexical
