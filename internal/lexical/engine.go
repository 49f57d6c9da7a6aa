package lexical

import (
	"context"
	"strings"

	"github.com/dshills/docops-mcp/pkg/types"
)

// DefaultMinScore is the relevance threshold a document must reach to be a candidate
const DefaultMinScore = 5.0

// WalkFunc receives each document of a corpus in scan order
type WalkFunc func(doc *types.Document) error

// Walker feeds every document of one project scope to fn. Corpora skip
// documents they cannot read instead of failing the walk.
type Walker func(ctx context.Context, fn WalkFunc) error

// Options configures one search run
type Options struct {
	Limit    int
	MinScore float64
	Fallback bool // Return unranked prefixes when nothing clears MinScore
	Window   Window
	Source   types.SourceKind
}

// Result holds ranked hits and scan statistics
type Result struct {
	Hits     []types.SearchHit
	Scanned  int  // Documents scored
	Matched  int  // Documents that cleared the threshold
	Fallback bool // Hits are fallback prefixes, not ranked matches
}

// Search scores every document produced by walk against query, keeps those
// scoring at least opts.MinScore and returns them ranked.
//
// When at least one document exists but none clears the threshold and
// opts.Fallback is set, up to opts.Limit documents with non-empty text are
// returned in scan order with score 0 and a prefix snippet.
func Search(ctx context.Context, query string, walk Walker, opts Options) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}

	q := Normalize(query)
	res := &Result{}
	var candidates, fallback []types.SearchHit

	err := walk(ctx, func(doc *types.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Scanned++

		lower := Lower(doc.Text)
		score := q.Score(lower)

		if score.Value >= opts.MinScore {
			candidates = append(candidates, types.SearchHit{
				ID:       doc.ID,
				Title:    doc.Title,
				Source:   opts.Source,
				Score:    score.Value,
				Snippet:  opts.Window.Extract(doc.Text, lower, score.Matched),
				Matched:  score.Matched,
				Metadata: doc.Metadata,
			})
			return nil
		}

		if opts.Fallback && len(candidates) == 0 && len(fallback) < opts.Limit && doc.Text != "" {
			fallback = append(fallback, types.SearchHit{
				ID:       doc.ID,
				Title:    doc.Title,
				Source:   opts.Source,
				Snippet:  opts.Window.Prefix(doc.Text),
				Metadata: doc.Metadata,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Matched = len(candidates)
	if len(candidates) == 0 && opts.Fallback && res.Scanned > 0 {
		res.Fallback = true
		res.Hits = Rank(fallback, opts.Limit)
		return res, nil
	}

	res.Hits = Rank(candidates, opts.Limit)
	return res, nil
}

// DocumentsWalker adapts an in-memory document list to a Walker
func DocumentsWalker(docs []*types.Document) Walker {
	return func(ctx context.Context, fn WalkFunc) error {
		for _, doc := range docs {
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	}
}
