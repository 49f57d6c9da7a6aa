package lexical

import (
	"sort"

	"github.com/dshills/docops-mcp/pkg/types"
)

// Rank orders hits by score, highest first, and keeps at most limit of them.
// The sort is stable: hits with equal scores stay in scan order.
func Rank(hits []types.SearchHit, limit int) []types.SearchHit {
	if limit <= 0 || len(hits) == 0 {
		return []types.SearchHit{}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
