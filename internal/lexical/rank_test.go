package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/docops-mcp/pkg/types"
)

func TestRank_OrdersByScoreDescending(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "a", Score: 6},
		{ID: "b", Score: 30},
		{ID: "c", Score: 12},
	}

	ranked := Rank(hits, 10)

	assert.Equal(t, []string{"b", "c", "a"}, ids(ranked))
}

func TestRank_TiesKeepScanOrder(t *testing.T) {
	hits := []types.SearchHit{
		{ID: "first", Score: 7},
		{ID: "top", Score: 9},
		{ID: "second", Score: 7},
		{ID: "third", Score: 7},
	}

	ranked := Rank(hits, 10)

	assert.Equal(t, []string{"top", "first", "second", "third"}, ids(ranked))
}

func TestRank_Truncates(t *testing.T) {
	hits := []types.SearchHit{{ID: "a", Score: 1}, {ID: "b", Score: 2}, {ID: "c", Score: 3}}

	assert.Len(t, Rank(hits, 2), 2)
	assert.Empty(t, Rank(hits, 0))
	assert.Empty(t, Rank(hits, -1))
	assert.NotNil(t, Rank(nil, 5))
}

func ids(hits []types.SearchHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}
