package lexical

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docops-mcp/pkg/types"
)

func testDocs() []*types.Document {
	return []*types.Document{
		{ID: "docs/auth.md", Title: "Auth", Text: "# Auth service\nAuth service issues tokens. Billing is not handled here."},
		{ID: "docs/billing.md", Title: "Billing", Text: "# Billing service\nThe billing service computes invoices."},
		{ID: "docs/ops.md", Title: "Ops", Text: "Deployment runbook."},
	}
}

func pathOptions(limit int) Options {
	return Options{
		Limit:    limit,
		MinScore: DefaultMinScore,
		Fallback: true,
		Window:   PathWindow,
		Source:   types.SourceDocs,
	}
}

func TestSearch_PhraseMatchRanksFirst(t *testing.T) {
	res, err := Search(context.Background(), "billing service", DocumentsWalker(testDocs()), pathOptions(5))
	require.NoError(t, err)

	require.Len(t, res.Hits, 2)
	assert.False(t, res.Fallback)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Matched)

	top := res.Hits[0]
	assert.Equal(t, "docs/billing.md", top.ID)
	assert.Equal(t, "Billing", top.Title)
	assert.Equal(t, types.SourceDocs, top.Source)
	// phrase 2 x 10, tokens billing 2 + service 2, diversity 2 x 2
	assert.Equal(t, 28.0, top.Score)
	assert.Equal(t, []string{"billing service", "billing", "service"}, top.Matched)
	assert.NotContains(t, top.Snippet, "\n")

	// tokens only: billing 1 + service 2, diversity 2 x 2
	assert.Equal(t, "docs/auth.md", res.Hits[1].ID)
	assert.Equal(t, 7.0, res.Hits[1].Score)
}

func TestSearch_ThresholdDropsWeakDocuments(t *testing.T) {
	opts := pathOptions(5)
	opts.MinScore = 10

	res, err := Search(context.Background(), "billing service", DocumentsWalker(testDocs()), opts)
	require.NoError(t, err)

	require.Len(t, res.Hits, 1)
	assert.Equal(t, "docs/billing.md", res.Hits[0].ID)
}

func TestSearch_FallbackWhenNothingClearsThreshold(t *testing.T) {
	docs := append([]*types.Document{{ID: "docs/empty.md", Text: ""}}, testDocs()...)

	res, err := Search(context.Background(), "kubernetes", DocumentsWalker(docs), pathOptions(2))
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, 0, res.Matched)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "docs/auth.md", res.Hits[0].ID)
	assert.Equal(t, "docs/billing.md", res.Hits[1].ID)
	for _, hit := range res.Hits {
		assert.Equal(t, 0.0, hit.Score)
		assert.Empty(t, hit.Matched)
	}
	assert.Equal(t, "# Auth service Auth service issues tokens. Billing is not handled here.", res.Hits[0].Snippet)
}

func TestSearch_FallbackDisabled(t *testing.T) {
	opts := pathOptions(5)
	opts.Fallback = false

	res, err := Search(context.Background(), "kubernetes", DocumentsWalker(testDocs()), opts)
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Empty(t, res.Hits)
	assert.NotNil(t, res.Hits)
}

func TestSearch_EmptyCorpusHasNoFallback(t *testing.T) {
	res, err := Search(context.Background(), "billing", DocumentsWalker(nil), pathOptions(5))
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 0, res.Scanned)
}

func TestSearch_NeverExceedsLimit(t *testing.T) {
	var docs []*types.Document
	for i := 0; i < 20; i++ {
		docs = append(docs, &types.Document{
			ID:   fmt.Sprintf("docs/%02d.md", i),
			Text: "billing service overview",
		})
	}

	for _, limit := range []int{0, 1, 3, 20, 50} {
		for _, query := range []string{"billing service", "unmatched words here"} {
			res, err := Search(context.Background(), query, DocumentsWalker(docs), pathOptions(limit))
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Hits), limit, "limit %d query %q", limit, query)
		}
	}
}

func TestSearch_StopWordQueryDoesNotFail(t *testing.T) {
	docs := []*types.Document{{ID: "faq", Text: "и что как — частый вопрос"}}

	res, err := Search(context.Background(), "и что как", DocumentsWalker(docs), Options{
		Limit:    5,
		MinScore: 1,
		Window:   RecordWindow,
		Source:   types.SourceRecords,
	})
	require.NoError(t, err)

	require.Len(t, res.Hits, 1)
	assert.Equal(t, 1.0, res.Hits[0].Score)
	assert.Equal(t, types.SourceRecords, res.Hits[0].Source)
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, err := Search(context.Background(), "   ", DocumentsWalker(testDocs()), pathOptions(5))
	assert.ErrorIs(t, err, types.ErrEmptyQuery)
}

func TestSearch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Search(ctx, "billing", DocumentsWalker(testDocs()), pathOptions(5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_WalkerErrorPropagates(t *testing.T) {
	boom := errors.New("store unavailable")
	walk := func(ctx context.Context, fn WalkFunc) error { return boom }

	_, err := Search(context.Background(), "billing", walk, pathOptions(5))
	assert.ErrorIs(t, err, boom)
}

func TestSearch_RecordWindowSnippet(t *testing.T) {
	docs := []*types.Document{{
		ID:       "note-1",
		Text:     "\n\n  Refund policy: the billing service retries failed charges.  \n",
		Metadata: map[string]any{"source": "confluence"},
	}}

	res, err := Search(context.Background(), "billing service", DocumentsWalker(docs), Options{
		Limit:    5,
		MinScore: DefaultMinScore,
		Window:   RecordWindow,
		Source:   types.SourceRecords,
	})
	require.NoError(t, err)

	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Refund policy: the billing service retries failed charges.", res.Hits[0].Snippet)
	assert.Equal(t, "confluence", res.Hits[0].Metadata["source"])
}
