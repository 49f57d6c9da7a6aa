package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docops-mcp/pkg/types"
)

func newJSONL(t *testing.T) *JSONLStore {
	t.Helper()
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "documents.jsonl"))
	require.NoError(t, err)
	return store
}

func TestJSONLStore_MissingFileIsEmpty(t *testing.T) {
	store := newJSONL(t)

	docs, err := store.List(context.Background(), "billing")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "reading must not create the file")
}

func TestJSONLStore_WireFormat(t *testing.T) {
	store := newJSONL(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, types.Document{Project: "billing", ID: "a<b>", Title: "Счета", Text: "line1\nline2"})
	require.NoError(t, err)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t,
		`{"project_slug":"billing","doc_id":"a<b>","title":"Счета","text":"line1\nline2","metadata":{}}`+"\n",
		string(data))
}

func TestJSONLStore_ReadsExternalRecords(t *testing.T) {
	store := newJSONL(t)
	content := strings.Join([]string{
		`{"project_slug":"billing","doc_id":"one","title":"One","text":"first","metadata":{"k":"v"}}`,
		``,
		`   `,
		`{"project_slug":"billing","doc_id":"two"}`,
		`{"project_slug":"billing","doc_id":"three","metadata":null}`,
	}, "\n")
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o644))

	docs, err := store.List(context.Background(), "billing")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "v", docs[0].Metadata["k"])
	assert.Equal(t, "", docs[1].Title)
	assert.Equal(t, "", docs[1].Text)
	assert.Equal(t, map[string]any{}, docs[1].Metadata)
	assert.Equal(t, map[string]any{}, docs[2].Metadata)
}

func TestJSONLStore_MalformedRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		line    string
	}{
		{
			name:    "invalid json",
			content: `{"project_slug":"billing","doc_id":"one"}` + "\n" + `{not json`,
			wantErr: types.ErrMalformedRecord,
			line:    "line 2",
		},
		{
			name:    "missing project slug",
			content: `{"doc_id":"one"}`,
			wantErr: types.ErrMissingProject,
			line:    "line 1",
		},
		{
			name:    "missing doc id",
			content: "\n" + `{"project_slug":"billing"}`,
			wantErr: types.ErrMissingDocID,
			line:    "line 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newJSONL(t)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0o644))

			_, err := store.List(context.Background(), "billing")
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrMalformedRecord)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.line)

			// a failed load must not rewrite the file
			_, err = store.Upsert(context.Background(), types.Document{Project: "billing", ID: "new"})
			require.Error(t, err)
			data, readErr := os.ReadFile(store.Path())
			require.NoError(t, readErr)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestJSONLStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.jsonl")
	ctx := context.Background()

	first, err := NewJSONLStore(path)
	require.NoError(t, err)
	_, err = first.Upsert(ctx, types.Document{Project: "billing", ID: "runbook", Text: "restart"})
	require.NoError(t, err)

	second, err := NewJSONLStore(path)
	require.NoError(t, err)
	res, err := second.Upsert(ctx, types.Document{Project: "billing", ID: "runbook", Text: "restart twice"})
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	doc, err := first.Get(ctx, "billing", "runbook")
	require.NoError(t, err)
	assert.Equal(t, "restart twice", doc.Text)
}

func TestJSONLStore_UpsertDoesNotAliasMetadata(t *testing.T) {
	store := newJSONL(t)
	ctx := context.Background()

	meta := map[string]any{"source": "wiki"}
	_, err := store.Upsert(ctx, types.Document{Project: "billing", ID: "x", Metadata: meta})
	require.NoError(t, err)
	meta["source"] = "changed"

	doc, err := store.Get(ctx, "billing", "x")
	require.NoError(t, err)
	assert.Equal(t, "wiki", doc.Metadata["source"])
}

func TestJSONLStore_VersionTracksOtherWriters(t *testing.T) {
	store := newJSONL(t)
	other, err := NewJSONLStore(store.Path())
	require.NoError(t, err)
	ctx := context.Background()

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "absent", v)

	_, err = other.Upsert(ctx, types.Document{Project: "billing", ID: "a", Text: "runbook"})
	require.NoError(t, err)
	first, err := store.Version(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, v, first)

	_, err = other.Upsert(ctx, types.Document{Project: "billing", ID: "b", Text: "billing service"})
	require.NoError(t, err)
	second, err := store.Version(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
