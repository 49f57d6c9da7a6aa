package confluence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

type stubPages map[string]*Page

func (s stubPages) GetPage(ctx context.Context, pageID string) (*Page, error) {
	p, ok := s[pageID]
	if !ok {
		return nil, ErrPageNotFound
	}
	return p, nil
}

func testPage(id, title, body string, version int) *Page {
	p := &Page{ID: id, Type: "page", Title: title}
	p.Space.Key = "OPS"
	p.Version.Number = version
	p.Body.Storage.Value = body
	p.Body.Storage.Representation = "storage"
	p.Links.WebUI = "/spaces/OPS/pages/" + id
	return p
}

func TestConverter(t *testing.T) {
	c := NewConverter()

	md, err := c.Convert("<h2>Setup</h2><p>Run <strong>make deploy</strong></p><table><tr><th>Env</th></tr><tr><td>prod</td></tr></table>")
	require.NoError(t, err)
	assert.Contains(t, md, "## Setup")
	assert.Contains(t, md, "**make deploy**")
	assert.Contains(t, md, "| Env |")

	_, err = c.Convert("  ")
	assert.ErrorIs(t, err, ErrEmptyPage)
}

func TestImporter_Import(t *testing.T) {
	store, err := storage.NewJSONLStore(filepath.Join(t.TempDir(), "documents.jsonl"))
	require.NoError(t, err)
	ctx := context.Background()

	pages := stubPages{"101": testPage("101", "Billing runbook", "<p>Restart the <em>billing</em> service.</p>", 3)}
	im := NewImporter(pages, store, "https://acme.atlassian.net/wiki/", nil)

	res, err := im.Import(ctx, "billing", "101")
	require.NoError(t, err)
	assert.Equal(t, "confluence/101", res.DocID)
	assert.Equal(t, "Billing runbook", res.Title)
	assert.Equal(t, "OPS", res.Space)
	assert.Equal(t, 3, res.Version)
	assert.False(t, res.Replaced)

	doc, err := store.Get(ctx, "billing", "confluence/101")
	require.NoError(t, err)
	assert.Equal(t, "Billing runbook", doc.Title)
	assert.Contains(t, doc.Text, "# Billing runbook\n\n")
	assert.Contains(t, doc.Text, "Restart the *billing* service.")
	assert.Equal(t, SourceConfluence, doc.Metadata["source"])
	assert.Equal(t, "https://acme.atlassian.net/wiki/spaces/OPS/pages/101", doc.Metadata["url"])

	pages["101"] = testPage("101", "Billing runbook", "<p>Updated.</p>", 4)
	res, err = im.Import(ctx, "billing", "101")
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	docs, err := store.List(ctx, "billing")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "Updated.")
}

func TestImporter_Errors(t *testing.T) {
	store, err := storage.NewJSONLStore(filepath.Join(t.TempDir(), "documents.jsonl"))
	require.NoError(t, err)
	pages := stubPages{"empty": testPage("empty", "Empty", "", 1)}
	im := NewImporter(pages, store, "", nil)

	_, err = im.Import(context.Background(), "", "empty")
	assert.ErrorIs(t, err, types.ErrMissingProject)

	_, err = im.Import(context.Background(), "p", "missing")
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = im.Import(context.Background(), "p", "empty")
	assert.ErrorIs(t, err, ErrEmptyPage)
}
