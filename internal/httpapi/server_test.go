package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/metrics"
	"github.com/dshills/docops-mcp/internal/qa"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
)

const incidentDoc = `# Incident process

Page the on-call engineer for every sev1 incident. The incident commander
writes the incident timeline and owns the postmortem.
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	reposDir := t.TempDir()
	writeFile(t, filepath.Join(reposDir, "airport-food", "docs", "incidents.md"), incidentDoc)
	writeFile(t, filepath.Join(reposDir, "airport-food", "docs", "menu.md"), "# Menu\n\nSandwiches and coffee.\n")
	writeFile(t, filepath.Join(reposDir, "airport-food", "services", "order", "main.py"), "print('order')\n")

	repos, err := repofs.New(reposDir, zap.NewNop())
	require.NoError(t, err)

	store, err := storage.NewJSONLStore(filepath.Join(t.TempDir(), "documents.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := metrics.New()
	srch := searcher.NewSearcher(repos, store, searcher.DefaultConfig(), searcher.WithMetrics(m))

	api, err := New(Deps{
		Repos:    repos,
		Searcher: srch,
		Store:    store,
		QA:       qa.New(srch, repos, llm.NewEchoProvider(""), zap.NewNop()),
		Indexer:  indexer.New(repos, store, indexer.WithUpserter(srch)),
		Metrics:  m,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out = map[string]any{"raw": string(raw)}
	}
	return resp, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error body, got %v", body)
	return errBody["code"].(string)
}

func TestHealthzAndRequestID(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", http.NoBody)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, "req-123", resp2.Header.Get(RequestIDHeader))
}

func TestSearchDocs(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/projects/airport-food/docs/search"

	t.Run("ranked", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, base+"?q=incident+timeline", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", body["outcome"])
		results := body["results"].([]any)
		require.NotEmpty(t, results)
		assert.Equal(t, "docs/incidents.md", results[0].(map[string]any)["id"])
	})

	t.Run("fallback", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, base+"?q=zebra", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["fallback"])
		assert.Len(t, body["results"], 2)
	})

	t.Run("unknown project", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, ts.URL+"/api/projects/ghost/docs/search?q=incident", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "scope_absent", body["outcome"])
		assert.Empty(t, body["results"])
	})

	t.Run("empty query", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, base+"?q=", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "empty_query", errorCode(t, body))
	})

	t.Run("bad limit", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, base+"?q=incident&limit=abc", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_failed", errorCode(t, body))
	})

	t.Run("negative min score", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, base+"?q=incident&min_score=-1", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_failed", errorCode(t, body))
	})

	for _, raw := range []string{"NaN", "Inf", "-Inf"} {
		t.Run("non-finite min score "+raw, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, base+"?q=incident&min_score="+raw, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "validation_failed", errorCode(t, body))
		})
	}

	t.Run("subdir escape", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, base+"?q=incident&subdir=../..", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "path_escape", errorCode(t, body))
	})
}

func TestFiles(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/projects/airport-food/files"

	resp, body := do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []any{"docs/incidents.md", "docs/menu.md", "services/order/main.py"}, body["files"])

	resp, body = do(t, http.MethodGet, base+"/docs/incidents.md", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, incidentDoc, body["raw"])

	resp, body = do(t, http.MethodGet, base+"/docs/nope.md", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "file_not_found", errorCode(t, body))

	resp, body = do(t, http.MethodGet, ts.URL+"/api/projects/ghost/files", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "project_not_found", errorCode(t, body))
}

func TestDocuments(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/projects/airport-food/documents"

	doc := UpsertRequest{
		Title:    "Kitchen runbook",
		Text:     "Clean the fryer nightly. The fryer filter is replaced weekly.",
		Metadata: map[string]any{"team": "kitchen"},
	}

	resp, body := do(t, http.MethodPut, base+"/runbooks/kitchen", doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, false, body["replaced"])

	resp, body = do(t, http.MethodPut, base+"/runbooks/kitchen", doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["replaced"])

	resp, body = do(t, http.MethodGet, base+"/runbooks/kitchen", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kitchen runbook", body["title"])

	resp, body = do(t, http.MethodGet, base+"/search?q=fryer+filter", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "runbooks/kitchen", hit["id"])
	assert.Equal(t, map[string]any{"team": "kitchen"}, hit["metadata"])

	resp, body = do(t, http.MethodGet, base+"/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "document_not_found", errorCode(t, body))

	req, err := http.NewRequest(http.MethodPut, base+"/bad", strings.NewReader("{not json"))
	require.NoError(t, err)
	badResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

func TestAskAndIngest(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/projects/airport-food"

	resp, body := do(t, http.MethodPost, base+"/ask", AskRequest{Question: "Who writes the incident timeline?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, llm.ProviderEcho, body["provider"])
	sources := body["sources"].([]any)
	require.NotEmpty(t, sources)
	assert.Equal(t, "docs/incidents.md", sources[0].(map[string]any)["path"])

	resp, body = do(t, http.MethodPost, base+"/ask", AskRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "empty_query", errorCode(t, body))

	resp, body = do(t, http.MethodPost, base+"/ingest", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["files_indexed"])

	resp, body = do(t, http.MethodGet, base+"/documents/search?q=incident+commander", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "docs/incidents.md", body["results"].([]any)[0].(map[string]any)["id"])
}

func TestMetricsAndNotFound(t *testing.T) {
	ts := newTestServer(t)

	_, _ = do(t, http.MethodGet, ts.URL+"/api/projects/airport-food/docs/search?q=menu", nil)

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["raw"], "docops_search")

	resp, body = do(t, http.MethodGet, ts.URL+"/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errorCode(t, body))
}

func TestListProjects(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/projects", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	projects := body["projects"].([]any)
	require.Len(t, projects, 1)
	assert.Equal(t, "airport-food", projects[0].(map[string]any)["slug"])
}
