package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/wiki/", Email: "bot@example.com", APIToken: "secret"})
	require.NoError(t, err)
	return c
}

func TestBuildCQL(t *testing.T) {
	tests := []struct {
		name  string
		query string
		space string
		want  string
	}{
		{name: "text only", query: "billing", want: `text ~ "billing"`},
		{name: "with space", query: "billing", space: "OPS", want: `text ~ "billing" AND space = "OPS"`},
		{name: "escapes quotes", query: `say "hi"`, want: `text ~ "say \"hi\""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCQL(tt.query, tt.space))
		})
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{BaseURL: "https://x.atlassian.net/wiki", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	t.Setenv(EnvBaseURL, "https://x.atlassian.net/wiki")
	t.Setenv(EnvEmail, "a@b.c")
	t.Setenv(EnvAPIToken, "t")
	cfg := ConfigFromEnv()
	assert.True(t, cfg.Configured())

	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://x.atlassian.net/wiki", c.BaseURL())
}

func TestSearchPages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wiki/rest/api/search", r.URL.Path)
		assert.Equal(t, `text ~ "billing" AND space = "OPS"`, r.URL.Query().Get("cql"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)

		_, _ = w.Write([]byte(`{"results":[
			{"content":{"id":"101","title":"Billing","space":{"key":"OPS"},"_links":{"webui":"/spaces/OPS/pages/101"}}},
			{"content":{"id":"102","title":"No space"}}
		]}`))
	})

	pages, err := c.SearchPages(context.Background(), "billing", "OPS", 3)
	require.NoError(t, err)
	assert.Equal(t, []PageSummary{
		{ID: "101", Title: "Billing", Space: "OPS", URL: "/spaces/OPS/pages/101"},
		{ID: "102", Title: "No space"},
	}, pages)
}

func TestSearchPages_Defaults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{}`))
	})

	pages, err := c.SearchPages(context.Background(), "billing", "", 0)
	require.NoError(t, err)
	assert.Empty(t, pages)

	_, err = c.SearchPages(context.Background(), " ", "", 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestGetPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/rest/api/content/101", r.URL.Path)
		assert.Equal(t, "body.storage,version,space", r.URL.Query().Get("expand"))
		_, _ = w.Write([]byte(`{"id":"101","type":"page","title":"Billing",
			"space":{"key":"OPS","name":"Operations"},"version":{"number":4},
			"body":{"storage":{"value":"<p>hi</p>","representation":"storage"}},
			"_links":{"webui":"/spaces/OPS/pages/101"}}`))
	})

	page, err := c.GetPage(context.Background(), "101")
	require.NoError(t, err)
	assert.Equal(t, "Billing", page.Title)
	assert.Equal(t, "OPS", page.Space.Key)
	assert.Equal(t, 4, page.Version.Number)
	assert.Equal(t, "<p>hi</p>", page.Body.Storage.Value)
	assert.Equal(t, "/spaces/OPS/pages/101", page.Links.WebUI)
}

func TestGetPage_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wiki/rest/api/content/404" {
			http.Error(w, `{"message":"No content found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.GetPage(context.Background(), "404")
	assert.ErrorIs(t, err, ErrPageNotFound)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, err = c.GetPage(context.Background(), "500")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Body)

	_, err = c.GetPage(context.Background(), "")
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestCreatePage(t *testing.T) {
	var payload map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wiki/rest/api/content", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"id":"201","type":"page","title":"Runbook","space":{"key":"OPS"},"version":{"number":1}}`))
	})

	page, err := c.CreatePage(context.Background(), CreatePageRequest{
		SpaceKey:     "OPS",
		Title:        "Runbook",
		BodyStorage:  "<p>steps</p>",
		ParentPageID: "101",
	})
	require.NoError(t, err)
	assert.Equal(t, "201", page.ID)

	assert.Equal(t, "page", payload["type"])
	assert.Equal(t, "Runbook", payload["title"])
	assert.Equal(t, map[string]any{"key": "OPS"}, payload["space"])
	assert.Equal(t, map[string]any{"storage": map[string]any{"value": "<p>steps</p>", "representation": "storage"}}, payload["body"])
	assert.Equal(t, []any{map[string]any{"id": "101"}}, payload["ancestors"])

	_, err = c.CreatePage(context.Background(), CreatePageRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestCreatePage_NoParent(t *testing.T) {
	var payload map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"id":"202"}`))
	})

	_, err := c.CreatePage(context.Background(), CreatePageRequest{SpaceKey: "OPS", Title: "T"})
	require.NoError(t, err)
	assert.NotContains(t, payload, "ancestors")
}
