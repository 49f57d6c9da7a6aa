package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/api/projects/{project}/docs/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/api/projects/billing/docs/search", "/api/projects/auth/docs/search"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/projects/{project}/docs/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/missing", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "unknown", normalizePath(""))
	assert.Equal(t, "/healthz", normalizePath("/healthz"))
}

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveSearch("records", "ok", 0.01, 0)
	m.ObserveSearch("docs", "scope_absent", 0.01, 3)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveUpsert(false, nil)
	m.ObserveUpsert(true, nil)
	m.ObserveUpsert(false, errors.New("disk full"))
	m.ObserveIngest("upserted", 4)
	m.ObserveIngest("failed", 0)
	m.ObserveLLM("openai", "gpt-4o-mini", 1.2, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("docs", "scope_absent")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SearchSkippedTotal.WithLabelValues("docs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentUpsertsTotal.WithLabelValues("replaced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentUpsertsTotal.WithLabelValues("error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IngestDocumentsTotal.WithLabelValues("upserted")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.IngestDocumentsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("openai", "gpt-4o-mini", "ok")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSearch("docs", "ok", 0, 1)
		m.ObserveCache(true)
		m.ObserveUpsert(true, nil)
		m.ObserveIngest("upserted", 1)
		m.ObserveLLM("echo", "echo", 0, nil)
	})

	h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCache(true)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `docops_search_cache_total{result="hit"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
