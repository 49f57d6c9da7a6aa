package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/docops-mcp/internal/indexer"
	"github.com/dshills/docops-mcp/internal/qa"
	"github.com/dshills/docops-mcp/internal/repofs"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 4 << 20

// SearchResponse is the body of both search endpoints
type SearchResponse struct {
	Results  []types.SearchHit `json:"results"`
	Outcome  searcher.Outcome  `json:"outcome"`
	Fallback bool              `json:"fallback"`
	Scanned  int               `json:"scanned"`
	Skipped  int               `json:"skipped,omitempty"`
}

// UpsertRequest is the body of PUT /documents/{id}
type UpsertRequest struct {
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AskRequest is the body of POST /ask
type AskRequest struct {
	Question       string `json:"question"`
	MaxDocs        int    `json:"max_docs,omitempty"`
	MaxCharsPerDoc int    `json:"max_chars_per_doc,omitempty"`
	Model          string `json:"model,omitempty"`
}

// IngestRequest is the optional body of POST /ingest
type IngestRequest struct {
	Subdir string `json:"subdir,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// ProjectInfo is one entry of GET /api/projects
type ProjectInfo struct {
	Slug        string `json:"slug"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Healthz handles GET /healthz
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProjects handles GET /api/projects
func (s *Server) ListProjects(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.repos.Projects()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	registered := map[string]*storage.Project{}
	if s.registry != nil {
		entries, err := s.registry.ListProjects(r.Context())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		for _, p := range entries {
			registered[p.Slug] = p
		}
	}

	items := make([]ProjectInfo, 0, len(slugs))
	for _, slug := range slugs {
		info := ProjectInfo{Slug: slug}
		if p, ok := registered[slug]; ok {
			info.Name = p.Name
			info.Description = p.Description
		}
		items = append(items, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": items})
}

// SearchDocs handles GET /api/projects/{project}/docs/search
func (s *Server) SearchDocs(w http.ResponseWriter, r *http.Request) {
	limit, minScore, ok := searchParams(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	resp, err := s.searcher.SearchDocs(r.Context(), searcher.DocsRequest{
		Project:  chi.URLParam(r, "project"),
		Query:    q.Get("q"),
		Subdir:   q.Get("subdir"),
		Limit:    limit,
		MinScore: minScore,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(resp))
}

// SearchDocuments handles GET /api/projects/{project}/documents/search
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	limit, minScore, ok := searchParams(w, r)
	if !ok {
		return
	}

	resp, err := s.searcher.SearchDocuments(r.Context(), searcher.DocumentsRequest{
		Project:  chi.URLParam(r, "project"),
		Query:    r.URL.Query().Get("q"),
		Limit:    limit,
		MinScore: minScore,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(resp))
}

// ListFiles handles GET /api/projects/{project}/files
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	subdir := r.URL.Query().Get("subdir")

	files, err := s.repos.ListFiles(r.Context(), project, subdir)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": project,
		"subdir":  subdir,
		"files":   files,
	})
}

// ReadFile handles GET /api/projects/{project}/files/*
func (s *Server) ReadFile(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if path == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "file path is required")
		return
	}

	content, err := s.repos.ReadFile(r.Context(), chi.URLParam(r, "project"), path)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if strings.HasSuffix(path, ".md") {
		contentType = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, content)
}

// GetDocument handles GET /api/projects/{project}/documents/*
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "project"), chi.URLParam(r, "*"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project":  doc.Project,
		"doc_id":   doc.ID,
		"title":    doc.Title,
		"text":     doc.Text,
		"metadata": doc.Metadata,
	})
}

// UpsertDocument handles PUT /api/projects/{project}/documents/*
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.searcher.Upsert(r.Context(), types.Document{
		Project:  chi.URLParam(r, "project"),
		ID:       chi.URLParam(r, "*"),
		Title:    req.Title,
		Text:     req.Text,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replaced {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"status":   "ok",
		"replaced": result.Replaced,
	})
}

// Ask handles POST /api/projects/{project}/ask
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MaxDocs < 0 || req.MaxCharsPerDoc < 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "max_docs and max_chars_per_doc must not be negative")
		return
	}

	result, err := s.qa.Ask(r.Context(), qa.Request{
		Project:        chi.URLParam(r, "project"),
		Question:       req.Question,
		MaxDocs:        req.MaxDocs,
		MaxCharsPerDoc: req.MaxCharsPerDoc,
		Model:          req.Model,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Ingest handles POST /api/projects/{project}/ingest
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Subdir == "" {
		req.Subdir = repofs.DefaultDocsSubdir
	}

	stats, err := s.indexer.IndexProject(r.Context(), chi.URLParam(r, "project"), &indexer.Config{
		Subdir: req.Subdir,
		Force:  req.Force,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// searchParams parses limit and min_score, writing a 400 on failure
func searchParams(w http.ResponseWriter, r *http.Request) (int, *float64, bool) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > searcher.MaxLimit {
			writeError(w, http.StatusBadRequest, "validation_failed",
				fmt.Sprintf("limit must be an integer between 1 and %d", searcher.MaxLimit))
			return 0, nil, false
		}
		limit = n
	}

	var minScore *float64
	if raw := q.Get("min_score"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			writeError(w, http.StatusBadRequest, "validation_failed", "min_score must be a finite number")
			return 0, nil, false
		}
		minScore = &f
	}

	return limit, minScore, true
}

// decodeBody decodes a JSON request body, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func toSearchResponse(resp *searcher.SearchResponse) SearchResponse {
	results := resp.Hits
	if results == nil {
		results = []types.SearchHit{}
	}
	return SearchResponse{
		Results:  results,
		Outcome:  resp.Outcome,
		Fallback: resp.Fallback,
		Scanned:  resp.Scanned,
		Skipped:  resp.Skipped,
	}
}
