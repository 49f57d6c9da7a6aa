package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/docops-mcp/pkg/types"
)

// maxRecordSize bounds one JSONL line
const maxRecordSize = 16 * 1024 * 1024

// record is the on-disk shape of one document line
type record struct {
	ProjectSlug *string        `json:"project_slug"`
	DocID       *string        `json:"doc_id"`
	Title       string         `json:"title"`
	Text        string         `json:"text"`
	Metadata    map[string]any `json:"metadata"`
}

// JSONLStore keeps all documents in a single JSON Lines file.
//
// Every upsert reads the whole file, mutates the list in memory and rewrites
// the file. Writes are serialized inside one process only; two processes
// writing the same file can lose updates.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

var _ Versioner = (*JSONLStore)(nil)

// NewJSONLStore creates a store backed by path, creating its parent directory
func NewJSONLStore(path string) (*JSONLStore, error) {
	if path == "" {
		return nil, errors.New("jsonl store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &JSONLStore{path: path}, nil
}

// Path returns the backing file
func (s *JSONLStore) Path() string {
	return s.path
}

// Close is a no-op; the file is opened per operation
func (s *JSONLStore) Close() error {
	return nil
}

// Upsert replaces the document with the same (project, id) in place or
// appends it, then rewrites the file.
func (s *JSONLStore) Upsert(ctx context.Context, doc types.Document) (UpsertResult, error) {
	if err := doc.Validate(); err != nil {
		return UpsertResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return UpsertResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.loadAll()
	if err != nil {
		return UpsertResult{}, err
	}

	stored := doc.Clone()
	if stored.Metadata == nil {
		stored.Metadata = map[string]any{}
	}

	var result UpsertResult
	for i, d := range docs {
		if d.Project == doc.Project && d.ID == doc.ID {
			docs[i] = stored
			result.Replaced = true
			break
		}
	}
	if !result.Replaced {
		docs = append(docs, stored)
	}

	if err := s.saveAll(docs); err != nil {
		return UpsertResult{}, err
	}
	return result, nil
}

// Version derives a token from the file's size and modification time.
// A missing file reports "absent".
func (s *JSONLStore) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "absent", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat store: %w", err)
	}
	return fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()), nil
}

// Get returns one document or ErrNotFound
func (s *JSONLStore) Get(ctx context.Context, project, id string) (*types.Document, error) {
	docs, err := s.List(ctx, project)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

// List returns the documents of a project in file order
func (s *JSONLStore) List(ctx context.Context, project string) ([]*types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	all, err := s.loadAll()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	docs := make([]*types.Document, 0, len(all))
	for _, d := range all {
		if d.Project == project {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

// Projects returns the distinct project slugs present in the file, sorted
func (s *JSONLStore) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	all, err := s.loadAll()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	projects := []string{}
	for _, d := range all {
		if _, ok := seen[d.Project]; !ok {
			seen[d.Project] = struct{}{}
			projects = append(projects, d.Project)
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// loadAll parses every non-blank line. A missing file is an empty store;
// a line that is not a valid record fails the whole load.
func (s *JSONLStore) loadAll() ([]*types.Document, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = f.Close() }()

	var docs []*types.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxRecordSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrMalformedRecord, line, err)
		}
		if rec.ProjectSlug == nil {
			return nil, fmt.Errorf("%w: line %d: %w", types.ErrMalformedRecord, line, types.ErrMissingProject)
		}
		if rec.DocID == nil {
			return nil, fmt.Errorf("%w: line %d: %w", types.ErrMalformedRecord, line, types.ErrMissingDocID)
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]any{}
		}

		docs = append(docs, &types.Document{
			Project:  *rec.ProjectSlug,
			ID:       *rec.DocID,
			Title:    rec.Title,
			Text:     rec.Text,
			Metadata: rec.Metadata,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	return docs, nil
}

// saveAll truncates the file and writes one line per document
func (s *JSONLStore) saveAll(docs []*types.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, d := range docs {
		project, id := d.Project, d.ID
		rec := record{
			ProjectSlug: &project,
			DocID:       &id,
			Title:       d.Title,
			Text:        d.Text,
			Metadata:    d.Metadata,
		}
		if rec.Metadata == nil {
			rec.Metadata = map[string]any{}
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode document %s/%s: %w", d.Project, d.ID, err)
		}
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	return nil
}
