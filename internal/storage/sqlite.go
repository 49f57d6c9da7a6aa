package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/docops-mcp/pkg/types"
)

// SQLiteStorage implements Store and Registry using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite database path is required")
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Document operations

// Upsert replaces or appends a document inside one transaction. A replaced
// row keeps its id, so List order matches the JSONL backend.
func (s *SQLiteStorage) Upsert(ctx context.Context, doc types.Document) (UpsertResult, error) {
	if err := doc.Validate(); err != nil {
		return UpsertResult{}, err
	}

	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rowID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE project_slug = ? AND doc_id = ?",
		doc.Project, doc.ID).Scan(&rowID)

	var result UpsertResult
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (project_slug, doc_id, title, text, metadata, updated_at)
			VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, doc.Project, doc.ID, doc.Title, doc.Text, string(encoded))
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to insert document: %w", err)
		}
	case err != nil:
		return UpsertResult{}, fmt.Errorf("failed to look up document: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE documents
			SET title = ?, text = ?, metadata = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, doc.Title, doc.Text, string(encoded), rowID)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("failed to update document: %w", err)
		}
		result.Replaced = true
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// Get returns one document or ErrNotFound
func (s *SQLiteStorage) Get(ctx context.Context, project, id string) (*types.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_slug, doc_id, title, text, metadata
		FROM documents
		WHERE project_slug = ? AND doc_id = ?
	`, project, id)

	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns the documents of a project in upsert order
func (s *SQLiteStorage) List(ctx context.Context, project string) ([]*types.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_slug, doc_id, title, text, metadata
		FROM documents
		WHERE project_slug = ?
		ORDER BY id
	`, project)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := []*types.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Projects returns the distinct project slugs that own documents
func (s *SQLiteStorage) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT project_slug FROM documents ORDER BY project_slug")
	if err != nil {
		return nil, fmt.Errorf("failed to list document projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []string{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		projects = append(projects, slug)
	}
	return projects, rows.Err()
}

// CountDocuments returns the number of stored documents
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*types.Document, error) {
	var doc types.Document
	var metadata string
	if err := row.Scan(&doc.Project, &doc.ID, &doc.Title, &doc.Text, &metadata); err != nil {
		return nil, err
	}
	doc.Metadata = map[string]any{}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", types.ErrMalformedRecord, doc.Project, doc.ID, err)
		}
	}
	return &doc, nil
}

// Project registry operations

// upsertProjectWithQuerier inserts a project or updates the one with the same slug
func (s *SQLiteStorage) upsertProjectWithQuerier(ctx context.Context, q querier, project *Project) error {
	if project.Slug == "" {
		return types.ErrMissingProject
	}

	query := `
		INSERT INTO projects (slug, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name = excluded.name, description = excluded.description
		RETURNING id
	`
	if err := q.QueryRowContext(ctx, query, project.Slug, project.Name, project.Description).Scan(&project.ID); err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertProject(ctx context.Context, project *Project) error {
	return s.upsertProjectWithQuerier(ctx, s.querier(), project)
}

// getProjectWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getProjectWithQuerier(ctx context.Context, q querier, slug string) (*Project, error) {
	var project Project
	var description sql.NullString
	err := q.QueryRowContext(ctx,
		"SELECT id, slug, name, description FROM projects WHERE slug = ?", slug,
	).Scan(&project.ID, &project.Slug, &project.Name, &description)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	project.Description = description.String
	return &project, nil
}

func (s *SQLiteStorage) GetProject(ctx context.Context, slug string) (*Project, error) {
	return s.getProjectWithQuerier(ctx, s.querier(), slug)
}

func (s *SQLiteStorage) listProjectsWithQuerier(ctx context.Context, q querier) ([]*Project, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, slug, name, description FROM projects ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []*Project{}
	for rows.Next() {
		var p Project
		var description sql.NullString
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &description); err != nil {
			return nil, err
		}
		p.Description = description.String
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.listProjectsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) addRepoWithQuerier(ctx context.Context, q querier, repo *Repo) error {
	result, err := q.ExecContext(ctx,
		"INSERT INTO repos (project_id, name, path) VALUES (?, ?, ?)",
		repo.ProjectID, repo.Name, repo.Path)
	if err != nil {
		return fmt.Errorf("failed to add repo: %w", err)
	}
	repo.ID, err = result.LastInsertId()
	return err
}

func (s *SQLiteStorage) AddRepo(ctx context.Context, repo *Repo) error {
	return s.addRepoWithQuerier(ctx, s.querier(), repo)
}

func (s *SQLiteStorage) listReposWithQuerier(ctx context.Context, q querier, projectID int64) ([]*Repo, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, project_id, name, path FROM repos WHERE project_id = ? ORDER BY id", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	repos := []*Repo{}
	for rows.Next() {
		var r Repo
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Name, &r.Path); err != nil {
			return nil, err
		}
		repos = append(repos, &r)
	}
	return repos, rows.Err()
}

func (s *SQLiteStorage) ListRepos(ctx context.Context, projectID int64) ([]*Repo, error) {
	return s.listReposWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) addConfluenceSpaceWithQuerier(ctx context.Context, q querier, space *ConfluenceSpace) error {
	result, err := q.ExecContext(ctx,
		"INSERT INTO confluence_spaces (project_id, space_key, name, base_url) VALUES (?, ?, ?, ?)",
		space.ProjectID, space.SpaceKey, space.Name, space.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to add confluence space: %w", err)
	}
	space.ID, err = result.LastInsertId()
	return err
}

func (s *SQLiteStorage) AddConfluenceSpace(ctx context.Context, space *ConfluenceSpace) error {
	return s.addConfluenceSpaceWithQuerier(ctx, s.querier(), space)
}

func (s *SQLiteStorage) listConfluenceSpacesWithQuerier(ctx context.Context, q querier, projectID int64) ([]*ConfluenceSpace, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, project_id, space_key, name, base_url FROM confluence_spaces WHERE project_id = ? ORDER BY id", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list confluence spaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	spaces := []*ConfluenceSpace{}
	for rows.Next() {
		var sp ConfluenceSpace
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &sp.SpaceKey, &sp.Name, &sp.BaseURL); err != nil {
			return nil, err
		}
		spaces = append(spaces, &sp)
	}
	return spaces, rows.Err()
}

func (s *SQLiteStorage) ListConfluenceSpaces(ctx context.Context, projectID int64) ([]*ConfluenceSpace, error) {
	return s.listConfluenceSpacesWithQuerier(ctx, s.querier(), projectID)
}

func (s *SQLiteStorage) addDemoQueryWithQuerier(ctx context.Context, q querier, dq *DemoQuery) error {
	result, err := q.ExecContext(ctx,
		"INSERT INTO demo_queries (project_id, title, question, expected_outline) VALUES (?, ?, ?, ?)",
		dq.ProjectID, dq.Title, dq.Question, dq.ExpectedOutline)
	if err != nil {
		return fmt.Errorf("failed to add demo query: %w", err)
	}
	dq.ID, err = result.LastInsertId()
	return err
}

func (s *SQLiteStorage) AddDemoQuery(ctx context.Context, dq *DemoQuery) error {
	return s.addDemoQueryWithQuerier(ctx, s.querier(), dq)
}

func (s *SQLiteStorage) listDemoQueriesWithQuerier(ctx context.Context, q querier, projectID int64) ([]*DemoQuery, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, project_id, title, question, expected_outline FROM demo_queries WHERE project_id = ? ORDER BY id", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list demo queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	queries := []*DemoQuery{}
	for rows.Next() {
		var dq DemoQuery
		var outline sql.NullString
		if err := rows.Scan(&dq.ID, &dq.ProjectID, &dq.Title, &dq.Question, &outline); err != nil {
			return nil, err
		}
		dq.ExpectedOutline = outline.String
		queries = append(queries, &dq)
	}
	return queries, rows.Err()
}

func (s *SQLiteStorage) ListDemoQueries(ctx context.Context, projectID int64) ([]*DemoQuery, error) {
	return s.listDemoQueriesWithQuerier(ctx, s.querier(), projectID)
}

// clearRegistryWithQuerier deletes every registry row, children first
func (s *SQLiteStorage) clearRegistryWithQuerier(ctx context.Context, q querier) error {
	for _, table := range []string{"demo_queries", "confluence_spaces", "repos", "projects"} {
		if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ClearRegistry(ctx context.Context) error {
	return s.clearRegistryWithQuerier(ctx, s.querier())
}

// Status contains statistics about the database
type Status struct {
	Projects  int     `json:"projects"`
	Documents int     `json:"documents"`
	SizeMB    float64 `json:"size_mb"`
	Schema    string  `json:"schema_version"`
	BuildMode string  `json:"build_mode"`
}

// GetStatus reports row counts and database size
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{BuildMode: BuildMode}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&status.Projects); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	n, err := s.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	status.Documents = n

	version, err := currentVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.Schema = version.String()

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) UpsertProject(ctx context.Context, project *Project) error {
	return t.storage.upsertProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) GetProject(ctx context.Context, slug string) (*Project, error) {
	return t.storage.getProjectWithQuerier(ctx, t.querier(), slug)
}

func (t *sqliteTx) ListProjects(ctx context.Context) ([]*Project, error) {
	return t.storage.listProjectsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) AddRepo(ctx context.Context, repo *Repo) error {
	return t.storage.addRepoWithQuerier(ctx, t.querier(), repo)
}

func (t *sqliteTx) ListRepos(ctx context.Context, projectID int64) ([]*Repo, error) {
	return t.storage.listReposWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) AddConfluenceSpace(ctx context.Context, space *ConfluenceSpace) error {
	return t.storage.addConfluenceSpaceWithQuerier(ctx, t.querier(), space)
}

func (t *sqliteTx) ListConfluenceSpaces(ctx context.Context, projectID int64) ([]*ConfluenceSpace, error) {
	return t.storage.listConfluenceSpacesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) AddDemoQuery(ctx context.Context, dq *DemoQuery) error {
	return t.storage.addDemoQueryWithQuerier(ctx, t.querier(), dq)
}

func (t *sqliteTx) ListDemoQueries(ctx context.Context, projectID int64) ([]*DemoQuery, error) {
	return t.storage.listDemoQueriesWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) ClearRegistry(ctx context.Context) error {
	return t.storage.clearRegistryWithQuerier(ctx, t.querier())
}
