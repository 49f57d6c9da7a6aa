package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/docops-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// Backend names accepted by Open
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Store persists named documents per project.
//
// Upsert replaces the document with the same (project, id) in place, or
// appends it. List returns documents in that stored order.
type Store interface {
	Upsert(ctx context.Context, doc types.Document) (UpsertResult, error)
	Get(ctx context.Context, project, id string) (*types.Document, error)
	List(ctx context.Context, project string) ([]*types.Document, error)
	Projects(ctx context.Context) ([]string, error)
	Close() error
}

// Versioner is implemented by stores that can report a token which changes
// whenever the stored documents change, including writes by other processes.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// UpsertResult reports what an upsert did
type UpsertResult struct {
	Replaced bool `json:"replaced"`
}

// Registry stores the project catalogue: projects and the repositories,
// wiki spaces and demo questions attached to them.
type Registry interface {
	UpsertProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, slug string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)

	AddRepo(ctx context.Context, repo *Repo) error
	ListRepos(ctx context.Context, projectID int64) ([]*Repo, error)

	AddConfluenceSpace(ctx context.Context, space *ConfluenceSpace) error
	ListConfluenceSpaces(ctx context.Context, projectID int64) ([]*ConfluenceSpace, error)

	AddDemoQuery(ctx context.Context, query *DemoQuery) error
	ListDemoQueries(ctx context.Context, projectID int64) ([]*DemoQuery, error)

	ClearRegistry(ctx context.Context) error
}

// Tx represents a database transaction over the registry
type Tx interface {
	Commit() error
	Rollback() error
	Registry
}

// Project is a registered documentation project
type Project struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Repo is a source repository of a project
type Repo struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
}

// ConfluenceSpace is a wiki space attached to a project
type ConfluenceSpace struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	SpaceKey  string `json:"space_key"`
	Name      string `json:"name"`
	BaseURL   string `json:"base_url"`
}

// DemoQuery is a sample question for a project
type DemoQuery struct {
	ID              int64  `json:"id"`
	ProjectID       int64  `json:"project_id"`
	Title           string `json:"title"`
	Question        string `json:"question"`
	ExpectedOutline string `json:"expected_outline,omitempty"`
}

// Options selects and configures a document store backend
type Options struct {
	Backend   string // BackendJSONL (default) or BackendSQLite
	JSONLPath string
	DBPath    string
}

// Open creates the document store selected by opts
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendJSONL:
		return NewJSONLStore(opts.JSONLPath)
	case BackendSQLite:
		return NewSQLiteStorage(opts.DBPath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
