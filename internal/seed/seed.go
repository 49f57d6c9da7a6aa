// Package seed creates the demo repositories and fills the project registry.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docops-mcp/internal/storage"
)

//go:embed demo
var demoFS embed.FS

const (
	projectsFile = "demo/projects.yaml"
	reposRoot    = "demo/repos"
)

// ProjectSpec describes one demo project
type ProjectSpec struct {
	Slug                string `yaml:"slug"`
	Name                string `yaml:"name"`
	Description         string `yaml:"description"`
	RepoPath            string `yaml:"repo_path"`
	ConfluenceSpaceKey  string `yaml:"confluence_space_key"`
	ConfluenceSpaceName string `yaml:"confluence_space_name"`
	ConfluenceBaseURL   string `yaml:"confluence_base_url"`
}

// QuerySpec is a demo question attached to a project slug
type QuerySpec struct {
	Project         string `yaml:"project"`
	Title           string `yaml:"title"`
	Question        string `yaml:"question"`
	ExpectedOutline string `yaml:"expected_outline"`
}

// Catalog is the full demo registry content
type Catalog struct {
	Projects    []ProjectSpec `yaml:"projects"`
	DemoQueries []QuerySpec   `yaml:"demo_queries"`
}

// ErrUnknownProject is returned when a demo query references a missing project
var ErrUnknownProject = errors.New("demo query references unknown project")

// DefaultCatalog returns the bundled demo catalog
func DefaultCatalog() (*Catalog, error) {
	data, err := demoFS.ReadFile(projectsFile)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog from YAML
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// Report summarizes a seeding run
type Report struct {
	FilesWritten int `json:"files_written"`
	FilesKept    int `json:"files_kept"`
	Projects     int `json:"projects"`
	Repos        int `json:"repos"`
	Spaces       int `json:"spaces"`
	DemoQueries  int `json:"demo_queries"`
}

// Seeder writes demo data
type Seeder struct {
	logger *zap.Logger
}

// New creates a Seeder. A nil logger disables logging.
func New(logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{logger: logger}
}

// WriteRepos copies the bundled demo repositories into dir. Existing files
// are kept unchanged.
func (s *Seeder) WriteRepos(ctx context.Context, dir string, report *Report) error {
	return fs.WalkDir(demoFS, reposRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel := p[len(reposRoot)+1:]
		target := filepath.Join(dir, filepath.FromSlash(rel))

		if _, err := os.Stat(target); err == nil {
			report.FilesKept++
			return nil
		}

		data, err := demoFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		report.FilesWritten++
		s.logger.Debug("demo file written", zap.String("path", path.Clean(rel)))
		return nil
	})
}

// TxBeginner opens registry transactions
type TxBeginner interface {
	BeginTx(ctx context.Context) (storage.Tx, error)
}

// SeedRegistry replaces the registry content with the catalog in one transaction
func (s *Seeder) SeedRegistry(ctx context.Context, db TxBeginner, catalog *Catalog, report *Report) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ClearRegistry(ctx); err != nil {
		return fmt.Errorf("failed to clear registry: %w", err)
	}

	ids := make(map[string]int64, len(catalog.Projects))
	for _, p := range catalog.Projects {
		project := &storage.Project{Slug: p.Slug, Name: p.Name, Description: p.Description}
		if err := tx.UpsertProject(ctx, project); err != nil {
			return fmt.Errorf("failed to store project %s: %w", p.Slug, err)
		}
		ids[p.Slug] = project.ID
		report.Projects++

		if p.RepoPath != "" {
			repo := &storage.Repo{ProjectID: project.ID, Name: p.Slug + "-mono-repo", Path: p.RepoPath}
			if err := tx.AddRepo(ctx, repo); err != nil {
				return fmt.Errorf("failed to store repo of %s: %w", p.Slug, err)
			}
			report.Repos++
		}

		if p.ConfluenceSpaceKey != "" {
			space := &storage.ConfluenceSpace{
				ProjectID: project.ID,
				SpaceKey:  p.ConfluenceSpaceKey,
				Name:      p.ConfluenceSpaceName,
				BaseURL:   p.ConfluenceBaseURL,
			}
			if err := tx.AddConfluenceSpace(ctx, space); err != nil {
				return fmt.Errorf("failed to store space of %s: %w", p.Slug, err)
			}
			report.Spaces++
		}
	}

	for _, q := range catalog.DemoQueries {
		id, ok := ids[q.Project]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProject, q.Project)
		}
		dq := &storage.DemoQuery{ProjectID: id, Title: q.Title, Question: q.Question, ExpectedOutline: q.ExpectedOutline}
		if err := tx.AddDemoQuery(ctx, dq); err != nil {
			return fmt.Errorf("failed to store demo query %q: %w", q.Title, err)
		}
		report.DemoQueries++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Run writes the demo repositories into reposDir and, when db is not nil,
// seeds the registry from the bundled catalog.
func (s *Seeder) Run(ctx context.Context, reposDir string, db TxBeginner) (*Report, error) {
	report := &Report{}

	if err := s.WriteRepos(ctx, reposDir, report); err != nil {
		return nil, fmt.Errorf("failed to write demo repos: %w", err)
	}

	if db != nil {
		catalog, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		if err := s.SeedRegistry(ctx, db, catalog, report); err != nil {
			return nil, err
		}
	}

	s.logger.Info("demo data seeded",
		zap.String("repos_dir", reposDir),
		zap.Int("files_written", report.FilesWritten),
		zap.Int("files_kept", report.FilesKept),
		zap.Int("projects", report.Projects))

	return report, nil
}
