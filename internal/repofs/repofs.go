package repofs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/lexical"
	"github.com/dshills/docops-mcp/pkg/types"
)

// DefaultDocsSubdir is the subdirectory searched when none is given
const DefaultDocsSubdir = "docs"

// DocPattern selects the files that make up project documentation
const DocPattern = "*.md"

// Repos is a read-only tree of project repositories, one directory per project slug
type Repos struct {
	root   string
	logger *zap.Logger
}

// New creates Repos rooted at dir. The root does not have to exist yet.
func New(dir string, logger *zap.Logger) (*Repos, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repos dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repos{root: filepath.Clean(abs), logger: logger}, nil
}

// Root returns the absolute repositories directory
func (r *Repos) Root() string {
	return r.root
}

// Projects lists the project slugs present under the root, sorted
func (r *Repos) Projects() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read repos dir: %w", err)
	}

	projects := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			projects = append(projects, e.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// ProjectRoot returns the directory of a project.
// Returns types.ErrProjectNotFound when the directory does not exist.
func (r *Repos) ProjectRoot(project string) (string, error) {
	if project == "" || project == "." || project == ".." || strings.ContainsAny(project, `/\`) {
		return "", fmt.Errorf("project %q: %w", project, types.ErrPathEscape)
	}

	dir := filepath.Join(r.root, project)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("project %q: %w", project, types.ErrProjectNotFound)
	}
	return dir, nil
}

// Resolve maps a project-relative path to an absolute path inside the project.
// Any path that would leave the project root, lexically or through a symlink,
// fails with types.ErrPathEscape. The path is never clamped.
func (r *Repos) Resolve(project, rel string) (string, error) {
	root, err := r.ProjectRoot(project)
	if err != nil {
		return "", err
	}

	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q: %w", rel, types.ErrPathEscape)
	}

	target := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, target) {
		return "", fmt.Errorf("%q: %w", rel, types.ErrPathEscape)
	}

	// Symlinks are checked only when the target exists; a missing file is
	// reported by the caller as not found.
	if real, err := filepath.EvalSymlinks(target); err == nil {
		realRoot, err := filepath.EvalSymlinks(root)
		if err != nil {
			return "", fmt.Errorf("failed to resolve project root: %w", err)
		}
		if !within(realRoot, real) {
			return "", fmt.Errorf("%q: %w", rel, types.ErrPathEscape)
		}
	}

	return target, nil
}

// ListFiles returns every regular file under subdir as slash-separated paths
// relative to the project root. A missing subdir yields an empty list.
func (r *Repos) ListFiles(ctx context.Context, project, subdir string) ([]string, error) {
	root, err := r.ProjectRoot(project)
	if err != nil {
		return nil, err
	}
	target, err := r.Resolve(project, subdir)
	if err != nil {
		return nil, err
	}

	files := []string{}
	if _, err := os.Stat(target); err != nil {
		return files, nil
	}

	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// ReadFile returns the UTF-8 content of a project file.
func (r *Repos) ReadFile(ctx context.Context, project, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := r.Resolve(project, path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%q: %w", path, types.ErrFileNotFound)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%q is not valid UTF-8", path)
	}

	return string(data), nil
}

// Scope is the documentation corpus of one project
type Scope struct {
	Repos   *Repos
	Project string
	Root    string // Project root
	Dir     string // Searched subdirectory

	skipped int
}

// Docs opens the documentation scope of a project. When the project or its
// docs subdirectory does not exist, ok is false and err is nil.
func (r *Repos) Docs(project, subdir string) (scope *Scope, ok bool, err error) {
	if subdir == "" {
		subdir = DefaultDocsSubdir
	}

	root, err := r.ProjectRoot(project)
	if errors.Is(err, types.ErrProjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	dir, err := r.Resolve(project, subdir)
	if err != nil {
		return nil, false, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, false, nil
	}

	return &Scope{Repos: r, Project: project, Root: root, Dir: dir}, true, nil
}

// Skipped returns the number of documents the last walk could not read
func (s *Scope) Skipped() int {
	return s.skipped
}

// Walk feeds every markdown document under the scope directory to fn in
// lexical path order. Unreadable or non-UTF-8 files are logged and skipped.
func (s *Scope) Walk(ctx context.Context, fn lexical.WalkFunc) error {
	s.skipped = 0

	return filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.Dir {
				return err
			}
			s.skip(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, _ := filepath.Match(DocPattern, d.Name()); !ok {
			return nil
		}

		doc, err := s.load(path)
		if err != nil {
			s.skip(path, err)
			return nil
		}
		return fn(doc)
	})
}

// Walker returns the scope as a lexical.Walker
func (s *Scope) Walker() lexical.Walker {
	return s.Walk
}

func (s *Scope) load(path string) (*types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8")
	}

	rel, err := filepath.Rel(s.Root, path)
	if err != nil {
		return nil, err
	}

	text := string(data)
	return &types.Document{
		Project: s.Project,
		ID:      filepath.ToSlash(rel),
		Title:   Title(text, filepath.Base(path)),
		Text:    text,
	}, nil
}

func (s *Scope) skip(path string, err error) {
	s.skipped++
	s.Repos.logger.Warn("skipping unreadable document",
		zap.String("project", s.Project),
		zap.String("path", path),
		zap.Error(err))
}

// Title returns the first level-one markdown heading of text, or fallback
func Title(text, fallback string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if title := strings.TrimSpace(line[2:]); title != "" {
				return title
			}
		}
	}
	return fallback
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
