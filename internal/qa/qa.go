// Package qa answers questions about a project's documentation.
//
// The workflow searches the project's markdown docs, reads the best matching
// files, truncates each to a fixed number of characters and sends the assembled
// context together with the question to a chat model.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/llm"
	"github.com/dshills/docops-mcp/internal/searcher"
	"github.com/dshills/docops-mcp/pkg/types"
)

// Workflow defaults
const (
	DefaultMaxDocs         = 5
	DefaultMaxCharsPerDoc  = 2000
	NoContextMessage       = "Context not found: search query did not yield matches in documentation."
	SystemPrompt           = "You are DocOps, an assistant that answers questions about a software project using its documentation. Answer only from the provided context. If the context does not contain the answer, say so and suggest where the documentation could be extended. Reference source paths when you use them."
	contextSeparator       = "\n\n"
	contextHeadingTemplate = "### %s\n%s\n"
)

// DocsSearcher finds documentation files relevant to a question
type DocsSearcher interface {
	SearchDocs(ctx context.Context, req searcher.DocsRequest) (*searcher.SearchResponse, error)
}

// FileReader reads a file from a project repository
type FileReader interface {
	ReadFile(ctx context.Context, project, path string) (string, error)
}

// Request is a single question
type Request struct {
	Project        string `json:"project"`
	Question       string `json:"question"`
	MaxDocs        int    `json:"max_docs,omitempty"`          // Defaults to DefaultMaxDocs
	MaxCharsPerDoc int    `json:"max_chars_per_doc,omitempty"` // Defaults to DefaultMaxCharsPerDoc
	Model          string `json:"model,omitempty"`             // Overrides the provider's default model
}

// Source is a documentation file used to build the answer context
type Source struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// Result is the answer together with the sources it was grounded on
type Result struct {
	RequestID string        `json:"request_id"`
	Answer    string        `json:"answer"`
	Sources   []Source      `json:"sources"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Duration  time.Duration `json:"-"`
}

// Workflow runs question answering over project documentation
type Workflow struct {
	search DocsSearcher
	files  FileReader
	chat   llm.Chatter
	logger *zap.Logger
}

// New creates a Workflow. A nil logger disables logging.
func New(search DocsSearcher, files FileReader, chat llm.Chatter, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{search: search, files: files, chat: chat, logger: logger}
}

// Ask answers req.Question from the documentation of req.Project. The chat model
// is called even when no documentation matches; the context then says so.
func (w *Workflow) Ask(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	if strings.TrimSpace(req.Project) == "" {
		return nil, types.ErrMissingProject
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, types.ErrEmptyQuery
	}
	maxDocs := req.MaxDocs
	if maxDocs <= 0 {
		maxDocs = DefaultMaxDocs
	}
	maxChars := req.MaxCharsPerDoc
	if maxChars <= 0 {
		maxChars = DefaultMaxCharsPerDoc
	}

	requestID := uuid.NewString()
	log := w.logger.With(zap.String("request_id", requestID), zap.String("project", req.Project))

	resp, err := w.search.SearchDocs(ctx, searcher.DocsRequest{
		Project: req.Project,
		Query:   req.Question,
		Limit:   maxDocs,
	})
	if err != nil {
		return nil, fmt.Errorf("search documentation: %w", err)
	}

	chunks := make([]string, 0, len(resp.Hits))
	sources := make([]Source, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.ID == "" {
			continue
		}
		content, err := w.files.ReadFile(ctx, req.Project, hit.ID)
		if err != nil {
			if errors.Is(err, types.ErrFileNotFound) {
				log.Warn("search hit disappeared before read", zap.String("path", hit.ID))
				continue
			}
			return nil, fmt.Errorf("read %s: %w", hit.ID, err)
		}
		chunks = append(chunks, fmt.Sprintf(contextHeadingTemplate, hit.ID, Truncate(content, maxChars)))
		sources = append(sources, Source{Path: hit.ID, Snippet: hit.Snippet})
	}

	messages := []llm.Message{
		llm.System(SystemPrompt),
		llm.User(BuildUserPrompt(req.Question, BuildContext(chunks))),
	}

	model := w.chat.Model()
	if req.Model != "" {
		model = req.Model
	}

	answer, err := w.chat.Chat(ctx, messages, llm.WithModel(req.Model))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	result := &Result{
		RequestID: requestID,
		Answer:    answer,
		Sources:   sources,
		Provider:  w.chat.Provider(),
		Model:     model,
		Duration:  time.Since(startTime),
	}

	log.Info("question answered",
		zap.String("outcome", string(resp.Outcome)),
		zap.Int("sources", len(sources)),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// BuildContext joins per-file chunks, or returns NoContextMessage when there are none
func BuildContext(chunks []string) string {
	if len(chunks) == 0 {
		return NoContextMessage
	}
	return strings.Join(chunks, contextSeparator)
}

// BuildUserPrompt builds the user prompt containing documentation and question
func BuildUserPrompt(question, docContext string) string {
	var sb strings.Builder
	sb.WriteString("<context>\n")
	sb.WriteString(docContext)
	sb.WriteString("\n</context>\n\n")
	fmt.Fprintf(&sb, "Question: %s", question)
	return sb.String()
}

// Truncate returns at most n characters of s
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
