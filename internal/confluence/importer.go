package confluence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"go.uber.org/zap"

	"github.com/dshills/docops-mcp/internal/storage"
	"github.com/dshills/docops-mcp/pkg/types"
)

// Metadata keys written on imported pages
const (
	SourceConfluence = "confluence"
	DocIDPrefix      = "confluence/"
)

// ErrEmptyPage is returned when a page has no body to import
var ErrEmptyPage = errors.New("confluence page has an empty body")

// PageGetter fetches a page by id
type PageGetter interface {
	GetPage(ctx context.Context, pageID string) (*Page, error)
}

// Upserter writes documents to the record store
type Upserter interface {
	Upsert(ctx context.Context, doc types.Document) (storage.UpsertResult, error)
}

// Converter turns storage-format XHTML into markdown
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a converter with commonmark and table support
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms HTML content into markdown
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyPage
	}
	return c.conv.ConvertString(html)
}

// ImportResult describes an imported page
type ImportResult struct {
	Project  string `json:"project"`
	DocID    string `json:"doc_id"`
	Title    string `json:"title"`
	Space    string `json:"space,omitempty"`
	Version  int    `json:"version"`
	Replaced bool   `json:"replaced"`
	Chars    int    `json:"chars"`
}

// Importer copies Confluence pages into the record store
type Importer struct {
	pages     PageGetter
	sink      Upserter
	converter *Converter
	baseURL   string
	logger    *zap.Logger
}

// NewImporter creates an importer. baseURL is used to build absolute page links.
func NewImporter(pages PageGetter, sink Upserter, baseURL string, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		pages:     pages,
		sink:      sink,
		converter: NewConverter(),
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// Import fetches pageID and upserts it into project as markdown
func (im *Importer) Import(ctx context.Context, project, pageID string) (*ImportResult, error) {
	if strings.TrimSpace(project) == "" {
		return nil, types.ErrMissingProject
	}

	page, err := im.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	markdown, err := im.converter.Convert(page.Body.Storage.Value)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", pageID, err)
	}

	text := markdown
	if page.Title != "" {
		text = "# " + page.Title + "\n\n" + markdown
	}

	metadata := map[string]any{
		"source":  SourceConfluence,
		"page_id": page.ID,
		"space":   page.Space.Key,
		"version": page.Version.Number,
	}
	if page.Links.WebUI != "" {
		metadata["url"] = im.baseURL + page.Links.WebUI
	}

	doc := types.Document{
		Project:  project,
		ID:       DocIDPrefix + page.ID,
		Title:    page.Title,
		Text:     text,
		Metadata: metadata,
	}
	res, err := im.sink.Upsert(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to store page %s: %w", pageID, err)
	}

	im.logger.Info("confluence page imported",
		zap.String("project", project),
		zap.String("page_id", page.ID),
		zap.String("space", page.Space.Key),
		zap.Bool("replaced", res.Replaced))

	return &ImportResult{
		Project:  project,
		DocID:    doc.ID,
		Title:    page.Title,
		Space:    page.Space.Key,
		Version:  page.Version.Number,
		Replaced: res.Replaced,
		Chars:    len([]rune(text)),
	}, nil
}
