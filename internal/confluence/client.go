package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables
const (
	EnvBaseURL  = "CONFLUENCE_BASE_URL"
	EnvEmail    = "CONFLUENCE_EMAIL"
	EnvAPIToken = "CONFLUENCE_API_TOKEN"
)

// Client defaults
const (
	DefaultTimeout     = 15 * time.Second
	DefaultSearchLimit = 10
	pageExpand         = "body.storage,version,space"
	maxErrorBody       = 4096
)

// Errors
var (
	ErrNotConfigured = errors.New("confluence is not configured")
	ErrPageNotFound  = errors.New("confluence page not found")
	ErrEmptyQuery    = errors.New("confluence query cannot be empty")
	ErrInvalidPage   = errors.New("space key and title are required")
)

// APIError is a non-2xx response from Confluence
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("confluence API error %d: %s", e.StatusCode, e.Body)
}

// Config holds the connection settings
type Config struct {
	BaseURL    string
	Email      string
	APIToken   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ConfigFromEnv reads CONFLUENCE_BASE_URL, CONFLUENCE_EMAIL and CONFLUENCE_API_TOKEN
func ConfigFromEnv() Config {
	return Config{
		BaseURL:  os.Getenv(EnvBaseURL),
		Email:    os.Getenv(EnvEmail),
		APIToken: os.Getenv(EnvAPIToken),
	}
}

// Configured reports whether all credentials are present
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.Email != "" && c.APIToken != ""
}

// Client is a Confluence REST API client
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

// New creates a client. All three credentials are required.
func New(cfg Config) (*Client, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%w: %s, %s and %s must be set", ErrNotConfigured, EnvBaseURL, EnvEmail, EnvAPIToken)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		apiToken:   cfg.APIToken,
		httpClient: httpClient,
	}, nil
}

// BaseURL returns the normalized site URL
func (c *Client) BaseURL() string { return c.baseURL }

// PageSummary is a single search result
type PageSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space string `json:"space,omitempty"`
	URL   string `json:"url,omitempty"` // Relative web UI path
}

// Page is a Confluence page with its storage-format body
type Page struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Space struct {
		Key  string `json:"key"`
		Name string `json:"name,omitempty"`
	} `json:"space"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value          string `json:"value"`
			Representation string `json:"representation"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui,omitempty"`
		Base  string `json:"base,omitempty"`
	} `json:"_links"`
}

// CreatePageRequest describes a new page
type CreatePageRequest struct {
	SpaceKey     string
	Title        string
	BodyStorage  string // XHTML storage format
	ParentPageID string
}

// BuildCQL builds a full-text CQL query, optionally restricted to one space.
// Double quotes in the query are escaped.
func BuildCQL(query, spaceKey string) string {
	safe := strings.ReplaceAll(query, `"`, `\"`)
	parts := []string{fmt.Sprintf(`text ~ "%s"`, safe)}
	if spaceKey != "" {
		parts = append(parts, fmt.Sprintf(`space = "%s"`, spaceKey))
	}
	return strings.Join(parts, " AND ")
}

// SearchPages runs a CQL text search
func (c *Client) SearchPages(ctx context.Context, query, spaceKey string, limit int) ([]PageSummary, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	params := url.Values{}
	params.Set("cql", BuildCQL(query, spaceKey))
	params.Set("limit", strconv.Itoa(limit))

	var data struct {
		Results []struct {
			Content struct {
				ID    string `json:"id"`
				Title string `json:"title"`
				Space *struct {
					Key string `json:"key"`
				} `json:"space"`
				Links struct {
					WebUI string `json:"webui"`
				} `json:"_links"`
			} `json:"content"`
		} `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/search", params, nil, &data); err != nil {
		return nil, err
	}

	results := make([]PageSummary, 0, len(data.Results))
	for _, item := range data.Results {
		s := PageSummary{
			ID:    item.Content.ID,
			Title: item.Content.Title,
			URL:   item.Content.Links.WebUI,
		}
		if item.Content.Space != nil {
			s.Space = item.Content.Space.Key
		}
		results = append(results, s)
	}
	return results, nil
}

// GetPage fetches a page with body, version and space expanded
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	if strings.TrimSpace(pageID) == "" {
		return nil, fmt.Errorf("%w: empty page id", ErrPageNotFound)
	}

	params := url.Values{}
	params.Set("expand", pageExpand)

	var page Page
	if err := c.do(ctx, http.MethodGet, "/rest/api/content/"+url.PathEscape(pageID), params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage creates a page in storage representation
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	if req.SpaceKey == "" || req.Title == "" {
		return nil, ErrInvalidPage
	}

	payload := map[string]any{
		"type":  "page",
		"title": req.Title,
		"space": map[string]any{"key": req.SpaceKey},
		"body": map[string]any{
			"storage": map[string]any{
				"value":          req.BodyStorage,
				"representation": "storage",
			},
		},
	}
	if req.ParentPageID != "" {
		payload["ancestors"] = []map[string]any{{"id": req.ParentPageID}}
	}

	var page Page
	if err := c.do(ctx, http.MethodPost, "/rest/api/content", nil, payload, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// do sends one request and decodes the JSON response into out
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("confluence request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrPageNotFound, apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
