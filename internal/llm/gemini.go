package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini provider defaults
const (
	ProviderGemini     = "gemini"
	DefaultGeminiModel = "gemini-2.5-flash"
)

// contentGenerator is the subset of genai.Models used by GeminiProvider
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements Chatter using Google Gemini
type GeminiProvider struct {
	models      contentGenerator
	model       string
	maxTokens   int
	temperature float32
	retry       RetryConfig
}

// NewGeminiProvider connects to the Gemini API
func NewGeminiProvider(ctx context.Context, cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrMissingAPIKey, EnvGeminiAPIKey)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}

	return newGeminiProvider(client.Models, cfg), nil
}

func newGeminiProvider(models contentGenerator, cfg Config) *GeminiProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{
		models:      models,
		model:       model,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		retry:       cfg.retryConfig(),
	}
}

// Chat implements Chatter
func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}

	contents, config := p.buildRequest(messages)
	model := ResolveOptions(p.model, opts).Model

	result, err := retryWithBackoff(ctx, p.retry, func() (*genai.GenerateContentResponse, error) {
		result, err := p.models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini generate content: %v: %w", err, ErrProviderError)
		}
		return result, nil
	})
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}

	return result.Text(), nil
}

// Provider implements Chatter
func (p *GeminiProvider) Provider() string { return ProviderGemini }

// Model implements Chatter
func (p *GeminiProvider) Model() string { return p.model }

// buildRequest folds system messages into the system instruction and maps the
// remaining turns onto Gemini roles.
func (p *GeminiProvider) buildRequest(messages []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	temp := p.temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(p.maxTokens),
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}
	return contents, config
}
