package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI provider defaults
const (
	ProviderOpenAI     = "openai"
	DefaultOpenAIModel = "gpt-4o-mini"

	DefaultMaxTokens   = 2048
	DefaultTemperature = float32(0.2)
)

// OpenAIProvider implements Chatter using an OpenAI-compatible chat completions API
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	retry       RetryConfig
}

// NewOpenAIProvider creates a chat client. An empty baseURL keeps the public API endpoint.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrMissingAPIKey, EnvOpenAIAPIKey)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
		retry:       cfg.retryConfig(),
	}, nil
}

// Chat implements Chatter
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       ResolveOptions(p.model, opts).Model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}

	resp, err := retryWithBackoff(ctx, p.retry, func() (openai.ChatCompletionResponse, error) {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return resp, parseAPIError(err)
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Provider implements Chatter
func (p *OpenAIProvider) Provider() string { return ProviderOpenAI }

// Model implements Chatter
func (p *OpenAIProvider) Model() string { return p.model }

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// parseAPIError extracts a readable error from the API response. Client errors
// other than rate limiting wrap ErrRequestRejected, everything else ErrProviderError.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, classify(reqErr.HTTPStatusCode))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, classify(apiErr.HTTPStatusCode))
	}

	return fmt.Errorf("chat request failed: %v: %w", err, ErrProviderError)
}

func classify(status int) error {
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return ErrRequestRejected
	}
	return ErrProviderError
}

// extractDetail reads the "detail" field some compatible gateways return
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
