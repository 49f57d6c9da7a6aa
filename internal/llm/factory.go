package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Environment variables
const (
	EnvProvider     = "DOCOPS_LLM_PROVIDER"
	EnvModel        = "DOCOPS_MODEL"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOpenAIBase   = "OPENAI_BASE_URL"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// Config holds chat client configuration
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int      // Defaults to DefaultMaxTokens
	Temperature *float32 // Defaults to DefaultTemperature
	HTTPClient  *http.Client
	Retry       *RetryConfig // Defaults to DefaultRetryConfig
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

func (c Config) temperature() float32 {
	if c.Temperature != nil {
		return *c.Temperature
	}
	return DefaultTemperature
}

func (c Config) retryConfig() RetryConfig {
	if c.Retry != nil {
		return *c.Retry
	}
	return DefaultRetryConfig()
}

// New creates a Chatter with explicit configuration
func New(ctx context.Context, cfg Config) (Chatter, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	case ProviderEcho:
		return NewEchoProvider(cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// NewFromEnv creates a Chatter based on environment variables
func NewFromEnv(ctx context.Context) (Chatter, error) {
	return New(ctx, ConfigFromEnv())
}

// ConfigFromEnv resolves the provider and its credentials from the environment
func ConfigFromEnv() Config {
	cfg := Config{
		Provider: DetectProvider(),
		Model:    os.Getenv(EnvModel),
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv(EnvOpenAIAPIKey)
		cfg.BaseURL = os.Getenv(EnvOpenAIBase)
	case ProviderGemini:
		cfg.APIKey = os.Getenv(EnvGeminiAPIKey)
	}
	return cfg
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvGeminiAPIKey) != "" {
		return ProviderGemini
	}
	return ProviderEcho
}
