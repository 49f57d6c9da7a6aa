package llm

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/docops-mcp/internal/metrics"
)

// Role of a chat message author
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Chatter produces an assistant reply for a conversation
type Chatter interface {
	// Chat returns the content of the first completion choice
	Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error)

	// Provider returns the provider name (openai, gemini, echo)
	Provider() string

	// Model returns the default model identifier used for completions
	Model() string
}

// CallOptions are the settings of a single Chat call
type CallOptions struct {
	Model string
}

// ChatOption overrides a setting for one Chat call
type ChatOption func(*CallOptions)

// WithModel selects the model for one call. An empty model keeps the
// provider default.
func WithModel(model string) ChatOption {
	return func(o *CallOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

// ResolveOptions applies opts over the provider's default model
func ResolveOptions(defaultModel string, opts []ChatOption) CallOptions {
	o := CallOptions{Model: defaultModel}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Errors
var (
	ErrNoMessages          = errors.New("at least one message is required")
	ErrInvalidRole         = errors.New("invalid message role")
	ErrMissingAPIKey       = errors.New("api key is required")
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
	ErrProviderError       = errors.New("llm provider error")
	ErrRequestRejected     = errors.New("llm request rejected")
)

// ValidateMessages checks a conversation before it is sent
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return ErrNoMessages
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return ErrInvalidRole
		}
	}
	return nil
}

// instrumented records request metrics around another Chatter
type instrumented struct {
	Chatter
	metrics *metrics.Metrics
}

// Instrument wraps c so that every Chat call is counted and timed.
// A nil metrics sink returns c unchanged.
func Instrument(c Chatter, m *metrics.Metrics) Chatter {
	if m == nil {
		return c
	}
	return &instrumented{Chatter: c, metrics: m}
}

func (i *instrumented) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	start := time.Now()
	reply, err := i.Chatter.Chat(ctx, messages, opts...)
	model := ResolveOptions(i.Model(), opts).Model
	i.metrics.ObserveLLM(i.Provider(), model, time.Since(start).Seconds(), err)
	return reply, err
}
