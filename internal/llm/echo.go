package llm

import "context"

const (
	ProviderEcho     = "echo"
	DefaultEchoModel = "echo"
)

// EchoProvider answers with the content of the last user message.
// It never leaves the process.
type EchoProvider struct {
	model string
}

// NewEchoProvider creates an offline Chatter
func NewEchoProvider(model string) *EchoProvider {
	if model == "" {
		model = DefaultEchoModel
	}
	return &EchoProvider{model: model}
}

// Chat implements Chatter. The model option has no effect.
func (p *EchoProvider) Chat(ctx context.Context, messages []Message, _ ...ChatOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content, nil
		}
	}
	return "", nil
}

// Provider implements Chatter
func (p *EchoProvider) Provider() string { return ProviderEcho }

// Model implements Chatter
func (p *EchoProvider) Model() string { return p.model }
