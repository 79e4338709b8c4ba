package adapter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend implements the Backend interface for Claude models.
type AnthropicBackend struct {
	client anthropic.Client
}

// NewAnthropicBackend creates a new Anthropic backend.
func NewAnthropicBackend(apiKey string) (*AnthropicBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicBackend{client: client}, nil
}

// Name returns the provider identifier.
func (b *AnthropicBackend) Name() string {
	return "anthropic"
}

// Complete sends the message list to Claude and returns the completion text.
func (b *AnthropicBackend) Complete(ctx context.Context, modelID string, messages []Message, opts Options) (string, error) {
	maxTokens := 4096
	if n, ok := opts.Int(OptMaxTokens); ok {
		maxTokens = n
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(maxTokens),
	}
	if t, ok := opts.Float(OptTemperature); ok {
		params.Temperature = anthropic.Float(t)
	}

	// Anthropic takes system text as a top-level param, not a message role.
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return content, nil
}
