package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend implements the Backend interface for OpenAI models.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates a new OpenAI backend.
func NewOpenAIBackend(apiKey string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIBackend{client: client}, nil
}

// Name returns the provider identifier.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Complete sends the message list to OpenAI and returns the completion text.
func (b *OpenAIBackend) Complete(ctx context.Context, modelID string, messages []Message, opts Options) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(modelID),
	}

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	// The token budget arrives under the renamed key from the option table.
	maxTokens := 4096
	if n, ok := opts.Int("max_completion_tokens"); ok {
		maxTokens = n
	}
	params.MaxCompletionTokens = openai.Int(int64(maxTokens))

	if t, ok := opts.Float(OptTemperature); ok {
		params.Temperature = openai.Float(t)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
