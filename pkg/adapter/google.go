package adapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleBackend implements the Backend interface for Gemini models.
type GoogleBackend struct {
	client *genai.Client
}

// NewGoogleBackend creates a new Google Gemini backend.
func NewGoogleBackend(apiKey string) (*GoogleBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleBackend{
		client: client,
	}, nil
}

// Name returns the provider identifier.
func (b *GoogleBackend) Name() string {
	return "google"
}

// Complete sends the message list to Gemini and returns the completion text.
func (b *GoogleBackend) Complete(ctx context.Context, modelID string, messages []Message, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{}

	maxTokens := 4096
	if n, ok := opts.Int(OptMaxTokens); ok {
		maxTokens = n
	}
	cfg.MaxOutputTokens = int32(maxTokens)

	if t, ok := opts.Float(OptTemperature); ok {
		cfg.Temperature = genai.Ptr(float32(t))
	}

	// Gemini takes system text as a system instruction and calls the
	// assistant role "model".
	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			cfg.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	resp, err := b.client.Models.GenerateContent(ctx, modelID, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("google API error: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google returned no candidates")
	}

	var content string
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
		}
	}

	return content, nil
}
