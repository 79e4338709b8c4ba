package adapter

import (
	"context"
	"fmt"
	"strings"
)

// Message is a single entry in a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the provider-qualified invocation contract. A qualified model
// identifier has the form "provider:model_id", e.g. "openai:gpt-4o".
type Client interface {
	// Complete sends the message list to the named model and returns the
	// completion text.
	Complete(ctx context.Context, qualifiedModel string, messages []Message, opts Options) (string, error)
}

// Backend is a single provider implementation behind the Client.
type Backend interface {
	// Name returns the provider namespace, e.g. "anthropic".
	Name() string

	// Complete sends the message list to a model in this provider's namespace.
	Complete(ctx context.Context, modelID string, messages []Message, opts Options) (string, error)
}

// MultiClient routes qualified model identifiers to registered backends.
type MultiClient struct {
	backends map[string]Backend
}

// NewMultiClient creates a client over the given backends.
func NewMultiClient(backends ...Backend) *MultiClient {
	c := &MultiClient{backends: make(map[string]Backend)}
	for _, b := range backends {
		c.Register(b)
	}
	return c
}

// Register adds a backend under its provider name, replacing any existing one.
func (c *MultiClient) Register(b Backend) {
	c.backends[b.Name()] = b
}

// Providers returns the registered provider names.
func (c *MultiClient) Providers() []string {
	names := make([]string, 0, len(c.backends))
	for name := range c.backends {
		names = append(names, name)
	}
	return names
}

// Complete resolves the provider prefix, adjusts option keys for that
// provider, and forwards the call.
func (c *MultiClient) Complete(ctx context.Context, qualifiedModel string, messages []Message, opts Options) (string, error) {
	provider, modelID, err := SplitQualifiedID(qualifiedModel)
	if err != nil {
		return "", err
	}

	b, ok := c.backends[provider]
	if !ok {
		return "", fmt.Errorf("no backend registered for provider %q", provider)
	}

	return b.Complete(ctx, modelID, messages, translateOptions(provider, opts))
}

// SplitQualifiedID splits "provider:model_id" into its parts.
func SplitQualifiedID(qualified string) (provider, modelID string, err error) {
	parts := strings.SplitN(qualified, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid qualified model identifier %q (want provider:model_id)", qualified)
	}
	return parts[0], parts[1], nil
}
