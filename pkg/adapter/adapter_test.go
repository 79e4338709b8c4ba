package adapter

import (
	"context"
	"errors"
	"testing"
)

// fakeBackend records the model and options it was called with.
type fakeBackend struct {
	name     string
	lastID   string
	lastOpts Options
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Complete(_ context.Context, modelID string, _ []Message, opts Options) (string, error) {
	f.lastID = modelID
	f.lastOpts = opts
	return "ok from " + f.name, nil
}

func TestSplitQualifiedID(t *testing.T) {
	tests := []struct {
		name      string
		qualified string
		provider  string
		modelID   string
		wantErr   bool
	}{
		{name: "simple", qualified: "openai:gpt-4o", provider: "openai", modelID: "gpt-4o"},
		{name: "model id with colon", qualified: "google:models:gemini", provider: "google", modelID: "models:gemini"},
		{name: "no separator", qualified: "gpt-4o", wantErr: true},
		{name: "empty provider", qualified: ":gpt-4o", wantErr: true},
		{name: "empty model", qualified: "openai:", wantErr: true},
		{name: "empty string", qualified: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, modelID, err := SplitQualifiedID(tt.qualified)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.qualified)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if provider != tt.provider || modelID != tt.modelID {
				t.Errorf("got (%q, %q), want (%q, %q)", provider, modelID, tt.provider, tt.modelID)
			}
		})
	}
}

func TestMultiClient_RoutesToBackend(t *testing.T) {
	anthropic := &fakeBackend{name: "anthropic"}
	openai := &fakeBackend{name: "openai"}
	client := NewMultiClient(anthropic, openai)

	providers := map[string]bool{}
	for _, p := range client.Providers() {
		providers[p] = true
	}
	if !providers["anthropic"] || !providers["openai"] || len(providers) != 2 {
		t.Errorf("Providers() = %v", providers)
	}

	resp, err := client.Complete(context.Background(), "anthropic:claude-sonnet-4-20250514", []Message{{Role: "user", Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != "ok from anthropic" {
		t.Errorf("got %q", resp)
	}
	if anthropic.lastID != "claude-sonnet-4-20250514" {
		t.Errorf("backend received model %q, want bare model id", anthropic.lastID)
	}
}

func TestMultiClient_UnknownProvider(t *testing.T) {
	client := NewMultiClient(&fakeBackend{name: "openai"})

	_, err := client.Complete(context.Background(), "xai:grok-4", nil, nil)
	if err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestMultiClient_RenamesOptionsPerProvider(t *testing.T) {
	openai := &fakeBackend{name: "openai"}
	anthropic := &fakeBackend{name: "anthropic"}
	client := NewMultiClient(openai, anthropic)

	opts := Options{OptMaxTokens: 1000, OptTemperature: 0.2}

	if _, err := client.Complete(context.Background(), "openai:gpt-4o", nil, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := openai.lastOpts["max_completion_tokens"]; !ok {
		t.Error("openai backend should see max_completion_tokens")
	}
	if _, ok := openai.lastOpts[OptMaxTokens]; ok {
		t.Error("openai backend should not see the canonical max_tokens key")
	}
	if temp, _ := openai.lastOpts.Float(OptTemperature); temp != 0.2 {
		t.Errorf("temperature %v should pass through unrenamed", temp)
	}

	if _, err := client.Complete(context.Background(), "anthropic:claude-sonnet-4-20250514", nil, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := anthropic.lastOpts[OptMaxTokens]; !ok {
		t.Error("anthropic backend should see the canonical max_tokens key")
	}

	// The caller's map is never mutated.
	if _, ok := opts[OptMaxTokens]; !ok {
		t.Error("rename must not mutate the caller's options")
	}
}

func TestOptions_NumericCoercion(t *testing.T) {
	opts := Options{
		"temperature": 1,            // int where float expected
		"max_tokens":  float64(500), // JSON-decoded number
	}

	if f, ok := opts.Float("temperature"); !ok || f != 1.0 {
		t.Errorf("Float(temperature) = %v, %v", f, ok)
	}
	if n, ok := opts.Int("max_tokens"); !ok || n != 500 {
		t.Errorf("Int(max_tokens) = %v, %v", n, ok)
	}
	if _, ok := opts.Float("missing"); ok {
		t.Error("missing key should report false")
	}
	if _, ok := opts.Int("missing"); ok {
		t.Error("missing key should report false")
	}
}

func TestMockClient_QueueConsumedFIFO(t *testing.T) {
	mock := NewMockClient().
		Queue("openai:gpt-4o", "first", "second").
		Respond("openai:gpt-4o", "fixed")

	ctx := context.Background()
	for i, want := range []string{"first", "second", "fixed", "fixed"} {
		got, err := mock.Complete(ctx, "openai:gpt-4o", nil, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d: got %q, want %q", i, got, want)
		}
	}
	if n := mock.CallsTo("openai:gpt-4o"); n != 4 {
		t.Errorf("CallsTo = %d, want 4", n)
	}
}

func TestMockClient_FailAndDefault(t *testing.T) {
	boom := errors.New("boom")
	mock := NewMockClient().Fail("google:gemini-2.0-pro", boom)

	if _, err := mock.Complete(context.Background(), "google:gemini-2.0-pro", nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}

	got, err := mock.Complete(context.Background(), "deepseek:deepseek-chat", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "mock response: deepseek:deepseek-chat" {
		t.Errorf("default response = %q", got)
	}
}
