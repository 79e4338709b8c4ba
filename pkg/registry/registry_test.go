package registry

import "testing"

func profile(key, provider, modelID string) ModelProfile {
	return ModelProfile{Key: key, Name: key, Provider: provider, ModelID: modelID}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		profiles []ModelProfile
		wantErr  bool
	}{
		{
			name:     "valid",
			profiles: []ModelProfile{profile("a", "openai", "gpt-4o"), profile("b", "anthropic", "claude")},
		},
		{
			name:     "empty key",
			profiles: []ModelProfile{{Name: "x", Provider: "openai", ModelID: "gpt-4o"}},
			wantErr:  true,
		},
		{
			name:     "duplicate key",
			profiles: []ModelProfile{profile("a", "openai", "gpt-4o"), profile("a", "anthropic", "claude")},
			wantErr:  true,
		},
		{
			name:     "missing provider",
			profiles: []ModelProfile{profile("a", "", "gpt-4o")},
			wantErr:  true,
		},
		{
			name:     "missing model id",
			profiles: []ModelProfile{profile("a", "openai", "")},
			wantErr:  true,
		},
		{
			name:     "negative cost",
			profiles: []ModelProfile{{Key: "a", Provider: "openai", ModelID: "gpt-4o", CostPer1K: -1}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.profiles...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_OrderAndDefault(t *testing.T) {
	r, err := New(
		profile("first", "openai", "gpt-4o"),
		profile("second", "anthropic", "claude"),
		profile("third", "google", "gemini"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	keys := r.Keys()
	want := []string{"first", "second", "third"}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], k)
		}
	}

	if r.DefaultKey() != "first" {
		t.Errorf("DefaultKey() = %q, want first profile", r.DefaultKey())
	}

	r, err = r.WithDefault("second")
	if err != nil {
		t.Fatalf("WithDefault: %v", err)
	}
	if r.DefaultKey() != "second" {
		t.Errorf("DefaultKey() = %q after override", r.DefaultKey())
	}

	if _, err := r.WithDefault("nope"); err == nil {
		t.Error("WithDefault with unknown key should error")
	}
}

func TestQualifiedID(t *testing.T) {
	p := ModelProfile{Provider: "openai", ModelID: "gpt-4o"}
	if got := p.QualifiedID(); got != "openai:gpt-4o" {
		t.Errorf("QualifiedID() = %q", got)
	}
}

func TestDefault_CoversAllProviders(t *testing.T) {
	r := Default()
	if r.Len() != 4 {
		t.Fatalf("Default registry has %d models, want 4", r.Len())
	}

	providers := map[string]bool{}
	for _, key := range r.Keys() {
		p, _ := r.Get(key)
		providers[p.Provider] = true
		if len(p.Strengths) == 0 {
			t.Errorf("model %q has no strengths", key)
		}
		if p.CostPer1K <= 0 {
			t.Errorf("model %q has no cost", key)
		}
	}
	for _, want := range []string{"openai", "anthropic", "google", "deepseek"} {
		if !providers[want] {
			t.Errorf("default registry missing provider %q", want)
		}
	}
}
