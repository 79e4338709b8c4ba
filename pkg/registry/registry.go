package registry

import "fmt"

// ModelProfile describes one registered backend: a provider+model pair with
// its declared capabilities and cost. Immutable after construction and shared
// read-only across requests.
type ModelProfile struct {
	Key       string
	Name      string
	Provider  string
	ModelID   string
	Strengths []string
	CostPer1K float64
}

// QualifiedID returns the provider-qualified identifier the invocation
// client expects, e.g. "openai:gpt-4o".
func (p ModelProfile) QualifiedID() string {
	return p.Provider + ":" + p.ModelID
}

// Registry is a read-only, construction-ordered table of model profiles.
// The first profile is the designated fallback unless overridden.
type Registry struct {
	keys       []string
	profiles   map[string]ModelProfile
	defaultKey string
}

// New builds a registry from profiles in the given order.
func New(profiles ...ModelProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]ModelProfile, len(profiles))}
	for _, p := range profiles {
		if p.Key == "" {
			return nil, fmt.Errorf("model profile %q has no key", p.Name)
		}
		if _, exists := r.profiles[p.Key]; exists {
			return nil, fmt.Errorf("duplicate model key %q", p.Key)
		}
		if p.Provider == "" || p.ModelID == "" {
			return nil, fmt.Errorf("model %q needs provider and model_id", p.Key)
		}
		if p.CostPer1K < 0 {
			return nil, fmt.Errorf("model %q has negative cost", p.Key)
		}
		r.keys = append(r.keys, p.Key)
		r.profiles[p.Key] = p
	}
	if len(r.keys) > 0 {
		r.defaultKey = r.keys[0]
	}
	return r, nil
}

// WithDefault returns the registry with a different fallback key.
func (r *Registry) WithDefault(key string) (*Registry, error) {
	if _, ok := r.profiles[key]; !ok {
		return nil, fmt.Errorf("default model key %q not registered", key)
	}
	r.defaultKey = key
	return r, nil
}

// Keys returns model keys in construction order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get retrieves a profile by key.
func (r *Registry) Get(key string) (ModelProfile, bool) {
	p, ok := r.profiles[key]
	return p, ok
}

// DefaultKey returns the fallback model key used when a routing decision
// cannot be parsed.
func (r *Registry) DefaultKey() string {
	return r.defaultKey
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Default returns the built-in registry covering every provider the stock
// client knows about.
func Default() *Registry {
	r, err := New(
		ModelProfile{
			Key:      "gpt-4o",
			Name:     "GPT-4o",
			Provider: "openai",
			ModelID:  "gpt-4o",
			Strengths: []string{
				"general knowledge",
				"reasoning",
				"mathematics",
				"data analysis",
				"structured output",
				"function calling",
				"fast response time",
			},
			CostPer1K: 0.00375,
		},
		ModelProfile{
			Key:      "claude",
			Name:     "Claude Sonnet",
			Provider: "anthropic",
			ModelID:  "claude-sonnet-4-20250514",
			Strengths: []string{
				"creative writing",
				"code generation",
				"complex reasoning",
				"nuanced understanding",
				"detailed explanations",
				"long-form content",
			},
			CostPer1K: 0.009,
		},
		ModelProfile{
			Key:      "gemini",
			Name:     "Gemini Pro",
			Provider: "google",
			ModelID:  "gemini-2.0-pro",
			Strengths: []string{
				"research",
				"multimodal understanding",
				"large context",
				"summarization",
			},
			CostPer1K: 0.0025,
		},
		ModelProfile{
			Key:      "deepseek",
			Name:     "DeepSeek Chat",
			Provider: "deepseek",
			ModelID:  "deepseek-chat",
			Strengths: []string{
				"bulk code generation",
				"step-by-step reasoning",
				"low cost",
			},
			CostPer1K: 0.0008,
		},
	)
	if err != nil {
		panic(err) // static table; unreachable
	}
	return r
}
