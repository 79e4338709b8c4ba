package decision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zen-systems/fanroute/pkg/adapter"
	"github.com/zen-systems/fanroute/pkg/dispatch"
	"github.com/zen-systems/fanroute/pkg/registry"
	"github.com/zen-systems/fanroute/pkg/stats"
)

const judge = DefaultJudgeModel

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New(
		registry.ModelProfile{Key: "gpt-4o", Name: "GPT-4o", Provider: "openai", ModelID: "gpt-4o", Strengths: []string{"reasoning"}},
		registry.ModelProfile{Key: "claude", Name: "Claude Sonnet", Provider: "anthropic", ModelID: "claude-sonnet-4-20250514", Strengths: []string{"code generation"}},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return r
}

func TestRoute_ParsesDecision(t *testing.T) {
	mock := adapter.NewMockClient().Respond(judge,
		`Here is my pick: {"model": "claude", "reasoning": "code task", "confidence": 0.9} hope that helps`)

	m := NewMaker(mock, testRegistry(t), "", nil)
	dec, err := m.Route(context.Background(), "write a parser", stats.Summary{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if dec.ModelKey != "claude" {
		t.Errorf("ModelKey = %q", dec.ModelKey)
	}
	if dec.Reasoning != "code task" {
		t.Errorf("Reasoning = %q", dec.Reasoning)
	}
	if dec.Confidence != 0.9 {
		t.Errorf("Confidence = %v", dec.Confidence)
	}
}

func TestRoute_FallbackCases(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "no json", response: "I think claude would be best for this."},
		{name: "malformed json", response: `{"model": "claude", "reasoning":`},
		{name: "unknown model key", response: `{"model": "grok", "reasoning": "x", "confidence": 0.9}`},
		{name: "confidence above one", response: `{"model": "claude", "reasoning": "x", "confidence": 1.5}`},
		{name: "negative confidence", response: `{"model": "claude", "reasoning": "x", "confidence": -0.1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := adapter.NewMockClient().Respond(judge, tt.response)
			m := NewMaker(mock, testRegistry(t), "", nil)

			dec, err := m.Route(context.Background(), "prompt", stats.Summary{})
			if err != nil {
				t.Fatalf("fallback path must not error: %v", err)
			}
			if dec.ModelKey != "gpt-4o" {
				t.Errorf("ModelKey = %q, want the default key", dec.ModelKey)
			}
			if dec.Reasoning != "Failed to parse routing decision" {
				t.Errorf("Reasoning = %q", dec.Reasoning)
			}
			if dec.Confidence != 0.5 {
				t.Errorf("Confidence = %v, want 0.5", dec.Confidence)
			}
		})
	}
}

func TestRoute_MissingConfidenceDefaults(t *testing.T) {
	mock := adapter.NewMockClient().Respond(judge, `{"model": "claude", "reasoning": "code"}`)
	m := NewMaker(mock, testRegistry(t), "", nil)

	dec, err := m.Route(context.Background(), "prompt", stats.Summary{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if dec.ModelKey != "claude" || dec.Confidence != 0.8 {
		t.Errorf("got %q/%v, want claude/0.8", dec.ModelKey, dec.Confidence)
	}
}

func TestRoute_TransportErrorSurfaces(t *testing.T) {
	boom := errors.New("judge unreachable")
	mock := adapter.NewMockClient().Fail(judge, boom)
	m := NewMaker(mock, testRegistry(t), "", nil)

	if _, err := m.Route(context.Background(), "prompt", stats.Summary{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the transport error", err)
	}
}

func TestRoute_PromptIncludesModelsAndHistory(t *testing.T) {
	mock := adapter.NewMockClient().Respond(judge, `{"model": "claude", "confidence": 0.9}`)
	m := NewMaker(mock, testRegistry(t), "", nil)

	summary := stats.Summary{}
	summary.Add("coding", "claude", 7)

	if _, err := m.Route(context.Background(), "prompt", summary); err != nil {
		t.Fatalf("Route: %v", err)
	}

	sent := mock.Calls[0].Messages[0].Content
	for _, want := range []string{"Claude Sonnet", "code generation", "coding: claude=7", "advisory"} {
		if !strings.Contains(sent, want) {
			t.Errorf("routing prompt missing %q", want)
		}
	}

	if temp, _ := mock.Calls[0].Opts.Float(adapter.OptTemperature); temp != 0.1 {
		t.Errorf("classifier temperature = %v, want 0.1", temp)
	}
}

func TestCategorize_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*adapter.MockClient)
		wantName string
		wantCat  string
	}{
		{
			name: "parsed",
			setup: func(m *adapter.MockClient) {
				m.Respond(judge, `{"task_name": "Sorting helper", "task_category": "coding"}`)
			},
			wantName: "Sorting helper",
			wantCat:  "coding",
		},
		{
			name: "unparseable",
			setup: func(m *adapter.MockClient) {
				m.Respond(judge, "not json at all")
			},
			wantName: "Unknown Task",
			wantCat:  "general",
		},
		{
			name: "transport failure",
			setup: func(m *adapter.MockClient) {
				m.Fail(judge, errors.New("down"))
			},
			wantName: "Unknown Task",
			wantCat:  "general",
		},
		{
			name: "missing name keeps category",
			setup: func(m *adapter.MockClient) {
				m.Respond(judge, `{"task_category": "creative"}`)
			},
			wantName: "Unknown Task",
			wantCat:  "creative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := adapter.NewMockClient()
			tt.setup(mock)
			m := NewMaker(mock, testRegistry(t), "", nil)

			info := m.Categorize(context.Background(), "prompt")
			if info.TaskName != tt.wantName || info.TaskCategory != tt.wantCat {
				t.Errorf("got %q/%q, want %q/%q", info.TaskName, info.TaskCategory, tt.wantName, tt.wantCat)
			}
		})
	}
}

func TestScore_NeutralOnFailure(t *testing.T) {
	candidates := []dispatch.Candidate{
		{ModelKey: "gpt-4o", ModelName: "GPT-4o", Response: "a"},
		{ModelKey: "claude", ModelName: "Claude Sonnet", Response: "b"},
	}

	mock := adapter.NewMockClient().Respond(judge, "no json here")
	m := NewMaker(mock, testRegistry(t), "", nil)

	set := m.Score(context.Background(), "prompt", candidates)
	if len(set.Scores) != 2 {
		t.Fatalf("got %d scores, want one per candidate", len(set.Scores))
	}
	for name, score := range set.Scores {
		if score != 5 {
			t.Errorf("%s scored %d, want neutral 5", name, score)
		}
	}
}

func TestScore_ParsesScores(t *testing.T) {
	candidates := []dispatch.Candidate{{ModelKey: "claude", ModelName: "Claude Sonnet", Response: "b"}}
	mock := adapter.NewMockClient().Respond(judge,
		`{"scores": {"Claude Sonnet": 8}, "brief_reasoning": "solid"}`)
	m := NewMaker(mock, testRegistry(t), "", nil)

	set := m.Score(context.Background(), "prompt", candidates)
	if set.Scores["Claude Sonnet"] != 8 {
		t.Errorf("score = %d, want 8", set.Scores["Claude Sonnet"])
	}
	if set.Reasoning != "solid" {
		t.Errorf("reasoning = %q", set.Reasoning)
	}
}

func TestEvaluate_ParseFailureIsError(t *testing.T) {
	candidates := []dispatch.Candidate{{ModelKey: "claude", ModelName: "Claude Sonnet", Response: "b"}}
	mock := adapter.NewMockClient().Respond(judge, "no verdict")
	m := NewMaker(mock, testRegistry(t), "", nil)

	_, err := m.Evaluate(context.Background(), "prompt", candidates)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if parseErr.Call != "evaluate" {
		t.Errorf("ParseError.Call = %q", parseErr.Call)
	}
}

func TestEvaluate_ParsesVerdict(t *testing.T) {
	candidates := []dispatch.Candidate{
		{ModelKey: "gpt-4o", ModelName: "GPT-4o", Response: "a"},
		{ModelKey: "claude", ModelName: "Claude Sonnet", Response: "b"},
	}
	mock := adapter.NewMockClient().Respond(judge,
		`{"best_model": "Claude Sonnet", "ranking": ["Claude Sonnet", "GPT-4o"], "reasoning": "clearer"}`)
	m := NewMaker(mock, testRegistry(t), "", nil)

	eval, err := m.Evaluate(context.Background(), "prompt", candidates)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.BestModel != "Claude Sonnet" {
		t.Errorf("BestModel = %q", eval.BestModel)
	}
	if len(eval.Ranking) != 2 || eval.Ranking[0] != "Claude Sonnet" {
		t.Errorf("Ranking = %v", eval.Ranking)
	}
}

func TestSynthesize_UsesWarmOptions(t *testing.T) {
	candidates := []dispatch.Candidate{{ModelKey: "claude", ModelName: "Claude Sonnet", Response: "b"}}
	mock := adapter.NewMockClient().Respond(judge, "merged answer")
	m := NewMaker(mock, testRegistry(t), "", nil)

	text, err := m.Synthesize(context.Background(), "prompt", candidates)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if text != "merged answer" {
		t.Errorf("text = %q", text)
	}

	opts := mock.Calls[0].Opts
	if temp, _ := opts.Float(adapter.OptTemperature); temp != 0.7 {
		t.Errorf("synthesis temperature = %v, want 0.7", temp)
	}
	if n, _ := opts.Int(adapter.OptMaxTokens); n != 2000 {
		t.Errorf("synthesis max tokens = %v, want 2000", n)
	}
}

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{name: "bare object", raw: `{"a": 1}`, ok: true},
		{name: "surrounded by prose", raw: `Sure! {"a": 1} Let me know.`, ok: true},
		{name: "no braces", raw: "nothing here", ok: false},
		{name: "reversed braces", raw: "} {", ok: false},
		{name: "malformed body", raw: `{"a": }`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v map[string]any
			if got := decodeObject(tt.raw, &v); got != tt.ok {
				t.Errorf("decodeObject(%q) = %v, want %v", tt.raw, got, tt.ok)
			}
		})
	}
}

func TestJudgeModelOverride(t *testing.T) {
	m := NewMaker(adapter.NewMockClient(), testRegistry(t), "anthropic:claude-sonnet-4-20250514", nil)
	if m.JudgeModel() != "anthropic:claude-sonnet-4-20250514" {
		t.Errorf("JudgeModel = %q", m.JudgeModel())
	}
	if NewMaker(adapter.NewMockClient(), testRegistry(t), "", nil).JudgeModel() != DefaultJudgeModel {
		t.Error("empty judge model should select the default")
	}
}
