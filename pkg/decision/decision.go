// Package decision wraps every judge invocation the engine makes: the
// routing decision, task categorization, candidate scoring, the best-response
// evaluation, and response synthesis. Each call formats a fixed prompt, calls
// the judge model once, and extracts a single JSON object from free text.
// Parse failures fall back to one documented default per call site.
package decision

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/zen-systems/fanroute/pkg/adapter"
	"github.com/zen-systems/fanroute/pkg/dispatch"
	"github.com/zen-systems/fanroute/pkg/registry"
	"github.com/zen-systems/fanroute/pkg/stats"
)

// DefaultJudgeModel is used for all judge calls unless overridden. Kept on a
// fast, cheap model so routing overhead stays low.
const DefaultJudgeModel = "openai:gpt-4o"

// Decision is the outcome of one routing classification.
type Decision struct {
	ModelKey   string  `json:"selected_model"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// TaskInfo labels a request for the statistics log.
type TaskInfo struct {
	TaskName     string `json:"task_name"`
	TaskCategory string `json:"task_category"`
}

// ScoreSet holds per-model quality scores from the scoring judge.
type ScoreSet struct {
	Scores    map[string]int `json:"scores"`
	Reasoning string         `json:"brief_reasoning"`
}

// Evaluation is the ranking judge's verdict over a candidate set.
type Evaluation struct {
	BestModel string   `json:"best_model"`
	Ranking   []string `json:"ranking"`
	Reasoning string   `json:"reasoning"`
}

// Maker issues judge calls through the invocation client.
type Maker struct {
	client     adapter.Client
	registry   *registry.Registry
	judgeModel string
	logger     *zap.Logger
}

// NewMaker creates a decision maker. An empty judgeModel selects
// DefaultJudgeModel; a nil logger is replaced with a no-op.
func NewMaker(client adapter.Client, reg *registry.Registry, judgeModel string, logger *zap.Logger) *Maker {
	if judgeModel == "" {
		judgeModel = DefaultJudgeModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maker{client: client, registry: reg, judgeModel: judgeModel, logger: logger}
}

// JudgeModel returns the qualified judge model identifier.
func (m *Maker) JudgeModel() string {
	return m.judgeModel
}

// classifierOpts keeps classification deterministic-leaning and cheap.
func classifierOpts(maxTokens int) adapter.Options {
	return adapter.Options{
		adapter.OptTemperature: 0.1,
		adapter.OptMaxTokens:   maxTokens,
	}
}

// Route picks a backend for the prompt. The judge sees every registered
// model's strengths plus an advisory summary of historical wins. Malformed
// output, missing JSON, or an unknown model key all fall back to the
// registry's default key; only a failed judge call itself is an error.
func (m *Maker) Route(ctx context.Context, prompt string, summary stats.Summary) (*Decision, error) {
	raw, err := m.client.Complete(ctx, m.judgeModel, []adapter.Message{
		{Role: "user", Content: m.buildRoutingPrompt(prompt, summary)},
	}, classifierOpts(200))
	if err != nil {
		return nil, err
	}

	fallback := &Decision{
		ModelKey:   m.registry.DefaultKey(),
		Reasoning:  "Failed to parse routing decision",
		Confidence: 0.5,
	}

	var pick struct {
		Model      string   `json:"model"`
		Reasoning  string   `json:"reasoning"`
		Confidence *float64 `json:"confidence"`
	}
	if !decodeObject(raw, &pick) {
		m.logger.Warn("routing decision unparseable, using default",
			zap.String("fallback_model", fallback.ModelKey))
		return fallback, nil
	}
	if _, ok := m.registry.Get(pick.Model); !ok {
		m.logger.Warn("routing decision named unknown model, using default",
			zap.String("model", pick.Model),
			zap.String("fallback_model", fallback.ModelKey))
		return fallback, nil
	}

	confidence := 0.8
	if pick.Confidence != nil {
		confidence = *pick.Confidence
	}
	if confidence < 0 || confidence > 1 {
		m.logger.Warn("routing confidence out of range, using default",
			zap.Float64("confidence", confidence))
		return fallback, nil
	}

	return &Decision{ModelKey: pick.Model, Reasoning: pick.Reasoning, Confidence: confidence}, nil
}

// Categorize labels the task for the statistics log. Both transport and
// parse failures degrade to the generic label: the category only feeds
// advisory statistics, so it must never fail a request.
func (m *Maker) Categorize(ctx context.Context, prompt string) TaskInfo {
	fallback := TaskInfo{TaskName: "Unknown Task", TaskCategory: "general"}

	raw, err := m.client.Complete(ctx, m.judgeModel, []adapter.Message{
		{Role: "user", Content: buildCategorizePrompt(prompt)},
	}, classifierOpts(200))
	if err != nil {
		m.logger.Warn("categorize call failed, using default", zap.Error(err))
		return fallback
	}

	var info TaskInfo
	if !decodeObject(raw, &info) || info.TaskCategory == "" {
		m.logger.Warn("categorize response unparseable, using default")
		return fallback
	}
	if info.TaskName == "" {
		info.TaskName = fallback.TaskName
	}
	return info
}

// Score rates every candidate 0-10. Like Categorize, it degrades to a
// neutral default on any failure: every candidate scores 5.
func (m *Maker) Score(ctx context.Context, prompt string, candidates []dispatch.Candidate) ScoreSet {
	neutral := func(reason string) ScoreSet {
		scores := make(map[string]int, len(candidates))
		for _, c := range candidates {
			scores[c.ModelName] = 5
		}
		return ScoreSet{Scores: scores, Reasoning: reason}
	}

	raw, err := m.client.Complete(ctx, m.judgeModel, []adapter.Message{
		{Role: "user", Content: buildScoringPrompt(prompt, candidates)},
	}, classifierOpts(500))
	if err != nil {
		m.logger.Warn("scoring call failed, using neutral scores", zap.Error(err))
		return neutral("Scoring call failed; neutral scores assigned")
	}

	var set ScoreSet
	if !decodeObject(raw, &set) || len(set.Scores) == 0 {
		m.logger.Warn("scoring response unparseable, using neutral scores")
		return neutral("Failed to parse scoring response; neutral scores assigned")
	}
	return set
}

// Evaluate ranks the candidates and names the best. There is no safe
// default here: fabricating a winner would defeat the mismatch check in
// aggregation, so parse failures surface as errors.
func (m *Maker) Evaluate(ctx context.Context, prompt string, candidates []dispatch.Candidate) (*Evaluation, error) {
	raw, err := m.client.Complete(ctx, m.judgeModel, []adapter.Message{
		{Role: "user", Content: buildEvaluationPrompt(prompt, candidates)},
	}, classifierOpts(500))
	if err != nil {
		return nil, err
	}

	var eval Evaluation
	if !decodeObject(raw, &eval) || eval.BestModel == "" {
		return nil, &ParseError{Call: "evaluate", Raw: raw}
	}
	return &eval, nil
}

// Synthesize merges all candidate responses into one answer. Evaluation
// calls run cold; synthesis runs warmer with a larger output budget.
func (m *Maker) Synthesize(ctx context.Context, prompt string, candidates []dispatch.Candidate) (string, error) {
	return m.client.Complete(ctx, m.judgeModel, []adapter.Message{
		{Role: "user", Content: buildSynthesisPrompt(prompt, candidates)},
	}, adapter.Options{
		adapter.OptTemperature: 0.7,
		adapter.OptMaxTokens:   2000,
	})
}

// ParseError reports judge output that could not be interpreted where no
// default applies.
type ParseError struct {
	Call string
	Raw  string
}

func (e *ParseError) Error() string {
	return "could not parse " + e.Call + " judge response"
}

// decodeObject extracts the first '{' .. last '}' substring and unmarshals
// it. Any failure (no braces, malformed JSON) reports false; callers apply
// their own default.
func decodeObject(raw string, v any) bool {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v) == nil
}
