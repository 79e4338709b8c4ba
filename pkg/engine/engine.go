// Package engine is the routing and aggregation facade. It composes the
// registry, decision maker, dispatcher, aggregator, and statistics store
// into the four operations external callers use. Each request is stateless;
// the statistics store is the only state that crosses requests.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/fanroute/pkg/adapter"
	"github.com/zen-systems/fanroute/pkg/aggregate"
	"github.com/zen-systems/fanroute/pkg/decision"
	"github.com/zen-systems/fanroute/pkg/dispatch"
	"github.com/zen-systems/fanroute/pkg/registry"
	"github.com/zen-systems/fanroute/pkg/stats"
)

// Engine owns the registry and statistics store for its whole lifetime.
type Engine struct {
	client     adapter.Client
	registry   *registry.Registry
	store      stats.Store
	maker      *decision.Maker
	dispatcher *dispatch.Dispatcher
	aggregator *aggregate.Aggregator
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	judgeModel string
	logger     *zap.Logger
}

// WithJudgeModel overrides the qualified model used for all judge calls.
func WithJudgeModel(model string) Option {
	return func(o *options) { o.judgeModel = model }
}

// WithLogger sets the structured logger shared by all components.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an engine over the given invocation client, registry, and
// statistics store.
func New(client adapter.Client, reg *registry.Registry, store stats.Store, opts ...Option) *Engine {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if store == nil {
		store = stats.NewMemStore()
	}

	maker := decision.NewMaker(client, reg, o.judgeModel, o.logger)
	return &Engine{
		client:     client,
		registry:   reg,
		store:      store,
		maker:      maker,
		dispatcher: dispatch.New(client, reg, o.logger),
		aggregator: aggregate.New(maker, store, o.logger),
		logger:     o.logger,
	}
}

// Registry exposes the model table for listing endpoints.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Stats exposes the statistics store for reporting.
func (e *Engine) Stats() stats.Store {
	return e.store
}

// JudgeModel returns the qualified judge model identifier.
func (e *Engine) JudgeModel() string {
	return e.maker.JudgeModel()
}

// Analysis is the routing decision resolved against the registry.
type Analysis struct {
	SelectedModel string  `json:"selected_model"`
	ModelID       string  `json:"model_id"`
	Reasoning     string  `json:"reasoning"`
	Confidence    float64 `json:"confidence"`
	CostPer1K     float64 `json:"estimated_cost_per_1k"`
}

// Analyze runs the routing decision for a prompt without invoking the
// selected backend.
func (e *Engine) Analyze(ctx context.Context, prompt string) (*Analysis, error) {
	dec, err := e.maker.Route(ctx, prompt, e.advisorySummary())
	if err != nil {
		return nil, fmt.Errorf("routing decision failed: %w", err)
	}

	profile, ok := e.registry.Get(dec.ModelKey)
	if !ok {
		return nil, fmt.Errorf("decision named unregistered model %q", dec.ModelKey)
	}

	return &Analysis{
		SelectedModel: profile.Key,
		ModelID:       profile.QualifiedID(),
		Reasoning:     dec.Reasoning,
		Confidence:    dec.Confidence,
		CostPer1K:     profile.CostPer1K,
	}, nil
}

// Route picks one backend for the request and returns its raw response.
func (e *Engine) Route(ctx context.Context, messages []adapter.Message, opts adapter.Options) (string, error) {
	response, _, err := e.RouteWithMetadata(ctx, messages, opts)
	return response, err
}

// RouteWithMetadata routes like Route and also returns the decision.
func (e *Engine) RouteWithMetadata(ctx context.Context, messages []adapter.Message, opts adapter.Options) (string, *Analysis, error) {
	analysis, err := e.Analyze(ctx, lastUserMessage(messages))
	if err != nil {
		return "", nil, err
	}

	e.logger.Info("routing request",
		zap.String("request_id", uuid.NewString()),
		zap.String("model", analysis.SelectedModel),
		zap.Float64("confidence", analysis.Confidence),
	)

	response, err := e.client.Complete(ctx, analysis.ModelID, messages, opts)
	if err != nil {
		return "", nil, fmt.Errorf("backend %s failed: %w", analysis.ModelID, err)
	}
	return response, analysis, nil
}

// ParallelBest fans the request out to every backend and returns the
// judge's pick verbatim with full aggregation metadata.
func (e *Engine) ParallelBest(ctx context.Context, messages []adapter.Message, opts adapter.Options) (string, *aggregate.Metadata, error) {
	return e.parallel(ctx, messages, opts, e.aggregator.SelectBest)
}

// ParallelSynthesize fans the request out and merges all successful
// responses into one synthesized answer.
func (e *Engine) ParallelSynthesize(ctx context.Context, messages []adapter.Message, opts adapter.Options) (string, *aggregate.Metadata, error) {
	return e.parallel(ctx, messages, opts, e.aggregator.Synthesize)
}

type aggregateFn func(context.Context, string, []dispatch.Candidate) (*aggregate.Result, error)

func (e *Engine) parallel(ctx context.Context, messages []adapter.Message, opts adapter.Options, combine aggregateFn) (string, *aggregate.Metadata, error) {
	requestID := uuid.NewString()
	prompt := lastUserMessage(messages)

	candidates, err := e.dispatcher.Dispatch(ctx, messages, opts)
	if err != nil {
		return "", nil, err
	}

	result, err := combine(ctx, prompt, candidates)
	if err != nil {
		return "", nil, err
	}

	e.logger.Info("aggregated fan-out request",
		zap.String("request_id", requestID),
		zap.Int("candidates", len(candidates)),
		zap.Int("successful", len(result.Metadata.AllResponses)),
		zap.String("selected_model", result.Metadata.SelectedModel),
		zap.String("task_category", result.Metadata.TaskInfo.TaskCategory),
	)

	return result.Response, result.Metadata, nil
}

// advisorySummary reads the win histogram, degrading to empty on error:
// statistics bias routing but never block it.
func (e *Engine) advisorySummary() stats.Summary {
	summary, err := e.store.Summarize()
	if err != nil {
		e.logger.Warn("statistics read failed, routing without history", zap.Error(err))
		return stats.Summary{}
	}
	return summary
}

// lastUserMessage returns the most recent user-role content.
func lastUserMessage(messages []adapter.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
