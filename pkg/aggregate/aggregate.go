// Package aggregate turns a set of fan-out candidates into a single answer,
// either by selecting the judge's pick verbatim or by synthesizing a merged
// response. Both paths feed the statistics log with the judge's winner.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zen-systems/fanroute/pkg/decision"
	"github.com/zen-systems/fanroute/pkg/dispatch"
	"github.com/zen-systems/fanroute/pkg/stats"
)

// ErrJudgeMismatch is returned when the evaluation judge names a model that
// is not among the successful candidates. Deliberately fatal: silently
// substituting a candidate would misreport which model won.
var ErrJudgeMismatch = errors.New("judge named a model absent from the candidate set")

// Metadata describes how an aggregated answer was produced.
type Metadata struct {
	SelectedModel string               `json:"selected_model,omitempty"`
	TaskInfo      decision.TaskInfo    `json:"task_info"`
	Evaluation    *decision.Evaluation `json:"evaluation,omitempty"`
	Scoring       decision.ScoreSet    `json:"scoring"`
	AllResponses  []dispatch.Candidate `json:"all_responses"`
	ModelsUsed    []string             `json:"models_used,omitempty"`
}

// Result is one aggregated answer plus its provenance.
type Result struct {
	Response string
	Metadata *Metadata
}

// Aggregator combines candidates using the decision maker's judge calls.
type Aggregator struct {
	maker  *decision.Maker
	store  stats.Store
	logger *zap.Logger
}

// New creates an aggregator. A nil logger is replaced with a no-op.
func New(maker *decision.Maker, store stats.Store, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{maker: maker, store: store, logger: logger}
}

// SelectBest has the judge rank all successful candidates and returns the
// winner's response text untouched. The judge naming an unknown model is an
// unrecoverable per-request error.
func (a *Aggregator) SelectBest(ctx context.Context, prompt string, candidates []dispatch.Candidate) (*Result, error) {
	successful := dispatch.Successful(candidates)
	if len(successful) == 0 {
		return nil, fmt.Errorf("select-best requires at least one successful candidate")
	}

	info := a.maker.Categorize(ctx, prompt)
	scoring := a.maker.Score(ctx, prompt, successful)

	eval, err := a.maker.Evaluate(ctx, prompt, successful)
	if err != nil {
		return nil, fmt.Errorf("evaluation judge failed: %w", err)
	}

	winner, ok := findCandidate(successful, eval.BestModel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrJudgeMismatch, eval.BestModel)
	}

	a.recordWin(info.TaskCategory, winner.ModelKey)

	return &Result{
		Response: winner.Response,
		Metadata: &Metadata{
			SelectedModel: winner.ModelKey,
			TaskInfo:      info,
			Evaluation:    eval,
			Scoring:       scoring,
			AllResponses:  successful,
		},
	}, nil
}

// Synthesize merges all successful candidates into one new answer. The
// evaluation step here exists only for metadata and statistics; if it fails,
// synthesis still proceeds and no win is recorded.
func (a *Aggregator) Synthesize(ctx context.Context, prompt string, candidates []dispatch.Candidate) (*Result, error) {
	successful := dispatch.Successful(candidates)
	if len(successful) == 0 {
		return nil, fmt.Errorf("synthesize requires at least one successful candidate")
	}

	info := a.maker.Categorize(ctx, prompt)
	scoring := a.maker.Score(ctx, prompt, successful)

	eval, evalErr := a.maker.Evaluate(ctx, prompt, successful)
	if evalErr != nil {
		a.logger.Warn("evaluation judge failed during synthesis, skipping win record",
			zap.Error(evalErr))
		eval = nil
	}

	text, err := a.maker.Synthesize(ctx, prompt, successful)
	if err != nil {
		return nil, fmt.Errorf("synthesis judge failed: %w", err)
	}

	if eval != nil {
		if winner, ok := findCandidate(successful, eval.BestModel); ok {
			a.recordWin(info.TaskCategory, winner.ModelKey)
		} else {
			a.logger.Warn("evaluation named unknown model during synthesis, skipping win record",
				zap.String("best_model", eval.BestModel))
		}
	}

	models := make([]string, 0, len(successful))
	for _, c := range successful {
		models = append(models, c.ModelName)
	}

	return &Result{
		Response: text,
		Metadata: &Metadata{
			TaskInfo:     info,
			Evaluation:   eval,
			Scoring:      scoring,
			AllResponses: successful,
			ModelsUsed:   models,
		},
	}, nil
}

// recordWin appends to the statistics log. Statistics are advisory, so a
// write failure is logged and swallowed.
func (a *Aggregator) recordWin(category, modelKey string) {
	if err := a.store.Append(category, modelKey); err != nil {
		a.logger.Warn("failed to record win",
			zap.String("category", category),
			zap.String("model", modelKey),
			zap.Error(err),
		)
	}
}

// findCandidate matches the judge's named model against candidate display
// names first, then keys, since judges echo whichever form the prompt used.
func findCandidate(candidates []dispatch.Candidate, name string) (dispatch.Candidate, bool) {
	for _, c := range candidates {
		if c.ModelName == name {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.ModelKey == name {
			return c, true
		}
	}
	return dispatch.Candidate{}, false
}
