package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/fanroute/pkg/adapter"
	"github.com/zen-systems/fanroute/pkg/registry"
)

// ErrAllBackendsFailed is returned when a fan-out produces zero successful
// candidates. The caller must not proceed to aggregation.
var ErrAllBackendsFailed = errors.New("all backends failed")

// Candidate is one backend's answer to a fan-out request. A failed candidate
// carries the error text as its response body.
type Candidate struct {
	ModelKey    string  `json:"model_key"`
	ModelName   string  `json:"model_name"`
	Response    string  `json:"response"`
	QualifiedID string  `json:"model_id"`
	CostPer1K   float64 `json:"cost_per_1k"`
	Failed      bool    `json:"failed"`
}

// Dispatcher fans one request out to every registered backend.
type Dispatcher struct {
	client   adapter.Client
	registry *registry.Registry
	logger   *zap.Logger
}

// New creates a dispatcher over the given client and registry.
func New(client adapter.Client, reg *registry.Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{client: client, registry: reg, logger: logger}
}

// Dispatch calls every registered backend concurrently with the same message
// list and options. Per-backend failures become failed candidates; they never
// abort sibling calls, and in-flight calls are never cancelled early.
// Candidates are collected in completion order, not registry order. If no
// backend succeeds, Dispatch returns ErrAllBackendsFailed and no candidates.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []adapter.Message, opts adapter.Options) ([]Candidate, error) {
	keys := d.registry.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: registry is empty", ErrAllBackendsFailed)
	}

	results := make(chan Candidate, len(keys))

	// Worker pool bounded to the registry size; the group carries no error
	// because every failure is converted into a candidate.
	var g errgroup.Group
	g.SetLimit(len(keys))

	for _, key := range keys {
		profile, ok := d.registry.Get(key)
		if !ok {
			continue
		}
		g.Go(func() error {
			text, err := d.client.Complete(ctx, profile.QualifiedID(), messages, opts)
			c := Candidate{
				ModelKey:    profile.Key,
				ModelName:   profile.Name,
				QualifiedID: profile.QualifiedID(),
				CostPer1K:   profile.CostPer1K,
			}
			if err != nil {
				d.logger.Warn("backend call failed",
					zap.String("model", profile.QualifiedID()),
					zap.Bool("transient", adapter.IsTransient(err)),
					zap.Error(err),
				)
				c.Response = err.Error()
				c.Failed = true
			} else {
				c.Response = text
			}
			results <- c
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	candidates := make([]Candidate, 0, len(keys))
	failures := 0
	for c := range results {
		if c.Failed {
			failures++
		}
		candidates = append(candidates, c)
	}

	if failures == len(candidates) {
		return nil, fmt.Errorf("%w: %d of %d backends errored", ErrAllBackendsFailed, failures, len(candidates))
	}

	return candidates, nil
}

// Successful filters out failed candidates, preserving completion order.
func Successful(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Failed {
			out = append(out, c)
		}
	}
	return out
}
