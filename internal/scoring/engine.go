package scoring

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/tracing"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Providers supply the sub-scores. At most one provider per component is
	// used; later duplicates are ignored.
	Providers []Provider
	// Required lists categorical attributes every scored record must carry.
	Required []string
	// Logger for scoring activity.
	Logger *slog.Logger
	// Metrics for provider and score tracking. Optional.
	Metrics *Metrics
}

// Engine scores records by fanning out to its providers and combining the
// results. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	providers map[Component]Provider
	required  []string
	logger    *slog.Logger
	metrics   *Metrics
}

// NewEngine creates an Engine.
func NewEngine(config EngineConfig) *Engine {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	providers := make(map[Component]Provider, len(config.Providers))
	for _, p := range config.Providers {
		if _, dup := providers[p.Component()]; dup {
			config.Logger.Warn("duplicate provider ignored", "component", string(p.Component()))
			continue
		}
		providers[p.Component()] = p
	}
	return &Engine{
		providers: providers,
		required:  config.Required,
		logger:    config.Logger,
		metrics:   config.Metrics,
	}
}

// ScoreRecord validates rec, requests a sub-score for every component the
// model weights positively and combines them.
//
// Invalid records return a *record.InputError and invalid models a
// *ConfigError; both are hard failures. Provider failures only mark their
// component Unavailable. When nothing could be scored the Failed result is
// returned together with ErrNoComponents. A nil model uses DefaultModel.
func (e *Engine) ScoreRecord(ctx context.Context, rec record.Record, model *ScoreModel) (result *ScoreResult, err error) {
	if model == nil {
		model = DefaultModel()
	}
	if err := rec.Validate(record.ValidateOptions{Required: e.required}); err != nil {
		return nil, err
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	ctx, endSpan := tracing.StartSpan(ctx, "score_record")
	defer func() { endSpan(err) }()
	tracing.SetAttributes(ctx,
		attribute.String("record.id", rec.ID),
		attribute.String("model.id", model.ID),
	)

	var active []Component
	for _, c := range Components {
		if model.Weight(c) > 0 {
			active = append(active, c)
		}
	}

	// Each goroutine writes only its own slot.
	results := make([]Result, len(active))
	var g errgroup.Group
	for i, c := range active {
		g.Go(func() error {
			results[i] = e.callProvider(ctx, c, rec)
			return nil
		})
	}
	_ = g.Wait()

	components := make(map[Component]Result, len(active))
	for i, c := range active {
		components[c] = results[i]
	}

	result, err = Combine(components, model.Weights)
	result.RecordID = rec.ID
	result.ModelID = model.ID

	if e.metrics != nil {
		e.metrics.ObserveScore(result.State, result.Overall)
	}
	e.logger.Debug("record scored",
		"record_id", rec.ID,
		"model_id", model.ID,
		"state", string(result.State),
		"overall", result.Overall)

	return result, err
}

func (e *Engine) callProvider(ctx context.Context, c Component, rec record.Record) Result {
	p, ok := e.providers[c]
	if !ok {
		return NewUnavailable("no provider configured", nil)
	}

	kind := tracing.ProviderLocal
	if _, delegated := p.(*DelegatedProvider); delegated {
		kind = tracing.ProviderDelegated
	}
	ctx, endSpan := tracing.StartProviderSpan(ctx, string(c), kind)

	start := time.Now()
	r := p.Score(ctx, rec)
	if r == nil {
		r = NewUnavailable("provider returned no result", nil)
	}

	outcome := OutcomeScored
	var spanErr error
	if u, ok := r.(Unavailable); ok {
		outcome = OutcomeUnavailable
		spanErr = u.Err
	}
	endSpan(spanErr)

	if e.metrics != nil {
		e.metrics.ObserveProvider(c, outcome, time.Since(start).Seconds())
	}
	return r
}
