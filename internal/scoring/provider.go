package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/onnwee/oppscore/internal/record"
)

// Provider produces the sub-score for one component. Implementations must
// not return an error: every failure is expressed as Unavailable.
type Provider interface {
	Component() Component
	Score(ctx context.Context, rec record.Record) Result
}

// Insight is a raw assessment returned by the insight service. For
// RiskAssessment Value is a risk level in [0, 1]; for every other component
// it is a score in [0, 100].
type Insight struct {
	Value     float64
	Rationale string
}

// InsightService is the external service that assesses the delegated
// components.
type InsightService interface {
	Request(ctx context.Context, component Component, rec record.Record, reqContext map[string]string) (Insight, error)
}

// DefaultProviderTimeout bounds a single delegated call.
const DefaultProviderTimeout = 30 * time.Second

// ErrOutOfRange is the cause used when the insight service returns a value
// outside its documented range.
var ErrOutOfRange = errors.New("value out of range")

// DelegatedConfig configures a DelegatedProvider.
type DelegatedConfig struct {
	// Timeout for each request. Defaults to DefaultProviderTimeout.
	Timeout time.Duration
	// Context is forwarded to the service with every request.
	Context map[string]string
	// Logger for unavailability warnings.
	Logger *slog.Logger
}

// DelegatedProvider forwards one component to the insight service.
type DelegatedProvider struct {
	component Component
	service   InsightService
	config    DelegatedConfig
}

// NewDelegatedProvider creates a provider for component backed by service.
// A nil service yields a provider that is always Unavailable.
func NewDelegatedProvider(component Component, service InsightService, config DelegatedConfig) *DelegatedProvider {
	if config.Timeout <= 0 {
		config.Timeout = DefaultProviderTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &DelegatedProvider{
		component: component,
		service:   service,
		config:    config,
	}
}

// Component implements Provider.
func (p *DelegatedProvider) Component() Component { return p.component }

// Score implements Provider. Timeouts, transport errors and malformed or
// out-of-range values all resolve to Unavailable. A RiskAssessment risk
// level is inverted into a score: 100 - level*100.
func (p *DelegatedProvider) Score(ctx context.Context, rec record.Record) Result {
	if p.service == nil {
		return NewUnavailable("insight service not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	insight, err := p.request(ctx, rec)
	if err != nil {
		reason := "insight service error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("insight service timed out after %s", p.config.Timeout)
		}
		p.warn(rec, reason, err)
		return NewUnavailable(reason, err)
	}

	value := insight.Value
	if math.IsNaN(value) || math.IsInf(value, 0) {
		p.warn(rec, "non-finite value", ErrOutOfRange)
		return NewUnavailable("insight service returned a non-finite value", ErrOutOfRange)
	}

	if p.component == RiskAssessment {
		if value < 0 || value > 1 {
			reason := fmt.Sprintf("risk level %g outside [0,1]", value)
			p.warn(rec, reason, ErrOutOfRange)
			return NewUnavailable(reason, ErrOutOfRange)
		}
		return Score(100-value*100, insight.Rationale)
	}

	if value < 0 || value > 100 {
		reason := fmt.Sprintf("score %g outside [0,100]", value)
		p.warn(rec, reason, ErrOutOfRange)
		return NewUnavailable(reason, ErrOutOfRange)
	}
	return Score(value, insight.Rationale)
}

type insightReply struct {
	insight Insight
	err     error
}

// request calls the service without trusting it to honour ctx. Whatever the
// service returns once ctx is done is discarded.
func (p *DelegatedProvider) request(ctx context.Context, rec record.Record) (Insight, error) {
	done := make(chan insightReply, 1)
	go func() {
		insight, err := p.service.Request(ctx, p.component, rec, p.config.Context)
		done <- insightReply{insight: insight, err: err}
	}()

	select {
	case reply := <-done:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Insight{}, ctxErr
		}
		return reply.insight, reply.err
	case <-ctx.Done():
		return Insight{}, ctx.Err()
	}
}

func (p *DelegatedProvider) warn(rec record.Record, reason string, err error) {
	p.config.Logger.Warn("provider unavailable",
		"component", string(p.component),
		"record_id", rec.ID,
		"reason", reason,
		"error", err)
}

// DefaultProviders returns the five standard providers: the two local
// heuristics plus delegated TechnicalFit, CompetitivePosition and
// RiskAssessment backed by service.
func DefaultProviders(priorities Priorities, service InsightService, config DelegatedConfig) []Provider {
	return []Provider{
		NewDelegatedProvider(TechnicalFit, service, config),
		NewDelegatedProvider(CompetitivePosition, service, config),
		FinancialProvider{},
		NewDelegatedProvider(RiskAssessment, service, config),
		StrategicProvider{Priorities: priorities},
	}
}
