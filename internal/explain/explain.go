// Package explain turns already-computed ranking and scoring values into
// ordered, human-readable reasons. It never recomputes or adjusts a score.
package explain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/onnwee/oppscore/internal/record"
)

// MaxNarrativeReasons caps how many narrative reasons are appended.
const MaxNarrativeReasons = 3

// DefaultNarrativeTimeout bounds a single narrative call.
const DefaultNarrativeTimeout = 30 * time.Second

// Facts records which categorical bonuses were applied to a candidate and
// the values that matched.
type Facts struct {
	ClassificationMatch bool
	Classification      string
	OrganizationMatch   bool
	Organization        string
	CategoryMatch       bool
	Category            string
}

// Deterministic returns reasons for the applied bonuses in fixed order:
// classification, organization, category.
func Deterministic(f Facts) []string {
	var reasons []string
	if f.ClassificationMatch {
		reasons = append(reasons, fmt.Sprintf("Same classification (%s)", f.Classification))
	}
	if f.OrganizationMatch {
		reasons = append(reasons, fmt.Sprintf("Same organization (%s)", f.Organization))
	}
	if f.CategoryMatch {
		reasons = append(reasons, fmt.Sprintf("Same category (%s)", f.Category))
	}
	return reasons
}

// NarrativeService produces free-form reasons describing why a candidate
// resembles a target. Implementations may be slow or unavailable.
type NarrativeService interface {
	Explain(ctx context.Context, target, candidate record.Record, score float64) ([]string, error)
}

// ComposerConfig configures a Composer.
type ComposerConfig struct {
	// Narrative is optional. When nil only deterministic reasons are produced.
	Narrative NarrativeService
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Composer assembles deterministic and narrative reasons.
type Composer struct {
	narrative NarrativeService
	timeout   time.Duration
	logger    *slog.Logger
}

// NewComposer creates a Composer with defaults applied.
func NewComposer(cfg ComposerConfig) *Composer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultNarrativeTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Composer{
		narrative: cfg.Narrative,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Explain returns the deterministic reasons for facts followed by up to
// MaxNarrativeReasons narrative reasons. A failing or slow narrative
// service only drops the narrative part.
func (c *Composer) Explain(ctx context.Context, facts Facts, target, candidate record.Record, score float64) []string {
	reasons := Deterministic(facts)
	if c == nil || c.narrative == nil {
		return reasons
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	extra, err := c.narrate(callCtx, target, candidate, score)
	if err != nil {
		c.logger.Warn("narrative service unavailable",
			"target_id", target.ID,
			"candidate_id", candidate.ID,
			"error", err)
		return reasons
	}

	added := 0
	for _, r := range extra {
		if added == MaxNarrativeReasons {
			break
		}
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		reasons = append(reasons, r)
		added++
	}
	return reasons
}

type narrativeReply struct {
	reasons []string
	err     error
}

// narrate bounds the narrative call by ctx even when the service ignores it.
func (c *Composer) narrate(ctx context.Context, target, candidate record.Record, score float64) ([]string, error) {
	done := make(chan narrativeReply, 1)
	go func() {
		reasons, err := c.narrative.Explain(ctx, target, candidate, score)
		done <- narrativeReply{reasons: reasons, err: err}
	}()

	select {
	case reply := <-done:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return reply.reasons, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
