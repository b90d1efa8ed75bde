package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/oppscore/internal/jobs"
	"github.com/onnwee/oppscore/internal/ranking"
	"github.com/onnwee/oppscore/internal/record"
)

// TargetRanking holds the ranked matches for one target.
type TargetRanking struct {
	TargetID string                     `json:"target_id" yaml:"target_id"`
	Matches  []ranking.SimilarityResult `json:"matches" yaml:"matches"`
}

// RankReport is the outcome of a batch ranking run.
type RankReport struct {
	RunID           string          `json:"run_id" yaml:"run_id"`
	Results         []TargetRanking `json:"results" yaml:"results"`
	Failed          []Failure       `json:"failed" yaml:"failed"`
	Canceled        bool            `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	DurationSeconds float64         `json:"duration_seconds" yaml:"duration_seconds"`
}

// Rank ranks every target against the shared candidate pool. A target is
// never compared with a pool record carrying its own id. Cancellation
// behaves as in Score.
func (r *Runner) Rank(ctx context.Context, targets, pool []record.Record, opts ranking.Options) (*RankReport, error) {
	report := &RankReport{
		RunID:   newRunID(),
		Results: []TargetRanking{},
		Failed:  []Failure{},
	}
	if len(targets) == 0 {
		return report, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	startTime := r.start(jobs.JobTypeBatchRank)
	total := len(targets)
	results := make([][]ranking.SimilarityResult, total)
	errs := make([]error, total)
	started := make([]bool, total)
	var processed atomic.Int64

	r.config.Logger.Info("batch ranking started",
		"run_id", report.RunID,
		"targets", total,
		"pool", len(pool))

	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for i := range targets {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			matches, err := ranking.RankSimilar(targets[i], excluding(pool, targets[i].ID), opts)
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs[i] = ctxErr
				return nil
			}
			if err != nil {
				errs[i] = err
			} else {
				results[i] = matches
			}
			if n := processed.Add(1); n%progressEvery == 0 {
				r.config.Logger.Debug("batch ranking progress",
					"run_id", report.RunID,
					"processed", n,
					"total", total)
			}
			return nil
		})
	}
	_ = g.Wait()

	runErr := ctx.Err()
	for i := range targets {
		if !started[i] {
			errs[i] = runErr
		}
		if errs[i] != nil {
			report.Failed = append(report.Failed, Failure{
				Index:    i,
				RecordID: targets[i].ID,
				Error:    errs[i].Error(),
				err:      errs[i],
			})
			continue
		}
		report.Results = append(report.Results, TargetRanking{TargetID: targets[i].ID, Matches: results[i]})
	}
	if r.config.Metrics != nil {
		r.config.Metrics.ObserveRecords(jobs.JobTypeBatchRank, len(report.Results), len(report.Failed))
	}

	report.Canceled = runErr != nil
	report.DurationSeconds = r.finish(jobs.JobTypeBatchRank, startTime, len(report.Failed), runErr)

	r.config.Logger.Info("batch ranking completed",
		"run_id", report.RunID,
		"duration_seconds", report.DurationSeconds,
		"targets_ranked", len(report.Results),
		"targets_failed", len(report.Failed),
		"canceled", report.Canceled)

	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

func excluding(pool []record.Record, id string) []record.Record {
	out := make([]record.Record, 0, len(pool))
	for _, p := range pool {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
