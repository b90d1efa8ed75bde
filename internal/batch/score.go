package batch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/oppscore/internal/jobs"
	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
)

// ScoreReport is the outcome of a batch scoring run.
type ScoreReport struct {
	RunID           string                 `json:"run_id" yaml:"run_id"`
	ModelID         string                 `json:"model_id" yaml:"model_id"`
	Results         []*scoring.ScoreResult `json:"results" yaml:"results"`
	Failed          []Failure              `json:"failed" yaml:"failed"`
	Canceled        bool                   `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	DurationSeconds float64                `json:"duration_seconds" yaml:"duration_seconds"`
}

// Score scores every record against model, at most Concurrency at a time.
// Results are returned in input order; records whose scoring failed are
// listed in Failed instead. A nil model uses scoring.DefaultModel.
//
// When ctx is canceled or the run times out, work still in flight is
// discarded, records not yet started are reported as failed, and the
// partial report is returned together with the context error.
func (r *Runner) Score(ctx context.Context, records []record.Record, model *scoring.ScoreModel) (*ScoreReport, error) {
	if model == nil {
		model = scoring.DefaultModel()
	}
	report := &ScoreReport{
		RunID:   newRunID(),
		ModelID: model.ID,
		Results: []*scoring.ScoreResult{},
		Failed:  []Failure{},
	}
	if len(records) == 0 {
		return report, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	startTime := r.start(jobs.JobTypeBatchScore)
	total := len(records)
	results := make([]*scoring.ScoreResult, total)
	errs := make([]error, total)
	started := make([]bool, total)
	var processed atomic.Int64

	r.config.Logger.Info("batch scoring started",
		"run_id", report.RunID,
		"model_id", model.ID,
		"records", total,
		"concurrency", r.config.Concurrency)

	// Per-record errors never cancel siblings, so a plain group is used.
	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for i := range records {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			res, err := r.scorer.ScoreRecord(ctx, records[i], model)
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs[i] = ctxErr
				return nil
			}
			if err != nil {
				errs[i] = err
				r.config.Logger.Warn("batch record failed",
					"run_id", report.RunID,
					"record_id", records[i].ID,
					"error", err)
			} else {
				results[i] = res
			}

			if n := processed.Add(1); n%progressEvery == 0 {
				r.config.Logger.Debug("batch scoring progress",
					"run_id", report.RunID,
					"processed", n,
					"total", total)
			}
			return nil
		})
	}
	_ = g.Wait()

	runErr := ctx.Err()
	for i := range records {
		if !started[i] {
			errs[i] = runErr
		}
		if errs[i] != nil {
			report.Failed = append(report.Failed, Failure{
				Index:    i,
				RecordID: records[i].ID,
				Error:    errs[i].Error(),
				err:      errs[i],
			})
			if r.config.JobMetrics != nil && runErr == nil {
				r.config.JobMetrics.IncJobErrors(jobs.JobTypeBatchScore, errorType(errs[i]))
			}
			continue
		}
		report.Results = append(report.Results, results[i])
		if r.config.Metrics != nil {
			r.config.Metrics.ObserveResult(results[i])
		}
	}
	if r.config.Metrics != nil {
		r.config.Metrics.ObserveRecords(jobs.JobTypeBatchScore, len(report.Results), len(report.Failed))
	}

	report.Canceled = runErr != nil
	report.DurationSeconds = r.finish(jobs.JobTypeBatchScore, startTime, len(report.Failed), runErr)

	r.config.Logger.Info("batch scoring completed",
		"run_id", report.RunID,
		"duration_seconds", report.DurationSeconds,
		"records_scored", len(report.Results),
		"records_failed", len(report.Failed),
		"canceled", report.Canceled)

	if runErr != nil {
		return report, runErr
	}
	return report, nil
}
