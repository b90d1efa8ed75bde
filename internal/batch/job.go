// Package batch scores and ranks many records in one run with bounded
// concurrency. A run produces a Report that keeps per-record results in
// input order alongside the records that failed.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/oppscore/internal/jobs"
	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
)

// DefaultConcurrency is the number of records processed at once when
// Config.Concurrency is unset.
const DefaultConcurrency = 8

// DefaultTimeout bounds a whole run when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Minute

// progressEvery controls how often progress is logged.
const progressEvery = 10

// Scorer scores a single record. *scoring.Engine satisfies it.
type Scorer interface {
	ScoreRecord(ctx context.Context, rec record.Record, model *scoring.ScoreModel) (*scoring.ScoreResult, error)
}

// Config configures a Runner.
type Config struct {
	// Concurrency caps the records in flight.
	Concurrency int
	// Timeout for each run.
	Timeout time.Duration
	// Logger for run activity.
	Logger *slog.Logger
	// Metrics for per-run tracking.
	Metrics *Metrics
	// JobMetrics for centralized job tracking.
	JobMetrics jobs.Reporter
}

// Failure describes a record that produced no result.
type Failure struct {
	Index    int    `json:"index" yaml:"index"`
	RecordID string `json:"record_id" yaml:"record_id"`
	Error    string `json:"error" yaml:"error"`

	err error
}

// Err returns the underlying error.
func (f Failure) Err() error { return f.err }

// Runner executes batch runs.
type Runner struct {
	config Config
	scorer Scorer
}

// NewRunner creates a Runner around scorer.
func NewRunner(config Config, scorer Scorer) *Runner {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Runner{config: config, scorer: scorer}
}

func newRunID() string {
	return uuid.New().String()
}

// errorType maps an error to a jobs error label.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return jobs.ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return jobs.ErrorTypeCanceled
	case errors.Is(err, record.ErrInvalidInput):
		return jobs.ErrorTypeInput
	default:
		return jobs.ErrorTypeScoring
	}
}

// start marks a run of jobType as in flight and returns its start time.
func (r *Runner) start(jobType string) time.Time {
	if r.config.JobMetrics != nil {
		r.config.JobMetrics.JobStarted(jobType)
	}
	return time.Now()
}

// finish records run completion metrics.
func (r *Runner) finish(jobType string, started time.Time, failed int, runErr error) float64 {
	duration := time.Since(started).Seconds()
	status := jobs.StatusSuccess
	if failed > 0 || runErr != nil {
		status = jobs.StatusFailure
	}
	if r.config.Metrics != nil {
		r.config.Metrics.ObserveRun(jobType, status, duration)
	}
	if r.config.JobMetrics != nil {
		if runErr != nil {
			r.config.JobMetrics.IncJobErrors(jobType, errorType(runErr))
		}
		r.config.JobMetrics.JobFinished(jobType, status, duration)
	}
	return duration
}
