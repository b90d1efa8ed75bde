package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/onnwee/oppscore/internal/jobs"
	"github.com/onnwee/oppscore/internal/ranking"
	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeScorer scores a record by the length of its text and fails records
// whose id is in fail.
type fakeScorer struct {
	fail     map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeScorer) ScoreRecord(ctx context.Context, rec record.Record, model *scoring.ScoreModel) (*scoring.ScoreResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[rec.ID] {
		return nil, &record.InputError{RecordID: rec.ID, Field: "text", Err: record.ErrInvalidInput}
	}
	return &scoring.ScoreResult{
		RecordID: rec.ID,
		ModelID:  model.ID,
		Overall:  float64(len(rec.Text)),
		State:    scoring.StateFullyScored,
		Components: map[scoring.Component]scoring.ComponentResult{
			scoring.TechnicalFit: {Unavailable: true, Reason: "not configured"},
		},
	}, nil
}

// recordingReporter captures jobs.Reporter calls.
type recordingReporter struct {
	mu       sync.Mutex
	inFlight int
	totals   map[string]int
	errs     map[string]int
}

func (r *recordingReporter) JobStarted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight++
}

func (r *recordingReporter) JobFinished(jobType, status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--
	if r.totals == nil {
		r.totals = make(map[string]int)
	}
	r.totals[jobType+"/"+status]++
}

func (r *recordingReporter) IncJobErrors(jobType, errorType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs == nil {
		r.errs = make(map[string]int)
	}
	r.errs[jobType+"/"+errorType]++
}

func makeRecords(n int) []record.Record {
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = record.Record{ID: fmt.Sprintf("r%02d", i), Text: fmt.Sprintf("record text %d", i)}
	}
	return recs
}

func TestRunner_Score(t *testing.T) {
	scorer := &fakeScorer{fail: map[string]bool{"r03": true, "r07": true}, delay: 5 * time.Millisecond}
	reporter := &recordingReporter{}
	runner := NewRunner(Config{Concurrency: 3, Logger: quietLogger(), JobMetrics: reporter}, scorer)

	records := makeRecords(12)
	report, err := runner.Score(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if report.RunID == "" {
		t.Error("expected a run id")
	}
	if report.ModelID != scoring.DefaultModelID {
		t.Errorf("model id = %q", report.ModelID)
	}
	if len(report.Results) != 10 || len(report.Failed) != 2 {
		t.Fatalf("results = %d, failed = %d", len(report.Results), len(report.Failed))
	}
	for i := 1; i < len(report.Results); i++ {
		if report.Results[i-1].RecordID >= report.Results[i].RecordID {
			t.Errorf("results out of input order at %d", i)
		}
	}
	if report.Failed[0].RecordID != "r03" || report.Failed[0].Index != 3 {
		t.Errorf("failed[0] = %+v", report.Failed[0])
	}
	if !errors.Is(report.Failed[1].Err(), record.ErrInvalidInput) {
		t.Errorf("failed[1] cause = %v", report.Failed[1].Err())
	}
	if got := scorer.maxSeen.Load(); got > 3 {
		t.Errorf("max in flight = %d, want <= 3", got)
	}
	if reporter.totals[jobs.JobTypeBatchScore+"/"+jobs.StatusFailure] != 1 {
		t.Errorf("job totals = %v", reporter.totals)
	}
	if reporter.errs[jobs.JobTypeBatchScore+"/"+jobs.ErrorTypeInput] != 2 {
		t.Errorf("job errors = %v", reporter.errs)
	}
	if reporter.inFlight != 0 {
		t.Errorf("in flight after run = %d, want 0", reporter.inFlight)
	}
}

func TestRunner_Score_Empty(t *testing.T) {
	runner := NewRunner(Config{Logger: quietLogger()}, &fakeScorer{})
	report, err := runner.Score(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	if report.Results == nil || report.Failed == nil {
		t.Error("empty run should return non-nil slices")
	}
}

func TestRunner_Score_Canceled(t *testing.T) {
	scorer := &fakeScorer{delay: 50 * time.Millisecond}
	runner := NewRunner(Config{Concurrency: 2, Logger: quietLogger()}, scorer)

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	records := makeRecords(10)
	report, err := runner.Score(ctx, records, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
	if report == nil || !report.Canceled {
		t.Fatalf("report = %+v, want canceled", report)
	}
	if len(report.Results)+len(report.Failed) != len(records) {
		t.Errorf("results %d + failed %d != %d", len(report.Results), len(report.Failed), len(records))
	}
	if len(report.Results) == 0 || len(report.Results) >= len(records) {
		t.Errorf("expected partial results, got %d", len(report.Results))
	}
	for _, r := range report.Results {
		if r == nil {
			t.Fatal("nil result in report")
		}
	}
}

func TestRunner_Score_WithEngine(t *testing.T) {
	engine := scoring.NewEngine(scoring.EngineConfig{
		Providers: scoring.DefaultProviders(scoring.Priorities{}, nil, scoring.DelegatedConfig{Logger: quietLogger()}),
		Logger:    quietLogger(),
	})
	runner := NewRunner(Config{Logger: quietLogger()}, engine)

	records := []record.Record{
		{ID: "a", Text: "cloud", Numeric: map[string]float64{"value": 250_000, "duration_months": 18}},
		{ID: "b", Text: ""},
	}
	report, err := runner.Score(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	if len(report.Results) != 1 || report.Results[0].RecordID != "a" {
		t.Errorf("results = %+v", report.Results)
	}
	if len(report.Failed) != 1 || !errors.Is(report.Failed[0].Err(), record.ErrInvalidInput) {
		t.Errorf("failed = %+v", report.Failed)
	}
}

func TestRunner_Rank(t *testing.T) {
	pool := []record.Record{
		{ID: "p1", Text: "cloud migration services", Categorical: map[string]string{"classification": "541512"}},
		{ID: "p2", Text: "cloud migration and hosting", Categorical: map[string]string{"classification": "541512"}},
		{ID: "p3", Text: "janitorial services for offices"},
	}
	targets := []record.Record{
		{ID: "p1", Text: "cloud migration services", Categorical: map[string]string{"classification": "541512"}},
		{ID: "bad", Text: ""},
	}

	runner := NewRunner(Config{Logger: quietLogger()}, &fakeScorer{})
	report, err := runner.Rank(context.Background(), targets, pool, ranking.Options{})
	if err != nil {
		t.Fatalf("Rank() error: %v", err)
	}
	if len(report.Results) != 1 || len(report.Failed) != 1 {
		t.Fatalf("results = %d, failed = %d", len(report.Results), len(report.Failed))
	}
	for _, m := range report.Results[0].Matches {
		if m.CandidateID == "p1" {
			t.Error("target compared with itself")
		}
	}
	if len(report.Results[0].Matches) == 0 || report.Results[0].Matches[0].CandidateID != "p2" {
		t.Errorf("matches = %+v", report.Results[0].Matches)
	}
}

func TestRunner_Metrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	runner := NewRunner(Config{Logger: quietLogger(), Metrics: m}, &fakeScorer{fail: map[string]bool{"r01": true}})
	if _, err := runner.Score(context.Background(), makeRecords(4), nil); err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if got := counterValue(t, m.recordsTotal.WithLabelValues(jobs.JobTypeBatchScore, OutcomeProcessed)); got != 3 {
		t.Errorf("processed = %f, want 3", got)
	}
	if got := counterValue(t, m.recordsTotal.WithLabelValues(jobs.JobTypeBatchScore, OutcomeFailed)); got != 1 {
		t.Errorf("failed = %f, want 1", got)
	}
	if got := counterValue(t, m.unavailable.WithLabelValues(string(scoring.TechnicalFit))); got != 3 {
		t.Errorf("unavailable technical_fit = %f, want 3", got)
	}
	if got := counterValue(t, m.runsTotal.WithLabelValues(jobs.JobTypeBatchScore, jobs.StatusFailure)); got != 1 {
		t.Errorf("failed runs = %f, want 1", got)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}
