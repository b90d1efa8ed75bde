package scoring

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/onnwee/oppscore/internal/record"
)

func testRecord() record.Record {
	return record.Record{
		ID:   "opp-1",
		Text: "cloud migration for a federal agency",
		Categorical: map[string]string{
			"organization":  "NASA",
			"payment_terms": "net_60",
		},
		Numeric: map[string]float64{"value": 250_000, "duration_months": 18},
	}
}

func TestEngine_ScoreRecord_LocalOnly(t *testing.T) {
	engine := NewEngine(EngineConfig{
		Providers: DefaultProviders(Priorities{}, nil, DelegatedConfig{Logger: quietLogger()}),
		Logger:    quietLogger(),
	})

	res, err := engine.ScoreRecord(context.Background(), testRecord(), DefaultModel())
	if err != nil {
		t.Fatalf("ScoreRecord() error: %v", err)
	}

	// financial = 60 * 1.0 * 0.9 = 54, strategic = 50
	want := (54*0.20 + 50*0.15) / (0.20 + 0.15)
	if math.Abs(res.Overall-want) > 1e-9 {
		t.Errorf("overall = %f, want %f", res.Overall, want)
	}
	if res.State != StatePartiallyScored {
		t.Errorf("state = %s, want %s", res.State, StatePartiallyScored)
	}
	if res.RecordID != "opp-1" || res.ModelID != DefaultModelID {
		t.Errorf("ids = %q/%q", res.RecordID, res.ModelID)
	}
	for _, c := range []Component{TechnicalFit, CompetitivePosition, RiskAssessment} {
		if !res.Components[c].Unavailable {
			t.Errorf("%s should be unavailable without an insight service", c)
		}
	}
}

func TestEngine_ScoreRecord_FullyScored(t *testing.T) {
	svc := &fakeInsight{insights: map[Component]Insight{
		TechnicalFit:        {Value: 80, Rationale: "capabilities match"},
		CompetitivePosition: {Value: 70},
		RiskAssessment:      {Value: 0.4},
	}}
	engine := NewEngine(EngineConfig{
		Providers: DefaultProviders(Priorities{}, svc, DelegatedConfig{Logger: quietLogger()}),
		Logger:    quietLogger(),
	})

	res, err := engine.ScoreRecord(context.Background(), testRecord(), DefaultModel())
	if err != nil {
		t.Fatalf("ScoreRecord() error: %v", err)
	}
	if res.State != StateFullyScored {
		t.Errorf("state = %s, want %s", res.State, StateFullyScored)
	}
	if got := res.Components[RiskAssessment].Score; math.Abs(got-60) > 1e-9 {
		t.Errorf("risk score = %f, want inverted 60", got)
	}

	want := 80*0.25 + 70*0.20 + 54*0.20 + 60*0.20 + 50*0.15
	if math.Abs(res.Overall-want) > 1e-9 {
		t.Errorf("overall = %f, want %f", res.Overall, want)
	}
}

func TestEngine_ScoreRecord_Idempotent(t *testing.T) {
	svc := &fakeInsight{insights: map[Component]Insight{
		TechnicalFit:        {Value: 81.7},
		CompetitivePosition: {Value: 12.3},
		RiskAssessment:      {Value: 0.33},
	}}
	engine := NewEngine(EngineConfig{
		Providers: DefaultProviders(Priorities{}, svc, DelegatedConfig{Logger: quietLogger()}),
		Logger:    quietLogger(),
	})

	first, err := engine.ScoreRecord(context.Background(), testRecord(), DefaultModel())
	if err != nil {
		t.Fatalf("ScoreRecord() error: %v", err)
	}
	second, err := engine.ScoreRecord(context.Background(), testRecord(), DefaultModel())
	if err != nil {
		t.Fatalf("ScoreRecord() error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestEngine_ScoreRecord_SkipsUnweightedComponents(t *testing.T) {
	svc := &fakeInsight{insights: map[Component]Insight{TechnicalFit: {Value: 50}}}
	engine := NewEngine(EngineConfig{
		Providers: DefaultProviders(Priorities{}, svc, DelegatedConfig{Logger: quietLogger()}),
		Logger:    quietLogger(),
	})
	model, err := NewScoreModel("local", "Local", map[string]float64{
		"financial_attractiveness": 1,
		"strategic_alignment":      1,
		"technical_fit":            0,
	})
	if err != nil {
		t.Fatalf("NewScoreModel() error: %v", err)
	}

	res, err := engine.ScoreRecord(context.Background(), testRecord(), model)
	if err != nil {
		t.Fatalf("ScoreRecord() error: %v", err)
	}
	if len(svc.calls) != 0 {
		t.Errorf("insight service called for unweighted components: %v", svc.calls)
	}
	if res.State != StateFullyScored {
		t.Errorf("state = %s, want %s", res.State, StateFullyScored)
	}
	if math.Abs(res.Overall-52) > 1e-9 {
		t.Errorf("overall = %f, want 52", res.Overall)
	}
}

func TestEngine_ScoreRecord_Errors(t *testing.T) {
	engine := NewEngine(EngineConfig{
		Providers: []Provider{FinancialProvider{}},
		Required:  []string{"organization"},
		Logger:    quietLogger(),
	})

	t.Run("input error", func(t *testing.T) {
		rec := testRecord()
		rec.Text = ""
		_, err := engine.ScoreRecord(context.Background(), rec, nil)
		if !errors.Is(err, record.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("missing required attribute", func(t *testing.T) {
		rec := testRecord()
		delete(rec.Categorical, "organization")
		_, err := engine.ScoreRecord(context.Background(), rec, nil)
		if !errors.Is(err, record.ErrMissingField) {
			t.Errorf("error = %v, want ErrMissingField", err)
		}
	})

	t.Run("config error", func(t *testing.T) {
		bad := &ScoreModel{ID: "bad", Weights: map[Component]float64{TechnicalFit: 0}}
		_, err := engine.ScoreRecord(context.Background(), testRecord(), bad)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("error = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("failed when nothing scores", func(t *testing.T) {
		rec := testRecord()
		rec.Numeric = nil
		model := &ScoreModel{ID: "fin", Weights: map[Component]float64{FinancialAttractiveness: 1}}
		res, err := engine.ScoreRecord(context.Background(), rec, model)
		if !errors.Is(err, ErrNoComponents) {
			t.Errorf("error = %v, want ErrNoComponents", err)
		}
		if res == nil || res.State != StateFailed {
			t.Errorf("result = %+v, want Failed", res)
		}
	})
}

func TestEngine_Metrics(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	engine := NewEngine(EngineConfig{
		Providers: DefaultProviders(Priorities{}, nil, DelegatedConfig{Logger: quietLogger()}),
		Logger:    quietLogger(),
		Metrics:   m,
	})
	if _, err := engine.ScoreRecord(context.Background(), testRecord(), nil); err != nil {
		t.Fatalf("ScoreRecord() error: %v", err)
	}

	if got := counterValue(t, m.providerRequests.WithLabelValues(string(TechnicalFit), OutcomeUnavailable)); got != 1 {
		t.Errorf("technical_fit unavailable = %f, want 1", got)
	}
	if got := counterValue(t, m.providerRequests.WithLabelValues(string(FinancialAttractiveness), OutcomeScored)); got != 1 {
		t.Errorf("financial scored = %f, want 1", got)
	}
	if got := counterValue(t, m.scoresTotal.WithLabelValues(string(StatePartiallyScored))); got != 1 {
		t.Errorf("partially scored = %f, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{MetricProviderRequestsTotal, MetricProviderDuration, MetricScoresTotal, MetricOverallScore} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
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
