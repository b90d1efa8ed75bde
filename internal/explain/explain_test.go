package explain

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/oppscore/internal/record"
)

type fakeNarrative struct {
	reasons []string
	err     error
	delay   time.Duration
	// stubborn sleeps for delay without watching ctx.
	stubborn bool
	calls    atomic.Int32
}

func (f *fakeNarrative) Explain(ctx context.Context, target, candidate record.Record, score float64) ([]string, error) {
	f.calls.Add(1)
	if f.stubborn {
		time.Sleep(f.delay)
		return f.reasons, f.err
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.reasons, f.err
}

func TestDeterministic_FixedOrder(t *testing.T) {
	tests := []struct {
		name  string
		facts Facts
		want  []string
	}{
		{
			name:  "no bonuses",
			facts: Facts{},
			want:  nil,
		},
		{
			name: "all bonuses",
			facts: Facts{
				CategoryMatch:       true,
				Category:            "IT Services",
				OrganizationMatch:   true,
				Organization:        "DOD",
				ClassificationMatch: true,
				Classification:      "541511",
			},
			want: []string{
				"Same classification (541511)",
				"Same organization (DOD)",
				"Same category (IT Services)",
			},
		},
		{
			name:  "organization only",
			facts: Facts{OrganizationMatch: true, Organization: "GSA"},
			want:  []string{"Same organization (GSA)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deterministic(tt.facts)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Deterministic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposer_Explain(t *testing.T) {
	facts := Facts{ClassificationMatch: true, Classification: "541511"}
	target := record.Record{ID: "t"}
	candidate := record.Record{ID: "c"}

	tests := []struct {
		name      string
		narrative *fakeNarrative
		timeout   time.Duration
		want      []string
	}{
		{
			name:      "narrative appended and capped",
			narrative: &fakeNarrative{reasons: []string{"a", " ", "b", "c", "d"}},
			want:      []string{"Same classification (541511)", "a", "b", "c"},
		},
		{
			name:      "narrative error omitted",
			narrative: &fakeNarrative{err: errors.New("boom")},
			want:      []string{"Same classification (541511)"},
		},
		{
			name:      "narrative timeout omitted",
			narrative: &fakeNarrative{reasons: []string{"late"}, delay: time.Second},
			timeout:   10 * time.Millisecond,
			want:      []string{"Same classification (541511)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposer(ComposerConfig{Narrative: tt.narrative, Timeout: tt.timeout})
			got := c.Explain(context.Background(), facts, target, candidate, 0.9)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Explain() = %v, want %v", got, tt.want)
			}
			if n := tt.narrative.calls.Load(); n != 1 {
				t.Errorf("narrative calls = %d, want 1", n)
			}
		})
	}
}

func TestComposer_ExplainIgnoresLateNarrative(t *testing.T) {
	narrative := &fakeNarrative{reasons: []string{"late"}, delay: 300 * time.Millisecond, stubborn: true}
	c := NewComposer(ComposerConfig{Narrative: narrative, Timeout: 20 * time.Millisecond})

	start := time.Now()
	got := c.Explain(context.Background(), Facts{OrganizationMatch: true, Organization: "GSA"}, record.Record{ID: "t"}, record.Record{ID: "c"}, 0.5)
	elapsed := time.Since(start)

	if !reflect.DeepEqual(got, []string{"Same organization (GSA)"}) {
		t.Errorf("Explain() = %v, want deterministic reasons only", got)
	}
	if elapsed >= 200*time.Millisecond {
		t.Errorf("Explain() took %s, want it bounded by the 20ms timeout", elapsed)
	}
}

func TestComposer_WithoutNarrative(t *testing.T) {
	c := NewComposer(ComposerConfig{})
	got := c.Explain(context.Background(), Facts{}, record.Record{}, record.Record{}, 0)
	if len(got) != 0 {
		t.Errorf("expected no reasons, got %v", got)
	}

	var nilComposer *Composer
	got = nilComposer.Explain(context.Background(), Facts{CategoryMatch: true, Category: "x"}, record.Record{}, record.Record{}, 0)
	if !reflect.DeepEqual(got, []string{"Same category (x)"}) {
		t.Errorf("nil composer Explain() = %v", got)
	}
}

func TestComponents(t *testing.T) {
	got := Components([]ComponentFact{
		{Name: "technical_fit", Unavailable: true, Reason: "timeout"},
		{Name: "financial_attractiveness", Score: 60, Weight: 0.2, Rationale: "value tier 60"},
		{Name: "strategic_alignment", Score: 50, Weight: 0.15},
	})
	want := []string{
		"financial_attractiveness 60.0 (weight 0.20): value tier 60",
		"strategic_alignment 50.0 (weight 0.15)",
		"technical_fit unavailable: timeout",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Components() = %v, want %v", got, want)
	}
}
