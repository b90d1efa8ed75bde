package ranking

import (
	"math"
	"testing"
)

func TestTextScore(t *testing.T) {
	tests := []struct {
		name      string
		target    []float64
		candidate []float64
		expected  float64
	}{
		{name: "identical", target: []float64{0.6, 0.8}, candidate: []float64{0.6, 0.8}, expected: 1},
		{name: "orthogonal", target: []float64{1, 0}, candidate: []float64{0, 1}, expected: 0},
		{name: "negative cosine clipped", target: []float64{1, 0}, candidate: []float64{-1, 0}, expected: 0},
		{name: "empty vectors", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TextScore(tt.target, tt.candidate)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestMatchBonus(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{name: "exact match", a: "541511", b: "541511", expected: 0.2},
		{name: "mismatch", a: "541511", b: "541512", expected: 0},
		{name: "both empty", a: "", b: "", expected: 0},
		{name: "case differs", a: "DOD", b: "dod", expected: 0},
		{name: "whitespace differs", a: "DOD", b: "DOD ", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchBonus(tt.a, tt.b, 0.2); got != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestCompositeScore_Capped(t *testing.T) {
	tests := []struct {
		name     string
		text     float64
		bonuses  []float64
		expected float64
	}{
		{name: "text only", text: 0.42, expected: 0.42},
		{name: "text plus bonuses", text: 0.5, bonuses: []float64{0.2, 0.1}, expected: 0.8},
		{name: "capped at one", text: 0.9, bonuses: []float64{0.2, 0.1, 0.1}, expected: 1},
		{name: "bonuses only", text: 0, bonuses: []float64{0.2, 0.1, 0.1}, expected: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompositeScore(tt.text, tt.bonuses...)
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestBlend(t *testing.T) {
	target := map[string]string{"classification": "541511", "organization": "DOD", "category": "IT"}

	tests := []struct {
		name          string
		candidate     map[string]string
		cal           *Calibration
		wantComposite float64
		wantBonuses   map[string]float64
	}{
		{
			name:          "all bonuses",
			candidate:     map[string]string{"classification": "541511", "organization": "DOD", "category": "IT"},
			wantComposite: 0.4,
			wantBonuses:   map[string]float64{BonusClassification: 0.2, BonusOrganization: 0.1, BonusCategory: 0.1},
		},
		{
			name:          "organization only",
			candidate:     map[string]string{"organization": "DOD"},
			wantComposite: 0.1,
			wantBonuses:   map[string]float64{BonusOrganization: 0.1},
		},
		{
			name:          "no attributes",
			candidate:     nil,
			wantComposite: 0,
			wantBonuses:   map[string]float64{},
		},
		{
			name:          "calibrated field name",
			candidate:     map[string]string{"agency": "DOD"},
			cal:           MergeCalibration(DefaultCalibration(), &Calibration{Fields: Fields{Organization: "agency"}}),
			wantComposite: 0,
			wantBonuses:   map[string]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Blend(nil, nil, target, tt.candidate, tt.cal)
			if math.Abs(b.Composite-tt.wantComposite) > 0.001 {
				t.Errorf("composite = %f, want %f", b.Composite, tt.wantComposite)
			}
			if b.Text != 0 {
				t.Errorf("text = %f, want 0 for empty vectors", b.Text)
			}
			if len(b.Bonuses) != len(tt.wantBonuses) {
				t.Fatalf("bonuses = %v, want %v", b.Bonuses, tt.wantBonuses)
			}
			for k, v := range tt.wantBonuses {
				if math.Abs(b.Bonuses[k]-v) > 0.001 {
					t.Errorf("bonus %s = %f, want %f", k, b.Bonuses[k], v)
				}
			}
		})
	}
}

func TestBlend_FactsMirrorBonuses(t *testing.T) {
	attrs := map[string]string{"classification": "541511", "category": "IT"}
	b := Blend([]float64{1}, []float64{1}, attrs, attrs, nil)

	if !b.Facts.ClassificationMatch || b.Facts.Classification != "541511" {
		t.Errorf("classification fact = %+v", b.Facts)
	}
	if b.Facts.OrganizationMatch {
		t.Error("organization must not match when both sides are empty")
	}
	if !b.Facts.CategoryMatch || b.Facts.Category != "IT" {
		t.Errorf("category fact = %+v", b.Facts)
	}
	if b.Composite != 1 {
		t.Errorf("composite = %f, want capped 1", b.Composite)
	}
}
