package ranking

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/onnwee/oppscore/internal/record"
)

func TestRank(t *testing.T) {
	results := []SimilarityResult{
		{CandidateID: "c", CompositeScore: 0.5},
		{CandidateID: "a", CompositeScore: 0.5},
		{CandidateID: "b", CompositeScore: 0.9},
		{CandidateID: "d", CompositeScore: 0.05},
		{CandidateID: "e", CompositeScore: 0.1},
	}

	tests := []struct {
		name      string
		threshold float64
		limit     int
		wantIDs   []string
	}{
		{name: "defaults", threshold: 0.1, limit: 10, wantIDs: []string{"b", "a", "c", "e"}},
		{name: "truncated", threshold: 0.1, limit: 2, wantIDs: []string{"b", "a"}},
		{name: "non-positive limit uses default", threshold: 0.1, limit: 0, wantIDs: []string{"b", "a", "c", "e"}},
		{name: "nothing clears", threshold: 0.95, limit: 10, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(results, tt.threshold, tt.limit)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.CandidateID)
				if r.CompositeScore < tt.threshold {
					t.Errorf("result %s below threshold: %f", r.CandidateID, r.CompositeScore)
				}
			}
			if !reflect.DeepEqual(ids, tt.wantIDs) {
				t.Errorf("Rank() ids = %v, want %v", ids, tt.wantIDs)
			}
			if got == nil {
				t.Error("Rank() must return an empty slice, not nil")
			}
		})
	}

	if results[0].CandidateID != "c" {
		t.Error("Rank() must not reorder its input")
	}
}

func TestRankSimilar_HighSimilarityExample(t *testing.T) {
	target := record.Record{
		ID:          "target",
		Text:        "cloud migration services",
		Categorical: map[string]string{"classification": "541511", "organization": "DOD"},
	}
	candidate := record.Record{
		ID:          "cand",
		Text:        "cloud migration support",
		Categorical: map[string]string{"classification": "541511", "organization": "DOD"},
	}

	results, err := RankSimilar(target, []record.Record{candidate}, Options{})
	if err != nil {
		t.Fatalf("RankSimilar() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.CompositeScore < 0.9 {
		t.Errorf("composite = %f, want >= 0.9", r.CompositeScore)
	}
	if r.CompositeScore > 1 {
		t.Errorf("composite = %f exceeds 1", r.CompositeScore)
	}
	want := []string{"Same classification (541511)", "Same organization (DOD)"}
	if !reflect.DeepEqual(r.Reasons, want) {
		t.Errorf("reasons = %v, want %v", r.Reasons, want)
	}
	if !r.Facts().ClassificationMatch || !r.Facts().OrganizationMatch {
		t.Errorf("facts = %+v", r.Facts())
	}
}

func TestRankSimilar_SingleCandidateSharingOneTerm(t *testing.T) {
	target := record.Record{ID: "target", Text: "cloud migration services for federal agencies"}
	candidate := record.Record{ID: "cand", Text: "cloud kitchen bakery supplies and catering"}

	results, err := RankSimilar(target, []record.Record{candidate}, Options{})
	if err != nil {
		t.Fatalf("RankSimilar() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// one shared unigram out of nine terms per document
	if got, want := results[0].TextScore, 1.0/9; math.Abs(got-want) > 1e-9 {
		t.Errorf("text score = %f, want %f", got, want)
	}
	if results[0].CompositeScore > 0.2 {
		t.Errorf("composite = %f, want a weak match", results[0].CompositeScore)
	}
}

func TestRankSimilar_ExplicitZeroThreshold(t *testing.T) {
	target := record.Record{ID: "t", Text: "cloud migration services"}
	candidates := []record.Record{
		{ID: "b", Text: "cloud migration hosting"},
		{ID: "c", Text: "janitorial cleaning crews"},
	}

	defaults, err := RankSimilar(target, candidates, Options{})
	if err != nil {
		t.Fatalf("RankSimilar() error: %v", err)
	}
	if len(defaults) != 1 || defaults[0].CandidateID != "b" {
		t.Fatalf("default threshold results = %+v, want only b", defaults)
	}

	zero := 0.0
	all, err := RankSimilar(target, candidates, Options{Threshold: &zero})
	if err != nil {
		t.Fatalf("RankSimilar() error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("threshold 0 results = %d, want every candidate", len(all))
	}
	if all[1].CandidateID != "c" || all[1].CompositeScore != 0 {
		t.Errorf("last result = %+v, want c with composite 0", all[1])
	}
}

func TestRankSimilar_ScoresBoundedAndStable(t *testing.T) {
	target := record.Record{
		ID:          "t",
		Text:        "managed cloud hosting and migration for federal agencies",
		Categorical: map[string]string{"classification": "541511"},
	}
	var candidates []record.Record
	texts := []string{
		"cloud hosting services",
		"federal agencies cloud migration",
		"janitorial services",
		"",
		"managed cloud hosting and migration for federal agencies",
		"cloud hosting services",
	}
	for i, text := range texts {
		candidates = append(candidates, record.Record{
			ID:          fmt.Sprintf("c%02d", i),
			Text:        text,
			Categorical: map[string]string{"classification": "541511"},
		})
	}

	threshold := 0.1
	opts := Options{Threshold: &threshold, Limit: 10}
	first, err := RankSimilar(target, candidates, opts)
	if err != nil {
		t.Fatalf("RankSimilar() error: %v", err)
	}
	second, err := RankSimilar(target, candidates, opts)
	if err != nil {
		t.Fatalf("RankSimilar() error: %v", err)
	}

	if len(first) != len(candidates) {
		t.Fatalf("expected all %d candidates above threshold (the classification bonus alone gives 0.2), got %d", len(candidates), len(first))
	}
	for i := range first {
		if first[i].CandidateID != second[i].CandidateID {
			t.Fatalf("ranking not stable at %d: %s vs %s", i, first[i].CandidateID, second[i].CandidateID)
		}
		for _, s := range []float64{first[i].CompositeScore, first[i].TextScore} {
			if s < 0 || s > 1 {
				t.Errorf("score %f out of [0,1] for %s", s, first[i].CandidateID)
			}
		}
		if i > 0 && first[i].CompositeScore > first[i-1].CompositeScore {
			t.Errorf("results not sorted at %d", i)
		}
	}
	if first[0].CandidateID != "c04" {
		t.Errorf("expected identical text first, got %s", first[0].CandidateID)
	}
}

func TestRankSimilar_Validation(t *testing.T) {
	valid := record.Record{ID: "t", Text: "cloud"}

	tests := []struct {
		name       string
		target     record.Record
		candidates []record.Record
		wantCause  error
	}{
		{
			name:      "empty target text",
			target:    record.Record{ID: "t", Text: " "},
			wantCause: record.ErrInvalidInput,
		},
		{
			name:       "duplicate candidate ids",
			target:     valid,
			candidates: []record.Record{{ID: "a"}, {ID: "a"}},
			wantCause:  record.ErrDuplicateID,
		},
		{
			name:       "candidate without id",
			target:     valid,
			candidates: []record.Record{{Text: "x"}},
			wantCause:  record.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RankSimilar(tt.target, tt.candidates, Options{})
			if !errors.Is(err, tt.wantCause) {
				t.Errorf("RankSimilar() error = %v, want %v", err, tt.wantCause)
			}
		})
	}
}

func TestRankSimilar_NoCandidates(t *testing.T) {
	got, err := RankSimilar(record.Record{ID: "t", Text: "cloud"}, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}
