package ranking

import (
	"sort"

	"github.com/onnwee/oppscore/internal/explain"
	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/vectorize"
)

// SimilarityResult is one candidate's similarity to the target.
type SimilarityResult struct {
	CandidateID    string             `json:"candidate_id" cbor:"candidate_id" yaml:"candidate_id"`
	CompositeScore float64            `json:"composite_score" cbor:"composite_score" yaml:"composite_score"`
	TextScore      float64            `json:"text_score" cbor:"text_score" yaml:"text_score"`
	BonusBreakdown map[string]float64 `json:"bonus_breakdown" cbor:"bonus_breakdown" yaml:"bonus_breakdown"`
	Reasons        []string           `json:"reasons" cbor:"reasons" yaml:"reasons"`

	facts explain.Facts
}

// Facts returns the bonus facts the result was built from.
func (r SimilarityResult) Facts() explain.Facts {
	return r.facts
}

// Options configures RankSimilar.
type Options struct {
	// Threshold is the minimum composite score kept. Nil uses the
	// calibration threshold; an explicit 0 keeps every candidate.
	Threshold *float64
	// Limit caps the number of results. Zero or negative uses the
	// calibration limit.
	Limit int
	// Calibration supplies bonuses and field names; nil uses the defaults.
	Calibration *Calibration
	// Vectorizer options for the per-call corpus.
	Vectorizer vectorize.Options
}

// Rank drops results whose composite score is below threshold, sorts the
// rest by descending composite score with ties broken by ascending
// candidate id, and truncates to limit. A limit <= 0 means DefaultLimit.
// The input slice is not modified.
func Rank(results []SimilarityResult, threshold float64, limit int) []SimilarityResult {
	if limit <= 0 {
		limit = DefaultLimit
	}

	kept := make([]SimilarityResult, 0, len(results))
	for _, r := range results {
		if r.CompositeScore >= threshold {
			kept = append(kept, r)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].CompositeScore == kept[j].CompositeScore {
			return kept[i].CandidateID < kept[j].CandidateID
		}
		return kept[i].CompositeScore > kept[j].CompositeScore
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// RankSimilar vectorizes the target together with its candidates, blends
// each candidate's similarity and returns the ranked results with their
// deterministic reasons.
//
// The target must have non-empty text. Candidates may have empty text but
// must carry unique, valid ids. Invalid input is returned as a
// *record.InputError.
func RankSimilar(target record.Record, candidates []record.Record, opts Options) ([]SimilarityResult, error) {
	if err := target.Validate(record.ValidateOptions{}); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if err := c.Validate(record.ValidateOptions{AllowEmptyText: true}); err != nil {
			return nil, err
		}
		if _, dup := seen[c.ID]; dup {
			return nil, &record.InputError{RecordID: c.ID, Field: "id", Err: record.ErrDuplicateID}
		}
		seen[c.ID] = struct{}{}
	}

	cal := opts.Calibration
	if cal == nil {
		cal = DefaultCalibration()
	}
	threshold := cal.Threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = cal.Limit
	}

	if len(candidates) == 0 {
		return []SimilarityResult{}, nil
	}

	docs := make([]string, 0, len(candidates)+1)
	docs = append(docs, target.Text)
	for _, c := range candidates {
		docs = append(docs, c.Text)
	}
	matrix := vectorize.New(opts.Vectorizer).FitTransform(docs)

	results := make([]SimilarityResult, 0, len(candidates))
	for i, c := range candidates {
		b := Blend(matrix.Vectors[0], matrix.Vectors[i+1], target.Categorical, c.Categorical, cal)
		results = append(results, SimilarityResult{
			CandidateID:    c.ID,
			CompositeScore: b.Composite,
			TextScore:      b.Text,
			BonusBreakdown: b.Bonuses,
			Reasons:        explain.Deterministic(b.Facts),
			facts:          b.Facts,
		})
	}

	return Rank(results, threshold, limit), nil
}
