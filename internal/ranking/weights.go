package ranking

import (
	"github.com/onnwee/oppscore/internal/explain"
	"github.com/onnwee/oppscore/internal/vectorize"
)

// Bonus keys used in SimilarityResult.BonusBreakdown.
const (
	BonusClassification = "classification"
	BonusOrganization   = "organization"
	BonusCategory       = "category"
)

// TextScore computes the text component from two document vectors: their
// cosine similarity clipped to [0, 1]. Empty vectors score 0.
func TextScore(target, candidate []float64) float64 {
	return clamp01(vectorize.Cosine(target, candidate))
}

// MatchBonus returns amount when a and b are byte-for-byte equal and
// non-empty, and 0 otherwise. No case or whitespace folding is applied.
func MatchBonus(a, b string, amount float64) float64 {
	if a == "" || a != b {
		return 0
	}
	return amount
}

// CompositeScore adds the bonuses to the text score and caps the sum at 1.
func CompositeScore(text float64, bonuses ...float64) float64 {
	score := clamp01(text)
	for _, b := range bonuses {
		score += b
	}
	return clamp01(score)
}

// Blended is the outcome of blending one target/candidate pair.
type Blended struct {
	Composite float64
	Text      float64
	Bonuses   map[string]float64
	Facts     explain.Facts
}

// Blend combines text similarity with the calibrated categorical bonuses.
// Only applied bonuses appear in Bonuses. A nil calibration uses the
// defaults.
func Blend(targetVec, candidateVec []float64, targetAttrs, candidateAttrs map[string]string, cal *Calibration) Blended {
	if cal == nil {
		cal = DefaultCalibration()
	}

	text := TextScore(targetVec, candidateVec)
	b := Blended{Text: text, Bonuses: make(map[string]float64)}

	apply := func(key, field string, amount float64) (bool, string) {
		tv, cv := targetAttrs[field], candidateAttrs[field]
		bonus := MatchBonus(tv, cv, amount)
		if bonus == 0 {
			return false, ""
		}
		b.Bonuses[key] = bonus
		return true, tv
	}

	b.Facts.ClassificationMatch, b.Facts.Classification = apply(BonusClassification, cal.Fields.Classification, cal.Bonuses.Classification)
	b.Facts.OrganizationMatch, b.Facts.Organization = apply(BonusOrganization, cal.Fields.Organization, cal.Bonuses.Organization)
	b.Facts.CategoryMatch, b.Facts.Category = apply(BonusCategory, cal.Fields.Category, cal.Bonuses.Category)

	b.Composite = CompositeScore(text,
		b.Bonuses[BonusClassification],
		b.Bonuses[BonusOrganization],
		b.Bonuses[BonusCategory])
	return b
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
