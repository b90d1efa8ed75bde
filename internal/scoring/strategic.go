package scoring

import (
	"context"
	"math"
	"strings"

	"github.com/onnwee/oppscore/internal/record"
)

// Priorities describes what the organization is currently pursuing.
type Priorities struct {
	TargetOrganizations []string `koanf:"target_organizations" json:"target_organizations" yaml:"target_organizations"`
	TargetCategories    []string `koanf:"target_categories" json:"target_categories" yaml:"target_categories"`
	GrowthAreas         []string `koanf:"growth_areas" json:"growth_areas" yaml:"growth_areas"`
}

// Strategic alignment increments.
const (
	strategicBase         = 50
	strategicOrganization = 20
	strategicCategory     = 15
	strategicGrowthArea   = 15
)

// StrategicScore starts at 50 and adds 20 when the record's organization
// is a target organization, 15 when any category tag is a target category
// and 15 when any keyword matches a growth area case-insensitively. The
// result is capped at 100. It also returns the matched signals.
func StrategicScore(rec record.Record, p Priorities) (float64, []string) {
	score := float64(strategicBase)
	var matched []string

	if org := rec.Attr(record.FieldOrganization); org != "" && contains(p.TargetOrganizations, org) {
		score += strategicOrganization
		matched = append(matched, "target organization "+org)
	}

	for _, tag := range rec.Tags() {
		if contains(p.TargetCategories, tag) {
			score += strategicCategory
			matched = append(matched, "target category "+tag)
			break
		}
	}

	if kw, ok := firstGrowthArea(rec.KeywordList(), p.GrowthAreas); ok {
		score += strategicGrowthArea
		matched = append(matched, "growth area "+kw)
	}

	return math.Min(100, score), matched
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstGrowthArea(keywords, areas []string) (string, bool) {
	for _, kw := range keywords {
		for _, area := range areas {
			if strings.EqualFold(kw, area) {
				return kw, true
			}
		}
	}
	return "", false
}

// StrategicProvider is the local StrategicAlignment heuristic.
type StrategicProvider struct {
	Priorities Priorities
}

// Component implements Provider.
func (StrategicProvider) Component() Component { return StrategicAlignment }

// Score implements Provider.
func (p StrategicProvider) Score(_ context.Context, rec record.Record) Result {
	score, matched := StrategicScore(rec, p.Priorities)
	rationale := "no overlap with current priorities"
	if len(matched) > 0 {
		rationale = strings.Join(matched, "; ")
	}
	return Score(score, rationale)
}
