package scoring

import (
	"errors"
	"math"

	"github.com/onnwee/oppscore/internal/explain"
)

// ErrNoComponents is returned alongside a Failed result when no weighted
// component produced a score.
var ErrNoComponents = errors.New("no scored components available")

// State is the lifecycle state of a ScoreResult.
type State string

// Score states. Pending is the zero state before combination; the others
// are terminal.
const (
	StatePending         State = "pending"
	StatePartiallyScored State = "partially_scored"
	StateFullyScored     State = "fully_scored"
	StateFailed          State = "failed"
)

// ComponentResult is one component's contribution to a ScoreResult.
type ComponentResult struct {
	Score       float64 `json:"score" cbor:"score" yaml:"score"`
	Weight      float64 `json:"weight" cbor:"weight" yaml:"weight"`
	Rationale   string  `json:"rationale,omitempty" cbor:"rationale,omitempty" yaml:"rationale,omitempty"`
	Unavailable bool    `json:"unavailable,omitempty" cbor:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Reason      string  `json:"reason,omitempty" cbor:"reason,omitempty" yaml:"reason,omitempty"`
}

// ScoreResult is the overall score of one record under one model.
type ScoreResult struct {
	RecordID   string                        `json:"record_id" cbor:"record_id" yaml:"record_id"`
	ModelID    string                        `json:"model_id" cbor:"model_id" yaml:"model_id"`
	Overall    float64                       `json:"overall" cbor:"overall" yaml:"overall"`
	State      State                         `json:"state" cbor:"state" yaml:"state"`
	Components map[Component]ComponentResult `json:"components" cbor:"components" yaml:"components"`
}

// Combine computes the weighted average of the scored components over the
// weights of the components actually present:
//
//	overall = Σ(score_i * w_i) / Σ(w_i)   for i scored
//
// Unavailable components are recorded but never counted as zero. A Scored
// value that is not finite counts as Unavailable; one outside [0,100] is
// clamped into range before it is weighted.
// Components are visited in the fixed Components order so identical inputs
// always yield bit-identical output. When no scored component carries a
// positive weight the result is Failed and ErrNoComponents is returned with
// it.
func Combine(components map[Component]Result, weights map[Component]float64) (*ScoreResult, error) {
	res := &ScoreResult{
		State:      StatePending,
		Components: make(map[Component]ComponentResult, len(components)),
	}

	var weighted, total float64
	unavailable := 0
	for _, c := range Components {
		r, ok := components[c]
		if !ok {
			continue
		}
		w := weights[c]
		switch v := r.(type) {
		case Scored:
			if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
				res.Components[c] = ComponentResult{Weight: w, Unavailable: true, Reason: "non-finite score"}
				unavailable++
				continue
			}
			value := clampScore(v.Value)
			res.Components[c] = ComponentResult{Score: value, Weight: w, Rationale: v.Rationale}
			weighted += value * w
			total += w
		case Unavailable:
			res.Components[c] = ComponentResult{Weight: w, Unavailable: true, Reason: v.Reason}
			unavailable++
		}
	}

	if total <= 0 {
		res.State = StateFailed
		return res, ErrNoComponents
	}

	res.Overall = clampScore(weighted / total)
	if unavailable > 0 {
		res.State = StatePartiallyScored
	} else {
		res.State = StateFullyScored
	}
	return res, nil
}

func clampScore(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}

// ExplainScore lists the rationale of each scored component in component
// order, followed by the unavailable components and their reasons.
func ExplainScore(r *ScoreResult) []string {
	if r == nil {
		return nil
	}
	facts := make([]explain.ComponentFact, 0, len(r.Components))
	for _, c := range Components {
		cr, ok := r.Components[c]
		if !ok {
			continue
		}
		facts = append(facts, explain.ComponentFact{
			Name:        string(c),
			Score:       cr.Score,
			Weight:      cr.Weight,
			Rationale:   cr.Rationale,
			Unavailable: cr.Unavailable,
			Reason:      cr.Reason,
		})
	}
	return explain.Components(facts)
}
