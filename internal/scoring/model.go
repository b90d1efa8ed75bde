package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidConfig is the sentinel wrapped by every ConfigError.
var ErrInvalidConfig = errors.New("invalid score model")

// Causes attached to a ConfigError.
var (
	ErrMissingModelID = errors.New("model id is required")
	ErrNoWeights      = errors.New("at least one weight must be positive")
	ErrInvalidWeight  = errors.New("weight must be a finite non-negative number")
)

// ConfigError reports a score model rejected at construction time.
type ConfigError struct {
	ModelID string
	Field   string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid score model %q: %v", e.ModelID, e.Err)
	}
	return fmt.Sprintf("invalid score model %q: %s: %v", e.ModelID, e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}

// ScoreModel is a named set of relative component weights. Weights need not
// sum to 1; they are renormalized over the components present at scoring
// time.
type ScoreModel struct {
	ID      string                `json:"id" yaml:"id"`
	Name    string                `json:"name" yaml:"name"`
	Weights map[Component]float64 `json:"weights" yaml:"weights"`
}

// DefaultModelID identifies the built-in model.
const DefaultModelID = "default"

// DefaultWeights returns the built-in component weights.
func DefaultWeights() map[Component]float64 {
	return map[Component]float64{
		TechnicalFit:            0.25,
		CompetitivePosition:     0.20,
		FinancialAttractiveness: 0.20,
		RiskAssessment:          0.20,
		StrategicAlignment:      0.15,
	}
}

// DefaultModel returns the built-in model using DefaultWeights.
func DefaultModel() *ScoreModel {
	return &ScoreModel{
		ID:      DefaultModelID,
		Name:    "Default",
		Weights: DefaultWeights(),
	}
}

// NewScoreModel builds and validates a model from raw component names.
// Unknown names, negative or non-finite weights and all-zero weights are
// rejected with a *ConfigError.
func NewScoreModel(id, name string, weights map[string]float64) (*ScoreModel, error) {
	m := &ScoreModel{ID: id, Name: name, Weights: make(map[Component]float64, len(weights))}

	names := make([]string, 0, len(weights))
	for n := range weights {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		c, err := ParseComponent(n)
		if err != nil {
			return nil, &ConfigError{ModelID: id, Field: "weights." + n, Err: err}
		}
		m.Weights[c] = weights[n]
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the model's id and weights.
func (m *ScoreModel) Validate() error {
	if m.ID == "" {
		return &ConfigError{Field: "id", Err: ErrMissingModelID}
	}

	var total float64
	for _, c := range m.sortedComponents() {
		w := m.Weights[c]
		if !c.Valid() {
			return &ConfigError{ModelID: m.ID, Field: "weights." + string(c), Err: ErrUnknownComponent}
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return &ConfigError{ModelID: m.ID, Field: "weights." + string(c), Err: ErrInvalidWeight}
		}
		total += w
	}
	if total <= 0 {
		return &ConfigError{ModelID: m.ID, Field: "weights", Err: ErrNoWeights}
	}
	return nil
}

// Weight returns the weight for c, or 0 when the model does not use it.
func (m *ScoreModel) Weight(c Component) float64 {
	return m.Weights[c]
}

func (m *ScoreModel) sortedComponents() []Component {
	out := make([]Component, 0, len(m.Weights))
	for c := range m.Weights {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
