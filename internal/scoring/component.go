// Package scoring computes a weighted 0-100 score for a record from
// independent sub-scores, degrading gracefully when a sub-score is
// unavailable.
package scoring

import (
	"errors"
	"fmt"
)

// Component names one scoring dimension.
type Component string

// Scoring components.
const (
	TechnicalFit            Component = "technical_fit"
	CompetitivePosition     Component = "competitive_position"
	FinancialAttractiveness Component = "financial_attractiveness"
	RiskAssessment          Component = "risk_assessment"
	StrategicAlignment      Component = "strategic_alignment"
)

// Components lists every component in the fixed order used for summation
// and presentation.
var Components = []Component{
	TechnicalFit,
	CompetitivePosition,
	FinancialAttractiveness,
	RiskAssessment,
	StrategicAlignment,
}

// ErrUnknownComponent is returned for component names outside Components.
var ErrUnknownComponent = errors.New("unknown component")

// Valid reports whether c is a known component.
func (c Component) Valid() bool {
	for _, known := range Components {
		if c == known {
			return true
		}
	}
	return false
}

// ParseComponent converts a name into a Component.
func ParseComponent(name string) (Component, error) {
	c := Component(name)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return c, nil
}
