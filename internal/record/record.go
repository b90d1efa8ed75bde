// Package record defines the transient business record that is compared
// and scored by the ranking and scoring engines. Records are supplied per
// call by an external record source and are never persisted here.
package record

import (
	"strings"
)

// Designated attribute names. Categorical matching and the local scoring
// heuristics read these keys.
const (
	FieldClassification = "classification"
	FieldOrganization   = "organization"
	FieldCategory       = "category"
	FieldPaymentTerms   = "payment_terms"
	FieldKeywords       = "keywords"

	NumericValue          = "value"
	NumericDurationMonths = "duration_months"
)

// Record is a business record with a free-text blob and categorical and
// numeric attributes.
type Record struct {
	ID          string             `json:"id" cbor:"id" yaml:"id"`
	Text        string             `json:"text" cbor:"text" yaml:"text"`
	Categorical map[string]string  `json:"categorical_attributes,omitempty" cbor:"categorical_attributes,omitempty" yaml:"categorical_attributes,omitempty"`
	Numeric     map[string]float64 `json:"numeric_attributes,omitempty" cbor:"numeric_attributes,omitempty" yaml:"numeric_attributes,omitempty"`
	Keywords    []string           `json:"keywords,omitempty" cbor:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Attr returns the categorical attribute value, or "" when absent.
func (r Record) Attr(name string) string {
	if r.Categorical == nil {
		return ""
	}
	return r.Categorical[name]
}

// Num returns the numeric attribute value and whether it was present.
func (r Record) Num(name string) (float64, bool) {
	if r.Numeric == nil {
		return 0, false
	}
	v, ok := r.Numeric[name]
	return v, ok
}

// Tags returns the record's category tags. The category attribute may hold
// a single tag or a comma-separated list; blank entries are dropped.
func (r Record) Tags() []string {
	return splitList(r.Attr(FieldCategory))
}

// KeywordList returns the explicit keywords when set, otherwise the
// comma-separated keywords attribute.
func (r Record) KeywordList() []string {
	if len(r.Keywords) > 0 {
		out := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out
	}
	return splitList(r.Attr(FieldKeywords))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
