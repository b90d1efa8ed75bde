package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/onnwee/oppscore/internal/record"
)

// Payment terms with a non-neutral factor.
const (
	PaymentAdvance = "advance"
	PaymentNet30   = "net_30"
	PaymentNet60   = "net_60"
)

// FinancialScore scores a contract by value tier, duration and
// payment terms:
//
//	base     = 100 if value > 10M; 80 if > 1M; 60 if > 100k; else 40
//	duration = 1.2 if months > 36; 1.0 if > 12; else 0.8
//	payment  = 1.3 advance; 1.1 net_30; 0.9 net_60; else 1.0
//	score    = min(100, base * duration * payment)
func FinancialScore(value, durationMonths float64, paymentTerms string) float64 {
	base := valueBase(value)
	return math.Min(100, base*durationFactor(durationMonths)*paymentFactor(paymentTerms))
}

func valueBase(value float64) float64 {
	switch {
	case value > 10_000_000:
		return 100
	case value > 1_000_000:
		return 80
	case value > 100_000:
		return 60
	default:
		return 40
	}
}

func durationFactor(months float64) float64 {
	switch {
	case months > 36:
		return 1.2
	case months > 12:
		return 1.0
	default:
		return 0.8
	}
}

func paymentFactor(terms string) float64 {
	switch terms {
	case PaymentAdvance:
		return 1.3
	case PaymentNet30:
		return 1.1
	case PaymentNet60:
		return 0.9
	default:
		return 1.0
	}
}

// FinancialProvider is the local FinancialAttractiveness heuristic. It reads
// the record's value and duration_months numeric attributes and the
// payment_terms categorical attribute.
type FinancialProvider struct{}

// Component implements Provider.
func (FinancialProvider) Component() Component { return FinancialAttractiveness }

// Score implements Provider. A record without a value or duration is
// Unavailable rather than scored as zero.
func (FinancialProvider) Score(_ context.Context, rec record.Record) Result {
	value, ok := rec.Num(record.NumericValue)
	if !ok {
		return NewUnavailable("missing numeric attribute "+record.NumericValue, nil)
	}
	months, ok := rec.Num(record.NumericDurationMonths)
	if !ok {
		return NewUnavailable("missing numeric attribute "+record.NumericDurationMonths, nil)
	}
	if math.IsNaN(value) || math.IsNaN(months) {
		return NewUnavailable("non-numeric financial attributes", nil)
	}
	terms := rec.Attr(record.FieldPaymentTerms)

	score := FinancialScore(value, months, terms)
	rationale := fmt.Sprintf("value %.0f (base %.0f) x duration %.1f x payment %.1f",
		value, valueBase(value), durationFactor(months), paymentFactor(terms))
	return Score(score, rationale)
}
