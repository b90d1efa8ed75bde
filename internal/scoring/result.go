package scoring

import "errors"

// ErrProviderUnavailable is the cause attached to every Unavailable result
// produced by a failed, slow or malformed provider call.
var ErrProviderUnavailable = errors.New("provider unavailable")

// Result is the outcome of one provider call: either Scored or Unavailable.
// Callers switch on the concrete type.
type Result interface {
	isResult()
}

// Scored is a sub-score in [0, 100] with a short rationale.
type Scored struct {
	Value     float64
	Rationale string
}

// Unavailable records why a sub-score could not be produced.
type Unavailable struct {
	Reason string
	// Err carries the underlying cause, when there is one.
	Err error
}

func (Scored) isResult()      {}
func (Unavailable) isResult() {}

// Score returns a Scored result.
func Score(value float64, rationale string) Result {
	return Scored{Value: value, Rationale: rationale}
}

// NewUnavailable returns an Unavailable result whose cause wraps
// ErrProviderUnavailable.
func NewUnavailable(reason string, cause error) Result {
	err := ErrProviderUnavailable
	if cause != nil {
		err = errors.Join(ErrProviderUnavailable, cause)
	}
	return Unavailable{Reason: reason, Err: err}
}
