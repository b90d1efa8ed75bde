package record

import (
	"errors"
	"fmt"

	"github.com/onnwee/oppscore/internal/validate"
)

// ErrInvalidInput is the sentinel wrapped by every InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError reports a record that cannot be ranked or scored. It is a
// hard failure surfaced to the caller; values are never coerced.
type InputError struct {
	RecordID string
	Field    string
	Err      error
}

func (e *InputError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("invalid input: field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid input: record %s: field %s: %v", e.RecordID, e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *InputError) Unwrap() []error {
	return []error{ErrInvalidInput, e.Err}
}

// ErrMissingField is the cause used when a required categorical attribute
// is absent or empty.
var ErrMissingField = errors.New("required attribute missing")

// ErrDuplicateID is the cause used when two candidates share an id.
var ErrDuplicateID = errors.New("duplicate record id")

// ValidateOptions controls which fields Validate requires.
type ValidateOptions struct {
	// AllowEmptyText accepts records whose text is blank.
	AllowEmptyText bool
	// Required lists categorical attributes that must be present and non-empty.
	Required []string
}

// Validate checks the record's id, text and attributes.
func (r Record) Validate(opts ValidateOptions) error {
	if _, err := validate.RecordID(r.ID); err != nil {
		return &InputError{RecordID: r.ID, Field: "id", Err: err}
	}
	if _, err := validate.RecordText(r.Text, opts.AllowEmptyText); err != nil {
		return &InputError{RecordID: r.ID, Field: "text", Err: err}
	}
	for name, value := range r.Categorical {
		if _, err := validate.AttributeName(name); err != nil {
			return &InputError{RecordID: r.ID, Field: "categorical_attributes." + name, Err: err}
		}
		if _, err := validate.AttributeValue(value); err != nil {
			return &InputError{RecordID: r.ID, Field: "categorical_attributes." + name, Err: err}
		}
	}
	for name := range r.Numeric {
		if _, err := validate.AttributeName(name); err != nil {
			return &InputError{RecordID: r.ID, Field: "numeric_attributes." + name, Err: err}
		}
	}
	for _, name := range opts.Required {
		if r.Attr(name) == "" {
			return &InputError{RecordID: r.ID, Field: "categorical_attributes." + name, Err: ErrMissingField}
		}
	}
	return nil
}
