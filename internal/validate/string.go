// Package validate provides input validation for the text and attribute
// fields of records submitted for ranking and scoring.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrInvalidUTF8       = errors.New("string is not valid UTF-8")
	ErrEmpty             = errors.New("string is empty")
)

// Length limits for record fields.
const (
	MaxRecordIDLength       = 128
	MaxRecordTextLength     = 100000
	MaxAttributeValueLength = 512
	MaxAttributeNameLength  = 64
)

// attributeNamePattern restricts attribute keys to snake_case identifiers.
var attributeNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength      int            // Minimum length (0 = no minimum)
	MaxLength      int            // Maximum length (0 = no maximum)
	AllowedPattern *regexp.Regexp // Optional regex pattern for allowed characters
	AllowEmpty     bool           // Whether empty strings are allowed
	TrimSpace      bool           // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	// Optionally trim whitespace
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	// Check if empty
	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Get actual character count (not byte count)
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}

	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	return s, nil
}

// RecordID validates a record identifier:
// - 1-128 characters after trimming
func RecordID(id string) (string, error) {
	return String(id, StringConstraints{
		MinLength: 1,
		MaxLength: MaxRecordIDLength,
		TrimSpace: true,
	})
}

// RecordText validates the free-text blob of a record. The text is
// returned untrimmed so vectorization sees the caller's content; only
// emptiness is judged on the trimmed form.
func RecordText(text string, allowEmpty bool) (string, error) {
	if _, err := String(text, StringConstraints{
		MaxLength:  MaxRecordTextLength,
		AllowEmpty: allowEmpty,
		TrimSpace:  true,
	}); err != nil {
		return "", err
	}
	return text, nil
}

// AttributeName validates a categorical or numeric attribute key.
func AttributeName(name string) (string, error) {
	return String(name, StringConstraints{
		MinLength:      1,
		MaxLength:      MaxAttributeNameLength,
		AllowedPattern: attributeNamePattern,
	})
}

// AttributeValue validates a categorical attribute value. Values are never
// trimmed: categorical matching is exact.
func AttributeValue(value string) (string, error) {
	return String(value, StringConstraints{
		MaxLength:  MaxAttributeValueLength,
		AllowEmpty: true,
	})
}
