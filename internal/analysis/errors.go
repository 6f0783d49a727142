package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidInput marks malformed questionnaire responses.
	ErrInvalidInput = errors.New("invalid questionnaire responses")
	// ErrOutOfRange marks a probability outside [0,1].
	ErrOutOfRange = errors.New("probability out of range")
	// ErrInvalidConfig marks scoring configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid scoring configuration")
)

// InputError lists every problem found in a response set, keyed by field
// (q1..q10).
type InputError struct {
	Problems map[string]string
}

func (e *InputError) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Problems[k]
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// RangeError reports a probability that is NaN or outside [0,1].
type RangeError struct {
	Field string
	Value float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %s=%v", ErrOutOfRange, e.Field, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }
