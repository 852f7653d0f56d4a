package finance

import "fmt"

// ValidationError signals malformed input to one of the calculators. Callers
// should treat it as a bad request, never as a system failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func errInvalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
